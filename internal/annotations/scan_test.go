package annotations

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func codes(f *File) []string {
	var out []string
	for _, d := range f.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func TestScan_Clean(t *testing.T) {
	src := `
function area(r /*: Number */) /*: Number */ {
    if (r < 0) {
        return 0;
    }
    return r * r;
}

const greet = (name /*: String */, times /*: Number */ = 1) /*: String */ => name.repeat(times);

class Point {
    constructor(x /*: Number */, y /*: Number */) {
        this.x = x;
        this.y = y;
    }
    plus(other /*: Point */) /*: Point */ {
        return new Point(this.x + other.x, this.y + other.y);
    }
    get norm() /*: Number */ {
        return Math.sqrt(this.x * this.x + this.y * this.y);
    }
    set norm(v /*: Number */) {}
}
`
	f := Scan("clean.js", []byte(src))
	if len(f.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", f.Diagnostics)
	}
	if got := len(f.Annotations); got != 11 {
		t.Errorf("found %d annotations, want 11", got)
	}
	for _, a := range f.Annotations {
		if a.Expr == nil {
			t.Errorf("annotation %q not parsed: %v", a.Text, a.Err)
		}
	}
}

func TestScan_Diagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		msg  string
	}{
		{
			name: "unclosed generic",
			src:  `function f(a /*: Array<Number */) {}`,
			code: CodeInvalidAnnotation,
			msg:  "Unclosed generic",
		},
		{
			name: "number prefix",
			src:  `const g = (a /*: 1x */) => a;`,
			code: CodeInvalidAnnotation,
			msg:  "Type names can't start with numbers",
		},
		{
			name: "unterminated",
			src:  `function f(a /*: Number`,
			code: CodeInvalidAnnotation,
			msg:  "Unterminated type declaration",
		},
		{
			name: "optional order",
			src:  `function f(a = 1, b /*: Number */) {}`,
			code: CodeInvalidSignature,
			msg:  "Error when parsing typechecked function 'f': Parameter 'b' is non-optional",
		},
		{
			name: "two annotations",
			src:  `function f(a /*: Number */ /*: String */) {}`,
			code: CodeInvalidSignature,
			msg:  "Unexpected type declaration",
		},
		{
			name: "void parameter",
			src:  `const h = (a /*: void */) => a;`,
			code: CodeInvalidSignature,
			msg:  "Error when parsing typechecked function 'h': Parameter 'a' can't be of type 'void'",
		},
		{
			name: "constructor return",
			src:  "class A {\n    constructor(a /*: Number */) /*: A */ {}\n}",
			code: CodeInvalidSignature,
			msg:  "Constructors can't have return types",
		},
		{
			name: "setter return",
			src:  "class A {\n    set v(x) /*: Number */ {}\n}",
			code: CodeInvalidSignature,
			msg:  "Setters can't have return types",
		},
		{
			name: "one-line class constructor",
			src:  `class B { constructor(a /*: Number */) /*: B */ {} }`,
			code: CodeInvalidSignature,
			msg:  "Constructors can't have return types",
		},
		{
			name: "one-line class setter",
			src:  `class S { set v(x /*: Number */) /*: Number */ {} }`,
			code: CodeInvalidSignature,
			msg:  "Setters can't have return types",
		},
		{
			name: "one-line class method",
			src:  `class M { static m(a = 1, b /*: Number */) {} }`,
			code: CodeInvalidSignature,
			msg:  "Error when parsing typechecked function 'M.m': Parameter 'b' is non-optional",
		},
		{
			name: "generic arity",
			src:  `function f(a /*: Array<Number, String> */) {}`,
			code: CodeInvalidAnnotation,
			msg:  "Did you mean 'Array<Number | String>'?",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := Scan("test.js", []byte(tc.src))
			if diff := cmp.Diff([]string{tc.code}, codes(f)); diff != "" {
				t.Fatalf("codes mismatch (-want +got):\n%s\n%v", diff, f.Diagnostics)
			}
			d := f.Diagnostics[0]
			if !strings.Contains(d.Message, tc.msg) {
				t.Errorf("message %q does not contain %q", d.Message, tc.msg)
			}
			if d.Severity != SeverityError || !f.HasErrors() {
				t.Errorf("severity = %v, want error", d.Severity)
			}
		})
	}
}

func TestScan_UnannotatedSignaturesIgnored(t *testing.T) {
	src := `
function rename({a: b}) {}
const pick = ({x: y}) => y;
`
	f := Scan("test.js", []byte(src))
	if len(f.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", f.Diagnostics)
	}
}

func TestScan_SkipsStringsCommentsAndRegexps(t *testing.T) {
	src := "const s = \"/*: Array< */\"; // /*: Nope< */\n" +
		"const r = /\\/*: x/;\n" +
		"const t = `${\"/*: Bad< */\"} /*: Worse< */`;\n"
	f := Scan("test.js", []byte(src))
	if len(f.Annotations) != 0 || len(f.Diagnostics) != 0 {
		t.Errorf("annotations = %d, diagnostics = %v, want none", len(f.Annotations), f.Diagnostics)
	}
}

func TestScan_Warnings(t *testing.T) {
	src := `function f(a /*: Number | Number */, b /*: Array<String | var> */) {}`
	f := Scan("test.js", []byte(src))
	want := []Diagnostic{
		{Severity: SeverityWarning, Code: CodeRedundantUnion, Message: "Type 'Number | Number' repeats 'Number'"},
		{Severity: SeverityWarning, Code: CodeVarInUnion, Message: "Type 'String | var' always matches because it contains 'var'"},
	}
	opt := cmp.FilterPath(func(p cmp.Path) bool {
		name := p.Last().String()
		return name == ".Pos" || name == ".End"
	}, cmp.Ignore())
	if diff := cmp.Diff(want, f.Diagnostics, opt); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if f.HasErrors() || f.WarningCount() != 2 {
		t.Errorf("errors = %d, warnings = %d", f.ErrorCount(), f.WarningCount())
	}
}

func TestScan_Positions(t *testing.T) {
	f := Scan("test.js", []byte("\nfunction f(a /*: 1x */) {}"))
	if len(f.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v", f.Diagnostics)
	}
	want := Position{Offset: 14, Line: 2, Column: 14}
	if diff := cmp.Diff(want, f.Diagnostics[0].Pos); diff != "" {
		t.Errorf("position mismatch (-want +got):\n%s", diff)
	}
	if got := f.Offset(2, 14); got != 14 {
		t.Errorf("Offset(2, 14) = %d, want 14", got)
	}
}

func TestScan_MultibyteSource(t *testing.T) {
	f := Scan("test.js", []byte(`const s = "é"; function f(a = 1, b /*: Number */) {}`))
	if diff := cmp.Diff([]string{CodeInvalidSignature}, codes(f)); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
	if got := f.Diagnostics[0].Pos; got.Offset != 16 || got.Column != 17 {
		t.Errorf("position = %+v, want offset 16 column 17", got)
	}
}

func TestFile_AnnotationAt(t *testing.T) {
	src := `function f(a /*: Number */, b /*: String */) {}`
	f := Scan("test.js", []byte(src))
	tests := []struct {
		off  int
		want string
	}{
		{0, ""},
		{strings.Index(src, "/*: Number"), " Number "},
		{strings.Index(src, "Number"), " Number "},
		{strings.Index(src, "String */") + 8, " String "},
		{strings.Index(src, ", b"), ""},
	}
	for _, tc := range tests {
		got := ""
		if a := f.AnnotationAt(tc.off); a != nil {
			got = a.Text
		}
		if got != tc.want {
			t.Errorf("AnnotationAt(%d) = %q, want %q", tc.off, got, tc.want)
		}
	}
}

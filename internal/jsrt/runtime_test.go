package jsrt

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/google/go-cmp/cmp"
)

type testRuntime struct {
	t        *testing.T
	vm       *goja.Runtime
	rt       *Runtime
	warnings []string
}

func newTestRuntime(t *testing.T, opts ...Option) *testRuntime {
	t.Helper()
	tr := &testRuntime{t: t, vm: goja.New()}
	opts = append([]Option{WithWarn(func(format string, args ...any) {
		tr.warnings = append(tr.warnings, fmt.Sprintf(format, args...))
	})}, opts...)
	rt, err := New(tr.vm, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := rt.Install(); err != nil {
		t.Fatalf("Install: %v", err)
	}
	tr.rt = rt
	return tr
}

func (tr *testRuntime) run(src string) goja.Value {
	tr.t.Helper()
	v, err := tr.vm.RunString(src)
	if err != nil {
		tr.t.Fatalf("RunString(%q): %v", src, err)
	}
	return v
}

// throws runs src and returns the name and message of the thrown error.
func (tr *testRuntime) throws(src string) (string, string) {
	tr.t.Helper()
	_, err := tr.vm.RunString(src)
	var exc *goja.Exception
	if !errors.As(err, &exc) {
		tr.t.Fatalf("RunString(%q) = %v, want a thrown exception", src, err)
	}
	obj := exc.Value().ToObject(tr.vm)
	return obj.Get("name").String(), obj.Get("message").String()
}

func (tr *testRuntime) expectThrow(src, name, msg string) {
	tr.t.Helper()
	gotName, gotMsg := tr.throws(src)
	if gotName != name || !strings.Contains(gotMsg, msg) {
		tr.t.Errorf("%s\nthrew %s: %s\nwant  %s containing %q", src, gotName, gotMsg, name, msg)
	}
}

// supports reports whether the engine can parse src.
func (tr *testRuntime) supports(src string) bool {
	_, err := tr.vm.RunString("new Function(" + fmt.Sprintf("%q", src) + ")")
	return err == nil
}

func TestWrap_Function(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`var add = typechecked(function add(a /*: Number */, b /*: Number */ = 1) /*: Number */ {
		return a + b;
	});`)

	if got := tr.run("add(1, 2)").ToInteger(); got != 3 {
		t.Errorf("add(1, 2) = %d, want 3", got)
	}
	if got := tr.run("add(41)").ToInteger(); got != 42 {
		t.Errorf("add(41) = %d, want 42", got)
	}
	if got := tr.run("add.name").String(); got != "add" {
		t.Errorf("add.name = %q, want add", got)
	}
	tr.expectThrow(`add("1")`, "TypeError", "Expected parameter 'a' of 'add' to be of type 'Number', got 'String'")
	tr.expectThrow(`add()`, "TypeError", "0 arguments passed to 'add', but at least 1 were expected.")
	tr.expectThrow(`add(1, 2, 3)`, "TypeError", "3 arguments passed to 'add', but at most 2 were expected.")
	tr.expectThrow(`add(NaN)`, "TypeError", "got 'Number'")
}

func TestWrap_ReturnValue(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`var f = typechecked(function f(x) /*: Array<String> | null */ { return x; });`)
	tr.run(`f(null); f([]); f(["a"]);`)
	tr.expectThrow(`f([1, "a"])`, "TypeError", "Expected return value of 'f' to be of type 'Array<String> | null', got 'Array<Number | String>'")
	tr.expectThrow(`f(undefined)`, "TypeError", "got 'undefined'")
}

func TestWrap_DeclarationErrors(t *testing.T) {
	tr := newTestRuntime(t)
	tr.expectThrow(`typechecked(function f(a /*: Array<A, B> */) {})`, "TypeError",
		"Error when parsing typechecked function 'f': Array generics can only have one argument, got 'A, B'. Did you mean 'Array<A | B>'?")
	tr.expectThrow(`typechecked(function f(a /*: 1x */) {})`, "SyntaxError",
		"Error when parsing typechecked function 'f': Type names can't start with numbers")
	tr.expectThrow(`typechecked(function f(a = 1, b) {})`, "SyntaxError", "Parameter 'b' is non-optional")
	tr.expectThrow(`typechecked(1)`, "TypeError",
		"Expected parameter 'undecorated' of function 'typechecked' to be of type 'function | class', got 'Number'")
	tr.expectThrow(`typechecked(function () {}, {kind: "widget"})`, "TypeError", "typechecked is only allowed on classes")
	tr.expectThrow(`typechecked(function () {}, {name: 5})`, "TypeError", "Expected parameter 'name' of function 'typechecked' to be of type 'String', got 'Number'")
}

func TestWrap_UnknownTypeAtCallTime(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`var f = typechecked(function f(a /*: Nope */) {});`)
	tr.expectThrow(`f(1)`, "ReferenceError", "'Nope' in type declaration is not defined")
	tr.run(`var notAType = 3; var g = typechecked(function g(a /*: notAType */) {});`)
	tr.expectThrow(`g(1)`, "TypeError", "'notAType' in type declaration does not name a type")
}

func TestWrap_Arrow(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`var len = typechecked((s /*: String */) /*: Number */ => s.length, {name: "len"});`)
	if got := tr.run(`len("abc")`).ToInteger(); got != 3 {
		t.Errorf(`len("abc") = %d, want 3`, got)
	}
	tr.expectThrow(`len(3)`, "TypeError", "Expected parameter 's' of 'len'")

	tr.run(`var bare = typechecked(x => x);`)
	tr.run(`bare(1, 2, 3)`)
	tr.expectThrow(`bare()`, "TypeError", "at least 1")
}

func TestWrap_Destructuring(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`var f = typechecked(function f({a /*: Number */, b = 1}, [c /*: String */] = ["x"]) {});`)
	tr.run(`f({a: 1}); f({a: 1, b: 2}, ["y"]);`)
	tr.expectThrow(`f({b: 2})`, "TypeError", "Parameter passed as destructured parameter '{a, b}' of 'f' does not have a property named a")
	tr.expectThrow(`f({a: 1}, [1])`, "TypeError", "Expected parameter 'c' of destructured parameter '[c]' of 'f' to be of type 'String', got 'Number'")
}

func TestWrap_Class(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`
	var Point = typechecked(class Point {
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
		static origin() /*: Point */ {
			return new Point(0, 0);
		}
	});`)

	if got := tr.run(`Point.name`).String(); got != "Point" {
		t.Errorf("Point.name = %q", got)
	}
	if got := tr.run(`new Point(3, 4).norm`).ToInteger(); got != 5 {
		t.Errorf("norm = %d, want 5", got)
	}
	if !tr.run(`typechecked.isinstance(Point.origin(), "Point")`).ToBoolean() {
		t.Error("Point.origin() is not a Point")
	}
	if !tr.run(`new Point(1, 2) instanceof Point`).ToBoolean() {
		t.Error("instances are not instanceof the wrapped class")
	}
	tr.expectThrow(`new Point(1, "2")`, "TypeError", "Expected parameter 'y' of 'Point' constructor to be of type 'Number', got 'String'")
	tr.expectThrow(`new Point(1, 2).plus(3)`, "TypeError", "Expected parameter 'other' of 'Point.plus' to be of type 'Point', got 'Number'")
	tr.expectThrow(`new Point(1, 2).norm = "x"`, "TypeError", "Expected parameter 'v' of 'Point.norm'")

	if diff := cmp.Diff([]string{"Point"}, tr.rt.Registry().Names()); diff != "" {
		t.Errorf("registry mismatch (-want +got):\n%s", diff)
	}

	tr.expectThrow(`typechecked(class Point {})`, "ReferenceError", "Redefinition of class 'Point'")
}

func TestWrap_ClassWithoutConstructor(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`class Plain { m(a /*: String */) {} }
	var Wrapped = typechecked(Plain);`)
	if !tr.run(`Wrapped === Plain`).ToBoolean() {
		t.Error("a class without a constructor should be returned as is")
	}
	tr.expectThrow(`new Plain().m(1)`, "TypeError", "Expected parameter 'a' of 'Plain.m'")
	tr.run(`typechecked(Plain)`)
}

func TestWrap_ClassErrors(t *testing.T) {
	tr := newTestRuntime(t)
	tr.expectThrow(`typechecked(class A { constructor() /*: A */ {} })`, "TypeError", "Constructors can't have return types")
	tr.expectThrow(`typechecked(class B { set v(x) /*: Number */ {} })`, "TypeError", "Setters can't have return types")
	tr.expectThrow(`typechecked(class C { m(a /*: Array< */) {} })`, "SyntaxError", "Error when parsing typechecked function 'C.m'")
	tr.expectThrow(`var Map2 = typechecked(class Map {})`, "ReferenceError", "Redefinition of class 'Map'")
}

func TestWrap_SetterMustNotReturn(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`class S { set v(x) { return 1; } }
	typechecked(S);`)
	tr.expectThrow(`new S().v = 1`, "TypeError", "Setters should not return anything")
}

func TestWrap_NonWritableMember(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`class W { m(a /*: Number */) {} }
	Object.defineProperty(W.prototype, "m", {writable: false});
	typechecked(W);
	new W().m("unchecked");`)
	want := []string{"W.m is not writable and can't be typechecked."}
	if diff := cmp.Diff(want, tr.warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestWrap_NonWritableMemberStrict(t *testing.T) {
	tr := newTestRuntime(t, WithStrict(true))
	tr.run(`class W { m(a /*: Number */) {} }
	Object.defineProperty(W.prototype, "m", {writable: false});`)
	tr.expectThrow(`typechecked(W)`, "TypeError", "W.m is not writable and can't be typechecked.")
	if len(tr.warnings) != 0 {
		t.Errorf("unexpected warnings in strict mode: %v", tr.warnings)
	}
}

func TestWrap_Generator(t *testing.T) {
	tr := newTestRuntime(t)
	if !tr.supports("function* g() {}") {
		t.Skip("engine has no generator support")
	}
	tr.run(`var count = typechecked(function* count(n /*: Number */) /*: Number */ {
		for (let i = 0; i < n; i++) {
			yield i;
		}
		return "done";
	});`)
	if got := tr.run(`[...count(3)].join()`).String(); got != "0,1,2" {
		t.Errorf("yielded %q, want 0,1,2", got)
	}
	// The declared type applies to yielded values; the final return value
	// is not checked.
	if got := tr.run(`count(0).next().value`).String(); got != "done" {
		t.Errorf("return value = %q, want done", got)
	}
	tr.run(`var lazy = count("3");`)
	tr.expectThrow(`lazy.next()`, "TypeError", "Expected parameter 'n' of 'count'")

	tr.run(`var bad = typechecked(function* bad() /*: Number */ { yield 1; yield "x"; });
	var it = bad();
	it.next();`)
	tr.expectThrow(`it.next()`, "TypeError", "Expected return value of 'bad' to be of type 'Number', got 'String'")
}

func TestWrap_Async(t *testing.T) {
	tr := newTestRuntime(t)
	if !tr.supports("async function f() {}") {
		t.Skip("engine has no async function support")
	}
	tr.run(`var out = [];
	var f = typechecked(async function f(x /*: Number */) /*: String */ { return x; });
	var g = typechecked(async function g(x /*: Number */) /*: Number */ { return x * 2; });
	var report = p => p.then(v => out.push("ok " + v), e => out.push(e.name + ": " + e.message));
	report(f(1));
	report(g(2));
	report(f("s"));
	report(f());`)
	got := tr.run(`out.join("\n")`).String()
	for _, want := range []string{
		"TypeError: Expected return value of 'f' to be of type 'String', got 'Number'",
		"ok 4",
		"TypeError: Expected parameter 'x' of 'f' to be of type 'Number', got 'String'",
		"TypeError: 0 arguments passed to 'f', but at least 1 were expected.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("async results %q missing %q", got, want)
		}
	}
}

func TestIsInstance(t *testing.T) {
	tr := newTestRuntime(t)
	tests := []struct {
		expr string
		want bool
	}{
		{`typechecked.isinstance(1, Number)`, true},
		{`typechecked.isinstance(NaN, Number)`, false},
		{`typechecked.isinstance("s", String)`, true},
		{`typechecked.isinstance(null, null)`, true},
		{`typechecked.isinstance(undefined, null)`, false},
		{`typechecked.isinstance(undefined)`, true},
		{`typechecked.isinstance(null, Object)`, false},
		{`typechecked.isinstance([1, 2], "Array<Number>")`, true},
		{`typechecked.isinstance([1, "x"], "Array<Number>")`, false},
		{`typechecked.isinstance([], "Array<Number>")`, true},
		{`typechecked.isinstance(new Map([["a", 1]]), "Map<String, Number>")`, true},
		{`typechecked.isinstance(new Map([["a", "b"]]), "Map<String, Number>")`, false},
		{`typechecked.isinstance(new Map([[1, 2]]), "Map<Number>")`, true},
		{`typechecked.isinstance(new Set(["a"]), "Set<String>")`, true},
		{`typechecked.isinstance([1, "a"], "[Number, String]")`, true},
		{`typechecked.isinstance([1, 2], "[Number, String]")`, false},
		{`typechecked.isinstance([1], "[Number, String]")`, false},
		{`typechecked.isinstance(function () {}, "function")`, true},
		{`typechecked.isinstance(class {}, "function")`, false},
		{`typechecked.isinstance(class {}, "class")`, true},
		{`typechecked.isinstance(() => 1, "class")`, false},
		{`typechecked.isinstance(new Date(), "Object | null")`, true},
		{`typechecked.isinstance(3, "String | Number")`, true},
	}
	for _, tc := range tests {
		if got := tr.run(tc.expr).ToBoolean(); got != tc.want {
			t.Errorf("%s = %v, want %v", tc.expr, got, tc.want)
		}
	}
	tr.expectThrow(`typechecked.isinstance(1, 5)`, "TypeError",
		"Expected parameter 'type' of function 'typechecked.isinstance' to be of type 'String | class | null | undefined', got 'Number'")
	tr.expectThrow(`typechecked.isinstance(1, "Array<Number, String>")`, "TypeError", "Did you mean")
}

func TestRegister(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`class Hidden {}
	typechecked.register(Hidden);
	typechecked.register(Hidden);`)
	if !tr.run(`typechecked.isinstance(new Hidden(), "Hidden")`).ToBoolean() {
		t.Error("registered class not resolvable by name")
	}
	tr.expectThrow(`typechecked.register(class Hidden {})`, "ReferenceError", "Redefinition of class 'Hidden'")
	tr.expectThrow(`typechecked.register(42)`, "TypeError", "to be of type 'class'")
}

func TestRegister_CheckedClass(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`const P = typechecked(class Pt {
		constructor(x /*: Number */) { this.x = x; }
	});
	typechecked.register(P);`)
	if !tr.run(`typechecked.isinstance(new P(1), "Pt")`).ToBoolean() {
		t.Error("instance of the checked class does not match its name")
	}
	tr.expectThrow(`new P("1")`, "TypeError", "Expected parameter 'x' of 'Pt' constructor")
	tr.expectThrow(`typechecked.register(class Pt {})`, "ReferenceError", "Redefinition of class 'Pt'")
}

func TestTypecheckedIsFrozen(t *testing.T) {
	tr := newTestRuntime(t)
	if !tr.run(`Object.isFrozen(typechecked)`).ToBoolean() {
		t.Error("typechecked is not frozen")
	}
}

func TestThrownErrorsPassThrough(t *testing.T) {
	tr := newTestRuntime(t)
	tr.run(`var f = typechecked(function f(a /*: Array<Number> */) {});
	var evil = {};
	evil[Symbol.iterator] = function () { throw new RangeError("boom"); };
	Object.setPrototypeOf(evil, Array.prototype);`)
	tr.expectThrow(`f(evil)`, "RangeError", "boom")
}

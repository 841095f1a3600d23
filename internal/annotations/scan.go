// Package annotations finds /*: ... */ type annotations in JavaScript
// source without running it.
//
// Scan reports the errors that wrapping the annotated functions would raise
// at load time: malformed type expressions and malformed signatures. It also
// warns about annotations that are legal but probably not what the author
// meant. Format rewrites annotations to their canonical spelling.
package annotations

import (
	"cmp"
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// Annotation is one /*: ... */ comment.
type Annotation struct {
	// Start and End delimit the whole comment, delimiters included.
	Start, End int

	// Text is the annotation body between "/*:" and "*/".
	Text string

	// Expr is the parsed type expression, nil when Err is set.
	Expr *typeexpr.Expr
	Err  error
}

// File is the result of scanning one source file.
type File struct {
	Path        string
	Annotations []*Annotation
	Diagnostics []Diagnostic

	src        string
	code       []bool // code[i] is false inside comments, strings and regexps
	lineStarts []int
	runeBytes  []int // byte offset of each rune, nil for ASCII sources
}

// Scan collects the annotations of src and checks them together with the
// signatures they belong to.
func Scan(path string, src []byte) *File {
	f := newFile(path, src)
	f.checkHeaders()
	for _, a := range f.Annotations {
		if a.Expr != nil {
			f.lintExpr(a, a.Expr)
		}
	}
	slices.SortStableFunc(f.Diagnostics, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Pos.Offset, b.Pos.Offset),
			cmp.Compare(a.Severity, b.Severity),
		)
	})
	return f
}

// newFile lexes src and parses every annotation in it.
func newFile(path string, src []byte) *File {
	f := &File{Path: path, src: string(src)}
	f.lineStarts = append(f.lineStarts, 0)
	for i := 0; i < len(f.src); i++ {
		if f.src[i] == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}
	f.lex()
	for _, a := range f.Annotations {
		a.Expr, a.Err = typeexpr.Parse(a.Text)
		if a.Err != nil {
			a.Expr = nil
			f.report(a.Start, a.End, SeverityError, CodeInvalidAnnotation, a.Err.Error())
		}
	}
	return f
}

// Position converts a byte offset into a line and column.
func (f *File) Position(off int) Position {
	line := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > off })
	return Position{Offset: off, Line: line, Column: off - f.lineStarts[line-1] + 1}
}

// Offset converts a 1-based line and column back into a byte offset.
func (f *File) Offset(line, col int) int {
	if line < 1 {
		return 0
	}
	if line > len(f.lineStarts) {
		return len(f.src)
	}
	return min(f.lineStarts[line-1]+col-1, len(f.src))
}

// AnnotationAt returns the annotation whose comment contains off.
func (f *File) AnnotationAt(off int) *Annotation {
	i := sort.Search(len(f.Annotations), func(i int) bool { return f.Annotations[i].End > off })
	if i < len(f.Annotations) && f.Annotations[i].Start <= off {
		return f.Annotations[i]
	}
	return nil
}

func (f *File) report(start, end int, sev Severity, code, msg string) {
	f.Diagnostics = append(f.Diagnostics, Diagnostic{
		Pos:      f.Position(start),
		End:      f.Position(end),
		Severity: sev,
		Code:     code,
		Message:  msg,
	})
}

// lex marks the code bytes of src and records every annotation comment.
func (f *File) lex() {
	src := f.src
	f.code = make([]bool, len(src))
	regexOK := true
	word := ""
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				if strings.HasPrefix(src[i:], "/*:") {
					f.report(i, len(src), SeverityError, CodeInvalidAnnotation, "SyntaxError: Unterminated type declaration")
				}
				return
			}
			end += i + 4
			if strings.HasPrefix(src[i:], "/*:") {
				f.Annotations = append(f.Annotations, &Annotation{Start: i, End: end, Text: src[i+3 : end-2]})
			}
			i = end
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '\'' || c == '"' || c == '`':
			i = f.skipString(i)
			regexOK, word = false, ""
		case c == '/' && regexOK:
			i = skipRegexp(src, i)
			regexOK, word = false, ""
		default:
			f.code[i] = true
			i++
			switch {
			case isSpace(c):
				word = ""
			case isWordByte(c):
				word += string(c)
				regexOK = regexKeywords[word]
			default:
				word = ""
				regexOK = c != ')' && c != ']' && c != '}'
			}
		}
	}
}

// skipString returns the offset just past the string literal at i. Template
// substitutions are lexed as code.
func (f *File) skipString(i int) int {
	src := f.src
	quote := src[i]
	for i++; i < len(src); i++ {
		switch c := src[i]; {
		case c == '\\':
			i++
		case c == quote:
			return i + 1
		case c == '\n' && quote != '`':
			return i
		case quote == '`' && strings.HasPrefix(src[i:], "${"):
			i = f.skipSubstitution(i+2) - 1
		}
	}
	return len(src)
}

// skipSubstitution lexes the code of a template substitution starting at i
// and returns the offset just past its closing brace.
func (f *File) skipSubstitution(i int) int {
	src := f.src
	depth := 0
	for i < len(src) {
		switch c := src[i]; c {
		case '\'', '"', '`':
			i = f.skipString(i)
			continue
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i + 1
			}
			depth--
		}
		f.code[i] = true
		i++
	}
	return len(src)
}

func skipRegexp(src string, i int) int {
	inClass := false
	for i++; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			return i
		case '/':
			if !inClass {
				i++
				for i < len(src) && isWordByte(src[i]) {
					i++
				}
				return i
			}
		}
	}
	return len(src)
}

// regexKeywords may be directly followed by a regular expression literal.
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// lintExpr warns about unions that make other branches pointless.
func (f *File) lintExpr(a *Annotation, e *typeexpr.Expr) {
	if e.IsUnion() {
		seen := make(map[string]bool)
		for _, b := range e.Branches() {
			s := b.String()
			if seen[s] {
				f.report(a.Start, a.End, SeverityWarning, CodeRedundantUnion,
					"Type '"+e.String()+"' repeats '"+s+"'")
				break
			}
			seen[s] = true
		}
		for _, b := range e.Branches() {
			if !b.IsTuple() && b.RawType() == typeexpr.TypeVar {
				f.report(a.Start, a.End, SeverityWarning, CodeVarInUnion,
					"Type '"+e.String()+"' always matches because it contains 'var'")
				break
			}
		}
	}
	for _, b := range e.Branches() {
		for _, g := range b.Generics() {
			f.lintExpr(a, g)
		}
		for _, t := range b.Tuple() {
			f.lintExpr(a, t)
		}
	}
}

// annotationFrom returns the annotation starting exactly at off.
func (f *File) annotationFrom(off int) *Annotation {
	i, ok := slices.BinarySearchFunc(f.Annotations, off, func(a *Annotation, off int) int {
		return cmp.Compare(a.Start, off)
	})
	if !ok {
		return nil
	}
	return f.Annotations[i]
}

// annotated reports whether an annotation starts in [start, end).
func (f *File) annotated(start, end int) bool {
	i := sort.Search(len(f.Annotations), func(i int) bool { return f.Annotations[i].Start >= start })
	return i < len(f.Annotations) && f.Annotations[i].Start < end
}

// reportedBefore reports whether err carries an annotation parse failure,
// which the annotation itself already produced a diagnostic for.
func reportedBefore(err error) bool {
	return errors.Is(err, typeexpr.ErrInvalidAnnotation)
}

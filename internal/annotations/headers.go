package annotations

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/albertocavalcante/tcjs/internal/jserr"
	"github.com/albertocavalcante/tcjs/internal/signature"
)

var (
	functionHeader    = regexp2.MustCompile(`(?<![\w$.])(?:async\s+)?function\b\s*\*?\s*([A-Za-z_$][\w$]*)?`, regexp2.None)
	constructorHeader = regexp2.MustCompile(`(?<![\w$.#])constructor\s*(?=\()`, regexp2.None)
	methodHeader      = regexp2.MustCompile(`(?<=(?:^|[{};])\s*)(?:static\s+)?(?:async\s+)?(?:(get|set)\s+)?(?:\*\s*)?(#?[A-Za-z_$][\w$]*)\s*(?=\()`, regexp2.Multiline)
	arrowTail         = regexp2.MustCompile(`\)\s*(?:/\*:(?:[^*]|\*(?!/))*\*/\s*)?=>`, regexp2.None)
	classDecl         = regexp2.MustCompile(`(?<![\w$.])class\s+([A-Za-z_$][\w$]*)`, regexp2.None)
)

// Words that look like method headers at the start of a line.
var statementKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"with": true, "return": true, "function": true, "await": true,
	"typeof": true, "new": true, "super": true, "yield": true,
}

// header is a parameter list that wrapping would parse.
type header struct {
	name   string
	start  int // where the signature extractor starts reading
	open   int // offset of '('
	end    int // end of the return annotation, or past ')'
	ctor   bool
	setter bool
}

// class is a class declaration with a body.
type class struct {
	name string
	at   int
}

// checkHeaders extracts the signature of every annotated callable header.
func (f *File) checkHeaders() {
	if len(f.Annotations) == 0 {
		return
	}
	if utf8.RuneCountInString(f.src) != len(f.src) {
		for i := range f.src {
			f.runeBytes = append(f.runeBytes, i)
		}
	}

	var classes []class
	for _, m := range f.matches(classDecl) {
		g := m.GroupByNumber(1)
		classes = append(classes, class{name: g.String(), at: f.byteOffset(m.Index)})
	}
	enclosing := func(off int) string {
		name := ""
		for _, c := range classes {
			if c.at > off {
				break
			}
			name = c.name
		}
		return name
	}

	seen := make(map[int]bool)
	for _, h := range f.headers(enclosing) {
		if seen[h.open] || !f.annotated(h.start, h.end) {
			continue
		}
		seen[h.open] = true
		f.checkHeader(h)
	}
}

func (f *File) headers(enclosing func(int) string) []header {
	var out []header
	for _, m := range f.matches(functionHeader) {
		start := f.byteOffset(m.Index)
		name := ""
		if g := m.GroupByNumber(1); g.Length > 0 {
			name = g.String()
		}
		if h, ok := f.headerAt(start, f.byteOffset(m.Index+m.Length), name); ok {
			out = append(out, h)
		}
	}
	for _, m := range f.matches(constructorHeader) {
		start := f.byteOffset(m.Index)
		if h, ok := f.headerAt(start, start+len("constructor"), enclosing(start)); ok {
			h.ctor = true
			out = append(out, h)
		}
	}
	for _, m := range f.matches(methodHeader) {
		g := m.GroupByNumber(2)
		name := g.String()
		if statementKeywords[name] || name == "constructor" {
			continue
		}
		start := f.byteOffset(m.Index)
		h, ok := f.headerAt(start, f.byteOffset(g.Index+g.Length), qualify(enclosing(start), name))
		if !ok || !f.opensBody(h.end) {
			continue
		}
		h.setter = m.GroupByNumber(1).String() == "set"
		out = append(out, h)
	}
	for _, m := range f.matches(arrowTail) {
		closeAt := f.byteOffset(m.Index)
		if !f.code[closeAt] {
			continue
		}
		open := f.matchingOpen(closeAt)
		if open < 0 {
			continue
		}
		out = append(out, header{
			name:  f.assignedName(open),
			start: open,
			open:  open,
			end:   f.byteOffset(m.Index + m.Length),
		})
	}
	return out
}

// headerAt builds the header whose parameter list is the first code after
// from. It fails when start is not code or no parameter list follows.
func (f *File) headerAt(start, from int, name string) (header, bool) {
	if start >= len(f.code) || !f.code[start] {
		return header{}, false
	}
	open := f.nextCode(from)
	if open < 0 || f.src[open] != '(' {
		return header{}, false
	}
	closeAt := f.matchingClose(open)
	if closeAt < 0 {
		return header{}, false
	}
	end := closeAt + 1
	if a := f.annotationFrom(skipSpaces(f.src, end)); a != nil {
		end = a.End
	}
	return header{name: name, start: start, open: open, end: end}, true
}

func (f *File) checkHeader(h header) {
	label := "'" + h.name + "'"
	if h.name == "" {
		label = "<anonymous>"
	}
	if h.ctor {
		label += " constructor"
	}
	sig, err := signature.Extract(label, f.src[h.start:])
	switch {
	case err != nil && reportedBefore(err):
		return
	case err != nil:
	case h.ctor && sig.Return != nil:
		err = jserr.Typef("Constructors can't have return types")
	case h.setter && sig.Return != nil:
		err = jserr.Typef("Setters can't have return types")
	}
	if err != nil {
		f.report(h.start, h.end, SeverityError, CodeInvalidSignature, err.Error())
	}
}

func (f *File) matches(re *regexp2.Regexp) []*regexp2.Match {
	var out []*regexp2.Match
	m, err := re.FindStringMatch(f.src)
	for err == nil && m != nil {
		out = append(out, m)
		m, err = re.FindNextMatch(m)
	}
	return out
}

// byteOffset converts a rune index reported by regexp2 into a byte offset.
func (f *File) byteOffset(runeIndex int) int {
	if f.runeBytes == nil {
		return runeIndex
	}
	if runeIndex >= len(f.runeBytes) {
		return len(f.src)
	}
	return f.runeBytes[runeIndex]
}

// nextCode returns the offset of the first non-space code byte at or after
// off, or -1.
func (f *File) nextCode(off int) int {
	for i := off; i < len(f.src); i++ {
		if f.code[i] && !isSpace(f.src[i]) {
			return i
		}
	}
	return -1
}

func (f *File) matchingClose(open int) int {
	depth := 0
	for i := open; i < len(f.src); i++ {
		if !f.code[i] {
			continue
		}
		switch f.src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (f *File) matchingOpen(closeAt int) int {
	depth := 0
	for i := closeAt; i >= 0; i-- {
		if !f.code[i] {
			continue
		}
		switch f.src[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// opensBody reports whether the next code after off opens a block.
func (f *File) opensBody(off int) bool {
	i := f.nextCode(off)
	return i >= 0 && f.src[i] == '{'
}

// assignedName returns NAME for "NAME = (" and "NAME: (" arrow functions.
func (f *File) assignedName(open int) string {
	s := strings.TrimRight(f.src[:open], " \t\r\n")
	s = strings.TrimSuffix(s, "async")
	s = strings.TrimRight(s, " \t\r\n")
	if !strings.HasSuffix(s, "=") && !strings.HasSuffix(s, ":") {
		return ""
	}
	if strings.HasSuffix(s, "==") || strings.HasSuffix(s, "!=") {
		return ""
	}
	s = strings.TrimRight(s[:len(s)-1], " \t\r\n")
	i := len(s)
	for i > 0 && isWordByte(s[i-1]) {
		i--
	}
	return s[i:]
}

func qualify(class, name string) string {
	if class == "" {
		return name
	}
	return class + "." + name
}

func skipSpaces(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

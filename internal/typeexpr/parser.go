package typeexpr

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/albertocavalcante/tcjs/internal/jserr"
)

// ErrInvalidAnnotation is the root cause of every error returned by Parse.
// Callers that re-wrap parse errors can still detect them with errors.Is.
var ErrInvalidAnnotation = errors.New("invalid type annotation")

// Parse parses a type expression such as "Array<Number> | null".
//
// The returned error is a *jserr.SyntaxError for malformed text and a
// *jserr.TypeError for well-formed text that breaks the generic arity rules.
func Parse(s string) (*Expr, error) {
	src := strings.TrimSpace(s)
	p := &parser{whole: src}
	if src == "" {
		return nil, p.syntax("Expected type name")
	}
	if err := p.checkCharacters(src); err != nil {
		return nil, err
	}
	return p.parse(src)
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) *Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// parser carries the full annotation text for error messages while the
// expression is split into nested parts.
type parser struct {
	whole string
}

func (p *parser) syntax(format string, args ...any) error {
	e := jserr.Syntaxf(format, args...)
	e.Cause = ErrInvalidAnnotation
	return e
}

func (p *parser) typeError(format string, args ...any) error {
	e := jserr.Typef(format, args...)
	e.Cause = ErrInvalidAnnotation
	return e
}

func (p *parser) unexpected(token string) error {
	return p.syntax("Unexpected token '%s' in type declaration '%s'", token, p.whole)
}

// checkCharacters rejects characters outside the grammar and any '*' that
// does not directly follow the function or async keyword.
func (p *parser) checkCharacters(s string) error {
	for i, r := range s {
		switch {
		case isNameRune(r), unicode.IsSpace(r):
		case strings.ContainsRune("<>[],|", r):
		case r == '*':
			before := s[:i]
			if !endsWithWord(before, TypeFunction) && !endsWithWord(before, TypeAsync) {
				return p.unexpected("*")
			}
		default:
			return p.syntax("Unexpected character '%c' in type declaration '%s'", r, p.whole)
		}
	}
	return nil
}

func (p *parser) parse(text string) (*Expr, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, p.syntax("Expected type name in type declaration '%s'", p.whole)
	}

	branches, err := p.split(text, '|')
	if err != nil {
		return nil, err
	}
	if len(branches) > 1 {
		e := &Expr{src: text}
		for _, b := range branches {
			if strings.TrimSpace(b) == "" {
				return nil, p.unexpected("|")
			}
			sub, err := p.parse(b)
			if err != nil {
				return nil, err
			}
			e.branches = append(e.branches, sub)
		}
		return e, nil
	}

	if text[0] == '[' {
		end, err := p.matchClose(text, 0)
		if err != nil {
			return nil, err
		}
		if end != len(text)-1 {
			return nil, p.unexpected(nextToken(text[end+1:]))
		}
		return p.parseTuple(text, text[1:end])
	}

	return p.parseNamed(text)
}

func (p *parser) parseTuple(text, inner string) (*Expr, error) {
	e := &Expr{src: text, raw: ContainerArray, isTuple: true, tuple: []*Expr{}}
	if strings.TrimSpace(inner) == "" {
		return e, nil
	}
	parts, err := p.split(inner, ',')
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, p.syntax("Empty tuple element in type declaration '%s'", p.whole)
		}
		sub, err := p.parse(part)
		if err != nil {
			return nil, err
		}
		e.tuple = append(e.tuple, sub)
	}
	return e, nil
}

func (p *parser) parseNamed(text string) (*Expr, error) {
	name := text
	var genericText string
	hasGenerics := false

	if lt := strings.IndexByte(text, '<'); lt >= 0 {
		end, err := p.matchClose(text, lt)
		if err != nil {
			return nil, err
		}
		if end != len(text)-1 {
			return nil, p.unexpected(nextToken(text[end+1:]))
		}
		name = strings.TrimSpace(text[:lt])
		genericText = text[lt+1 : end]
		hasGenerics = true
		if name == "" {
			return nil, p.syntax("Expected type name before generic: '%s'", p.whole)
		}
	}

	if err := p.checkName(name); err != nil {
		return nil, err
	}

	e := &Expr{src: text, raw: name}
	if !hasGenerics {
		return e, nil
	}

	if strings.TrimSpace(genericText) == "" {
		return nil, p.syntax("Empty generic in type declaration '%s'", p.whole)
	}
	parts, err := p.split(genericText, ',')
	if err != nil {
		return nil, err
	}
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
		if parts[i] == "" {
			return nil, p.syntax("Empty generic argument in type declaration '%s'", p.whole)
		}
	}
	if err := p.checkArity(name, parts); err != nil {
		return nil, err
	}
	for _, part := range parts {
		sub, err := p.parse(part)
		if err != nil {
			return nil, err
		}
		e.generics = append(e.generics, sub)
	}
	return e, nil
}

func (p *parser) checkArity(name string, args []string) error {
	joined := strings.Join(args, ", ")
	switch name {
	case ContainerArray, ContainerSet:
		if len(args) > 1 {
			msg := name + " generics can only have one argument, got '" + joined + "'"
			if !strings.Contains(joined, "|") {
				msg += ". Did you mean '" + name + "<" + strings.Join(args, " | ") + ">'?"
			}
			return p.typeError("%s", msg)
		}
	case ContainerMap:
		if len(args) > 2 {
			return p.typeError("%s generics must have one or two arguments, got '%s'", name, joined)
		}
	default:
		return p.typeError("Generics are not supported on %s", name)
	}
	return nil
}

// checkName validates a raw type name: a pseudo-type, or a dotted path of
// identifiers that are not reserved words.
func (p *parser) checkName(name string) error {
	if IsPseudoType(name) {
		return nil
	}
	if i := strings.IndexFunc(name, unicode.IsSpace); i >= 0 {
		return p.unexpected(nextToken(strings.TrimSpace(name[i:])))
	}
	if i := strings.IndexAny(name, "[]<>,*"); i >= 0 {
		return p.unexpected(name[i : i+1])
	}
	for _, seg := range strings.Split(name, ".") {
		switch {
		case seg == "":
			return p.unexpected(".")
		case unicode.IsDigit(rune(seg[0])):
			return p.syntax("Type names can't start with numbers, got '%s'", p.whole)
		case IsReservedWord(seg):
			return p.syntax("Unexpected reserved word '%s' in type declaration '%s'", seg, p.whole)
		}
	}
	return nil
}

// split splits s on sep at nesting depth zero. Brackets must be balanced.
func (p *parser) split(s string, sep byte) ([]string, error) {
	var parts []string
	var stack []byte
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<', '[':
			stack = append(stack, c)
		case '>', ']':
			if len(stack) == 0 || stack[len(stack)-1] != opener(c) {
				return nil, p.unexpected(string(c))
			}
			stack = stack[:len(stack)-1]
		default:
			if c == sep && len(stack) == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if len(stack) > 0 {
		if stack[len(stack)-1] == '<' {
			return nil, p.syntax("Unclosed generic in type declaration '%s'", p.whole)
		}
		return nil, p.syntax("Unclosed tuple in type declaration '%s'", p.whole)
	}
	return append(parts, s[start:]), nil
}

// matchClose returns the index of the bracket closing the one at open.
func (p *parser) matchClose(s string, open int) (int, error) {
	var stack []byte
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '<', '[':
			stack = append(stack, c)
		case '>', ']':
			if len(stack) == 0 || stack[len(stack)-1] != opener(c) {
				return 0, p.unexpected(string(c))
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, nil
			}
		}
	}
	if s[open] == '<' {
		return 0, p.syntax("Unclosed generic in type declaration '%s'", p.whole)
	}
	return 0, p.syntax("Unclosed tuple in type declaration '%s'", p.whole)
}

func opener(closer byte) byte {
	if closer == '>' {
		return '<'
	}
	return '['
}

// isNameRune reports whether r may appear in a dotted type name.
func isNameRune(r rune) bool {
	switch {
	case r == '_', r == '$', r == '.':
		return true
	case r < 0x80:
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
	default:
		return unicode.Is(unicode.Latin, r)
	}
}

// endsWithWord reports whether s ends with word as a whole identifier.
func endsWithWord(s, word string) bool {
	if !strings.HasSuffix(s, word) {
		return false
	}
	rest := s[:len(s)-len(word)]
	if rest == "" {
		return true
	}
	last := rest[len(rest)-1]
	return !(isNameRune(rune(last)) && last != '.') && last != '*'
}

// nextToken returns the leading token of s for error messages.
func nextToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	end := strings.IndexFunc(s, func(r rune) bool { return !isNameRune(r) || r == '.' })
	switch {
	case end < 0:
		return s
	case end == 0:
		_, size := utf8.DecodeRuneInString(s)
		return s[:size]
	default:
		return s[:end]
	}
}

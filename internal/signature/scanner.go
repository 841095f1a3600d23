package signature

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/albertocavalcante/tcjs/internal/jserr"
)

// scanner walks JavaScript source text one construct at a time.
type scanner struct {
	src string
	off int
}

func (s *scanner) eof() bool { return s.off >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.off]
}

func (s *scanner) at(prefix string) bool {
	return strings.HasPrefix(s.src[s.off:], prefix)
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		r, size := utf8.DecodeRuneInString(s.src[s.off:])
		if !unicode.IsSpace(r) {
			return
		}
		s.off += size
	}
}

// atAnnotation reports whether a type annotation starts after optional
// whitespace.
func (s *scanner) atAnnotation() bool {
	save := s.off
	s.skipSpace()
	ok := s.at("/*:")
	s.off = save
	return ok
}

// skipComments skips whitespace and comments. When skipAnnotations is false
// it stops in front of a type annotation; otherwise an annotation is an error
// if errOnAnnotation is set and skipped silently if not. After the first
// comment both flags revert to true, so two annotations in a row are always
// rejected.
func (s *scanner) skipComments(skipAnnotations, errOnAnnotation bool) error {
	for {
		s.skipSpace()
		switch {
		case s.at("//"):
			s.skipLine()
		case s.at("/*:"):
			if !skipAnnotations {
				return nil
			}
			start := s.off
			if err := s.skipBlock(); err != nil {
				return err
			}
			if errOnAnnotation {
				return jserr.Syntaxf("Unexpected type declaration '%s'", s.src[start:s.off])
			}
		case s.at("/*"):
			if err := s.skipBlock(); err != nil {
				return err
			}
		default:
			return nil
		}
		skipAnnotations, errOnAnnotation = true, true
	}
}

// skipAnyComments skips whitespace and every kind of comment.
func (s *scanner) skipAnyComments() error {
	for {
		s.skipSpace()
		switch {
		case s.at("//"):
			s.skipLine()
		case s.at("/*"):
			if err := s.skipBlock(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *scanner) skipLine() {
	if i := strings.IndexByte(s.src[s.off:], '\n'); i >= 0 {
		s.off += i + 1
		return
	}
	s.off = len(s.src)
}

func (s *scanner) skipBlock() error {
	i := strings.Index(s.src[s.off+2:], "*/")
	if i < 0 {
		return jserr.Syntaxf("Unterminated comment")
	}
	s.off += 2 + i + 2
	return nil
}

// readAnnotation consumes a /*: ... */ comment and returns its body.
func (s *scanner) readAnnotation() (string, error) {
	s.skipSpace()
	start := s.off + 3
	i := strings.Index(s.src[start:], "*/")
	if i < 0 {
		return "", jserr.Syntaxf("Unterminated type declaration")
	}
	s.off = start + i + 2
	return s.src[start : start+i], nil
}

// skipString consumes a string or template literal starting at the current
// quote character.
func (s *scanner) skipString() error {
	quote := s.peek()
	s.off++
	for !s.eof() {
		c := s.src[s.off]
		switch {
		case c == '\\':
			s.off += 2
			continue
		case c == quote:
			s.off++
			return nil
		case quote == '`' && s.at("${"):
			s.off += 2
			if err := s.skipBalanced('}'); err != nil {
				return err
			}
			continue
		case c == '\n' && quote != '`':
			return jserr.Syntaxf("Unterminated string literal")
		}
		s.off++
	}
	return jserr.Syntaxf("Unterminated string literal")
}

// skipBalanced consumes source up to and including the closer that ends the
// current nesting level.
func (s *scanner) skipBalanced(closer byte) error {
	depth := 0
	for {
		if err := s.skipAnyComments(); err != nil {
			return err
		}
		if s.eof() {
			return jserr.Syntaxf("Unexpected end of input, expected '%c'", closer)
		}
		switch c := s.src[s.off]; c {
		case '"', '\'', '`':
			if err := s.skipString(); err != nil {
				return err
			}
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				if c != closer {
					return jserr.Syntaxf("Unexpected token '%c'", c)
				}
				s.off++
				return nil
			}
			depth--
		}
		s.off++
	}
}

// skipDefault consumes a default value expression, stopping in front of the
// ',' or closer that ends it.
func (s *scanner) skipDefault() error {
	depth := 0
	prev := byte('=')
	for {
		if err := s.skipAnyComments(); err != nil {
			return err
		}
		if s.eof() {
			return jserr.Syntaxf("Unexpected end of input when parsing a default value")
		}
		c := s.src[s.off]
		switch c {
		case '"', '\'', '`':
			if err := s.skipString(); err != nil {
				return err
			}
			prev = c
			continue
		case '/':
			if strings.IndexByte(regexpFollows, prev) >= 0 {
				if err := s.skipRegexp(); err != nil {
					return err
				}
				prev = '/'
				continue
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return nil
			}
			depth--
		case ',':
			if depth == 0 {
				return nil
			}
		}
		if !isSpaceByte(c) {
			prev = c
		}
		s.off++
	}
}

// regexpFollows lists the bytes after which a '/' starts a regular
// expression literal rather than a division.
const regexpFollows = "=([{,:;?!&|^~+-*%<>"

// skipRegexp consumes a regular expression literal and its flags.
func (s *scanner) skipRegexp() error {
	inClass := false
	for s.off++; s.off < len(s.src); s.off++ {
		switch s.src[s.off] {
		case '\\':
			s.off++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			return jserr.Syntaxf("Unterminated regular expression in a default value")
		case '/':
			if inClass {
				continue
			}
			s.off++
			for !s.eof() && isIdentRune(rune(s.src[s.off]), false) {
				s.off++
			}
			return nil
		}
	}
	return jserr.Syntaxf("Unterminated regular expression in a default value")
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (s *scanner) ident() string {
	start := s.off
	for !s.eof() {
		r, size := utf8.DecodeRuneInString(s.src[s.off:])
		if !isIdentRune(r, s.off == start) {
			break
		}
		s.off += size
	}
	return s.src[start:s.off]
}

func isIdentRune(r rune, first bool) bool {
	switch {
	case r == '_' || r == '$':
		return true
	case unicode.IsLetter(r):
		return true
	case !first && unicode.IsDigit(r):
		return true
	}
	return false
}

// token returns the text at the current position for error messages.
func (s *scanner) token() string {
	if s.eof() {
		return "end of input"
	}
	save := s.off
	if id := s.ident(); id != "" {
		s.off = save
		return id
	}
	_, size := utf8.DecodeRuneInString(s.src[s.off:])
	return s.src[s.off : s.off+size]
}

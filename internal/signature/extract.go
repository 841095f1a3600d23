package signature

import (
	"github.com/albertocavalcante/tcjs/internal/jserr"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// Extract derives the signature of the callable whose source text is src.
// name labels the callable in the signature and in error messages.
//
// Errors keep their kind and are prefixed with the callable name.
func Extract(name, src string) (*Signature, error) {
	x := &extractor{
		s:     scanner{src: src},
		sig:   &Signature{Name: name},
		names: make(map[string]bool),
	}
	if err := x.extract(); err != nil {
		return nil, jserr.Prefix(err, "Error when parsing typechecked function "+name+": ")
	}
	return x.sig, nil
}

type extractor struct {
	s     scanner
	sig   *Signature
	names map[string]bool
}

func (x *extractor) extract() error {
	bare, err := x.header()
	if err != nil {
		return err
	}
	if bare != "" {
		x.sig.Params = []*Param{{Name: bare}}
		x.sig.Arrow = true
		x.sig.BareArrow = true
		return nil
	}
	if err := x.params(); err != nil {
		return err
	}
	return x.trailer()
}

// header skips everything before the parameter list: keywords, the name,
// computed names and comments. It stops after the opening parenthesis, or
// returns the parameter name of an arrow function written without one.
func (x *extractor) header() (string, error) {
	s := &x.s
	last := ""
	for {
		if err := s.skipComments(true, true); err != nil {
			return "", err
		}
		switch c := s.peek(); {
		case s.eof():
			return "", jserr.Syntaxf("Unexpected end of input before the parameter list")
		case c == '(':
			s.off++
			return "", nil
		case s.at("=>"):
			if last == "" {
				return "", jserr.Syntaxf("Unexpected token '=>' when parsing type declaration")
			}
			return last, nil
		case c == '[':
			s.off++
			if err := s.skipBalanced(']'); err != nil {
				return "", err
			}
		case c == '"' || c == '\'' || c == '`':
			if err := s.skipString(); err != nil {
				return "", err
			}
		case c == '*' || c == '#':
			s.off++
		default:
			id := s.ident()
			if id == "" {
				return "", jserr.Syntaxf("Unexpected character '%s' when parsing type declaration", s.token())
			}
			last = id
		}
	}
}

// params reads parameters up to and including the closing parenthesis.
func (x *extractor) params() error {
	s := &x.s
	var parent *Param
	closing := false
	for {
		var p *Param
		if closing {
			p = parent
			p.Name = p.Label()
			parent = p.Parent
		} else {
			if err := s.skipComments(true, true); err != nil {
				return err
			}
			if s.eof() {
				return jserr.Syntaxf("Unexpected end of input when parsing parameters")
			}
			if s.peek() == ')' {
				if parent != nil {
					return jserr.Syntaxf("Unterminated destructuring pattern '%s'", parent.Label())
				}
				s.off++
				return nil
			}

			var err error
			parent, err = x.openPatterns(parent)
			if err != nil {
				return err
			}
			if parent != nil && (s.peek() == ']' || s.peek() == '}') {
				// Empty pattern or trailing comma.
				if err := x.closePattern(parent); err != nil {
					return err
				}
				closing = true
				continue
			}

			rest := false
			if s.at("...") {
				rest = true
				s.off += 3
				s.skipSpace()
			}
			name := s.ident()
			if name == "" {
				return jserr.Syntaxf("Unexpected token '%s' in parameter list", s.token())
			}
			if x.names[name] {
				return jserr.Syntaxf("Duplicate parameter name '%s' in typechecked function", name)
			}
			x.names[name] = true
			p = &Param{Name: name, Parent: parent, Rest: rest}
		}

		if err := x.annotation(p); err != nil {
			return err
		}
		if err := x.defaultValue(p); err != nil {
			return err
		}
		if p.Parent == nil {
			x.sig.Params = append(x.sig.Params, p)
		} else {
			p.Parent.Children = append(p.Parent.Children, p)
		}

		s.skipSpace()
		switch c := s.peek(); {
		case s.eof():
			return jserr.Syntaxf("Unexpected end of input when parsing parameters")
		case c == ',':
			s.off++
			closing = false
		case c == ']' || c == '}':
			if parent == nil {
				return jserr.Syntaxf("Unexpected token '%c' in parameter list", c)
			}
			if err := x.closePattern(parent); err != nil {
				return err
			}
			closing = true
		case c == ')':
			closing = false
		default:
			return jserr.Syntaxf("Unexpected token '%s' in parameter list", s.token())
		}
	}
}

// openPatterns consumes any number of destructuring openers, each optionally
// preceded by a rest marker, and returns the innermost pattern.
func (x *extractor) openPatterns(parent *Param) (*Param, error) {
	s := &x.s
	for {
		save := s.off
		s.skipSpace()
		rest := false
		if s.at("...") {
			rest = true
			s.off += 3
			s.skipSpace()
		}
		var kind Destructure
		switch s.peek() {
		case '[':
			kind = Array
		case '{':
			kind = Object
		default:
			s.off = save
			s.skipSpace()
			return parent, nil
		}
		s.off++
		parent = &Param{Parent: parent, Destructure: kind, Rest: rest}
		if err := s.skipComments(true, true); err != nil {
			return nil, err
		}
	}
}

func (x *extractor) closePattern(p *Param) error {
	c := x.s.peek()
	want := byte('}')
	if p.Destructure == Array {
		want = ']'
	}
	if c != want {
		return jserr.Syntaxf("Unexpected token '%c' in destructuring pattern '%s', expected '%c'", c, p.Label(), want)
	}
	x.s.off++
	return nil
}

// annotation attaches a type annotation directly following p, if any.
func (x *extractor) annotation(p *Param) error {
	s := &x.s
	if err := s.skipComments(false, true); err != nil {
		return err
	}
	if s.atAnnotation() {
		text, err := s.readAnnotation()
		if err != nil {
			return err
		}
		typ, err := typeexpr.Parse(text)
		if err != nil {
			return err
		}
		if typ.Contains(typeexpr.TypeVoid) {
			return jserr.Syntaxf("Parameter '%s' can't be of type 'void'", p.Name)
		}
		p.Type = typ
	}
	return s.skipComments(true, true)
}

// defaultValue skips a default value following p and marks p optional.
// Without one, p must not follow an optional sibling.
func (x *extractor) defaultValue(p *Param) error {
	s := &x.s
	s.skipSpace()
	if s.peek() == '=' && !s.at("=>") {
		s.off++
		if err := s.skipDefault(); err != nil {
			return err
		}
		p.Optional = true
		return nil
	}
	if p.Rest || (p.Parent != nil && p.Parent.Destructure == Object) {
		return nil
	}
	siblings := x.sig.Params
	if p.Parent != nil {
		siblings = p.Parent.Children
	}
	for _, sib := range siblings {
		if sib.Optional {
			return jserr.Syntaxf("Parameter '%s' is non-optional but is placed after an optional parameter", p.Name)
		}
	}
	return nil
}

// trailer reads the return annotation after the parameter list and decides
// whether the callable is an arrow function.
func (x *extractor) trailer() error {
	s := &x.s
	if err := s.skipComments(false, true); err != nil {
		return err
	}
	if s.atAnnotation() {
		text, err := s.readAnnotation()
		if err != nil {
			return err
		}
		typ, err := typeexpr.Parse(text)
		if err != nil {
			return err
		}
		x.sig.Return = typ
	}
	if err := s.skipComments(true, true); err != nil {
		return err
	}
	x.sig.Arrow = s.at("=>")
	return nil
}

// FindConstructor returns the source of the explicit constructor of a class,
// starting at the constructor keyword. It reports false when the class body
// declares no constructor.
func FindConstructor(classSrc string) (string, bool, error) {
	s := &scanner{src: classSrc}
	depth := 0
	for !s.eof() {
		switch c := s.peek(); {
		case s.at("//"):
			s.skipLine()
			continue
		case s.at("/*"):
			if err := s.skipBlock(); err != nil {
				return "", false, err
			}
			continue
		case c == '"' || c == '\'' || c == '`':
			if err := s.skipString(); err != nil {
				return "", false, err
			}
			continue
		case c == '{':
			depth++
		case c == '}':
			depth--
		case depth == 1 && s.at("constructor") && startsWord(classSrc, s.off):
			start := s.off
			s.off += len("constructor")
			if err := s.skipAnyComments(); err != nil {
				return "", false, err
			}
			if s.peek() == '(' {
				return classSrc[start:], true, nil
			}
			continue
		}
		s.off++
	}
	return "", false, nil
}

func startsWord(src string, off int) bool {
	if off == 0 {
		return true
	}
	prev := rune(src[off-1])
	return !isIdentRune(prev, false) && prev != '.' && prev != '#'
}

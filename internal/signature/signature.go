// Package signature recovers the annotated parameter list of a JavaScript
// callable from its source text.
//
// The extractor is a permissive lexer rather than a parser. It understands
// just enough of the language to find parameter names, destructuring
// patterns, default values and the /*: ... */ comments attached to them,
// and skips everything else.
package signature

import (
	"strings"

	"github.com/albertocavalcante/tcjs/internal/jserr"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// Destructure is the pattern kind of a parameter.
type Destructure int

const (
	None Destructure = iota
	Array
	Object
)

func (d Destructure) String() string {
	switch d {
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "none"
}

// Param describes one parameter, or one binding inside a destructuring
// pattern.
type Param struct {
	// Name is the bound identifier. For patterns it is the joined label of
	// the children, e.g. "{a, b}".
	Name string
	// Type is nil when the parameter is unchecked.
	Type *typeexpr.Expr
	// Parent is the enclosing pattern, nil for top-level parameters.
	Parent      *Param
	Children    []*Param
	Optional    bool
	Rest        bool
	Destructure Destructure
}

// Signature is the parameter list and return type of one callable.
type Signature struct {
	// Name labels the callable in diagnostics.
	Name   string
	Params []*Param
	Return *typeexpr.Expr
	// Arrow is set for arrow functions, which are invoked without a receiver.
	Arrow bool
	// BareArrow is set for arrow functions written without parentheses
	// around their single parameter.
	BareArrow bool
}

// Unbounded is returned by MaxArgs when any number of arguments is accepted.
const Unbounded = -1

// MinArgs returns the number of parameters that are neither optional nor rest.
func MinArgs(params []*Param) int {
	n := 0
	for _, p := range params {
		if !p.Optional && !p.Rest {
			n++
		}
	}
	return n
}

// MaxArgs returns the maximum number of arguments params accepts, or
// Unbounded when the list ends in a rest parameter.
func MaxArgs(params []*Param) int {
	if len(params) > 0 && params[len(params)-1].Rest {
		return Unbounded
	}
	return len(params)
}

// MinArgs returns the minimum arity of s.
func (s *Signature) MinArgs() int { return MinArgs(s.Params) }

// MaxArgs returns the maximum arity of s, or Unbounded.
func (s *Signature) MaxArgs() int {
	if s.BareArrow {
		return Unbounded
	}
	return MaxArgs(s.Params)
}

// Label returns the display label of a pattern built from its children.
func (p *Param) Label() string {
	names := make([]string, len(p.Children))
	for i, c := range p.Children {
		names[i] = c.Name
	}
	joined := strings.Join(names, ", ")
	if p.Destructure == Array {
		return "[" + joined + "]"
	}
	return "{" + joined + "}"
}

// Validate checks the structural rules Extract enforces on signatures that
// were built by hand:
// a required parameter may not follow an optional sibling (object pattern
// children and rest parameters are exempt), a rest parameter must be last,
// binding names are unique and children appear only under patterns.
func (s *Signature) Validate() error {
	seen := make(map[string]bool)
	err := validateList(s.Params, nil, seen)
	if err != nil {
		return jserr.Prefix(err, "Invalid signature for "+s.Name+": ")
	}
	return nil
}

func validateList(params []*Param, parent *Param, seen map[string]bool) error {
	optional := false
	for i, p := range params {
		if p.Parent != parent {
			return jserr.Syntaxf("parameter '%s' has the wrong parent", p.Name)
		}
		if p.Rest && i != len(params)-1 {
			return jserr.Syntaxf("rest parameter '%s' must be last", p.Name)
		}
		exempt := p.Rest || (parent != nil && parent.Destructure == Object)
		if !p.Optional && optional && !exempt {
			return jserr.Syntaxf("Parameter '%s' is non-optional but is placed after an optional parameter", p.Name)
		}
		optional = optional || p.Optional
		if p.Destructure == None {
			if len(p.Children) > 0 {
				return jserr.Syntaxf("parameter '%s' has children but is not a destructuring pattern", p.Name)
			}
			if p.Name == "" {
				return jserr.Syntaxf("parameter %d has no name", i)
			}
			if seen[p.Name] {
				return jserr.Syntaxf("Duplicate parameter name '%s'", p.Name)
			}
			seen[p.Name] = true
			continue
		}
		if err := validateList(p.Children, p, seen); err != nil {
			return err
		}
	}
	return nil
}

// Package typeexpr parses and matches the type expressions written inside
// /*: ... */ annotation comments.
//
// The grammar is small:
//
//	TypeExpr   := Atom ('|' Atom)*
//	Atom       := '[' (TypeExpr (',' TypeExpr)*)? ']' | DottedName ('<' TypeExpr (',' TypeExpr)? '>')?
//	DottedName := Identifier ('.' Identifier)*
//
// An Expr is immutable once parsed and can be shared freely. Matching is
// delegated to a Host, which knows how to inspect runtime values.
package typeexpr

import (
	"strings"
)

// Expr is a parsed type expression.
//
// A node is exactly one of: a union (more than one branch), a tuple, a generic
// container, a plain named type or a pseudo-type.
type Expr struct {
	src      string
	branches []*Expr // set only for unions
	raw      string
	generics []*Expr
	tuple    []*Expr
	isTuple  bool
}

// Source returns the trimmed annotation text the expression was parsed from.
func (e *Expr) Source() string { return e.src }

// IsUnion reports whether e is a union of two or more branches.
func (e *Expr) IsUnion() bool { return len(e.branches) > 1 }

// Branches returns the union branches of e. A non-union returns itself.
func (e *Expr) Branches() []*Expr {
	if e.IsUnion() {
		return e.branches
	}
	return []*Expr{e}
}

// RawType returns the dotted type name, or "" for a union.
// Tuples report Array.
func (e *Expr) RawType() string { return e.raw }

// Generics returns the generic arguments (0, 1 or 2).
func (e *Expr) Generics() []*Expr { return e.generics }

// IsTuple reports whether e is a fixed-arity tuple.
func (e *Expr) IsTuple() bool { return e.isTuple }

// Tuple returns the tuple element types.
func (e *Expr) Tuple() []*Expr { return e.tuple }

// IsPseudo reports whether e names a built-in pseudo-type such as var or NaN.
func (e *Expr) IsPseudo() bool { return !e.IsUnion() && !e.isTuple && IsPseudoType(e.raw) }

// KeyType returns the key type of a two-argument key-value container, or nil.
func (e *Expr) KeyType() *Expr {
	if len(e.generics) == 2 {
		return e.generics[0]
	}
	return nil
}

// ValueType returns the element type of a container (the value type for Map),
// or nil when no generics were given.
func (e *Expr) ValueType() *Expr {
	switch len(e.generics) {
	case 2:
		return e.generics[1]
	case 1:
		return e.generics[0]
	}
	return nil
}

// String returns the canonical text of e. Parsing it again yields an
// expression that matches the same values.
func (e *Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	switch {
	case e.IsUnion():
		for i, br := range e.branches {
			if i > 0 {
				b.WriteString(" | ")
			}
			br.write(b)
		}
	case e.isTuple:
		b.WriteByte('[')
		writeList(b, e.tuple)
		b.WriteByte(']')
	case len(e.generics) > 0:
		b.WriteString(e.raw)
		b.WriteByte('<')
		writeList(b, e.generics)
		b.WriteByte('>')
	default:
		b.WriteString(e.raw)
	}
}

func writeList(b *strings.Builder, list []*Expr) {
	for i, item := range list {
		if i > 0 {
			b.WriteString(", ")
		}
		item.write(b)
	}
}

// Contains reports whether any node of e, including nested generics and tuple
// elements, names the given raw type.
func (e *Expr) Contains(raw string) bool {
	if e.IsUnion() {
		for _, br := range e.branches {
			if br.Contains(raw) {
				return true
			}
		}
		return false
	}
	if !e.isTuple && e.raw == raw {
		return true
	}
	for _, sub := range e.generics {
		if sub.Contains(raw) {
			return true
		}
	}
	for _, sub := range e.tuple {
		if sub.Contains(raw) {
			return true
		}
	}
	return false
}

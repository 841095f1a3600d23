// Package typeexprtest provides an in-memory Host for tests that need to
// match type expressions without a JavaScript engine.
//
// Values are modeled with plain Go types: nil is null, Undefined is
// undefined, float64 is a number, and so on.
package typeexprtest

import (
	"math"

	"github.com/albertocavalcante/tcjs/internal/jserr"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// Undefined is the undefined value.
type Undefined struct{}

// Class is a constructible type.
type Class struct {
	Name    string
	Parent  *Class
	Statics map[string]any

	prim    typeexpr.Kind
	hasPrim bool
}

// Object is an instance of Class with own properties.
type Object struct {
	Class *Class
	Props map[string]any
}

// Func is a callable with the given calling convention.
type Func struct {
	Name string
	Kind typeexpr.CallKind
}

type (
	Array []any
	Set   []any
	Map   [][2]any
)

// Built-in classes known to every Host.
var (
	ObjectClass   = &Class{Name: "Object"}
	FunctionClass = &Class{Name: "Function", Parent: ObjectClass}
	NumberClass   = &Class{Name: "Number", Parent: ObjectClass, prim: typeexpr.KindNumber, hasPrim: true}
	StringClass   = &Class{Name: "String", Parent: ObjectClass, prim: typeexpr.KindString, hasPrim: true}
	BooleanClass  = &Class{Name: "Boolean", Parent: ObjectClass, prim: typeexpr.KindBoolean, hasPrim: true}
	ArrayClass    = &Class{Name: "Array", Parent: ObjectClass}
	SetClass      = &Class{Name: "Set", Parent: ObjectClass}
	MapClass      = &Class{Name: "Map", Parent: ObjectClass}
)

// Host implements typeexpr.Host over the value model above.
type Host struct {
	Globals map[string]any
}

// NewHost returns a Host whose global scope holds the built-in classes.
func NewHost() *Host {
	h := &Host{Globals: map[string]any{}}
	for _, c := range []*Class{ObjectClass, FunctionClass, NumberClass, StringClass, BooleanClass, ArrayClass, SetClass, MapClass} {
		h.Define(c)
	}
	return h
}

// Define binds c in the global scope under its name.
func (h *Host) Define(c *Class) { h.Globals[c.Name] = c }

// Env returns a matching environment using reg for registered names.
func (h *Host) Env(reg typeexpr.Resolver) typeexpr.Env {
	return typeexpr.Env{Host: h, Registry: reg}
}

func (h *Host) KindOf(v any) typeexpr.Kind {
	switch v.(type) {
	case nil:
		return typeexpr.KindNull
	case Undefined:
		return typeexpr.KindUndefined
	case float64:
		return typeexpr.KindNumber
	case string:
		return typeexpr.KindString
	case bool:
		return typeexpr.KindBoolean
	case *Class, Func:
		return typeexpr.KindFunction
	}
	return typeexpr.KindObject
}

func (h *Host) IsNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

func (h *Host) CallKind(v any) typeexpr.CallKind {
	switch v := v.(type) {
	case *Class:
		return typeexpr.ClassCall
	case Func:
		return v.Kind
	}
	return typeexpr.NotCallable
}

func (h *Host) IsClass(v any) bool {
	switch v := v.(type) {
	case *Class:
		return true
	case Func:
		return v.Kind == typeexpr.PlainCall
	}
	return false
}

func (h *Host) Global(name string) (any, bool) {
	v, ok := h.Globals[name]
	return v, ok
}

func (h *Host) Member(v any, name string) (any, bool) {
	switch v := v.(type) {
	case *Class:
		m, ok := v.Statics[name]
		return m, ok
	case *Object:
		m, ok := v.Props[name]
		return m, ok
	}
	return nil, false
}

func (h *Host) PrimitiveKind(typ any) (typeexpr.Kind, bool) {
	if c, ok := typ.(*Class); ok && c.hasPrim {
		return c.prim, true
	}
	return 0, false
}

func (h *Host) InstanceOf(v, typ any) (bool, error) {
	want, ok := typ.(*Class)
	if !ok {
		return false, nil
	}
	for c := classOf(v); c != nil; c = c.Parent {
		if c == want {
			return true, nil
		}
	}
	return false, nil
}

func (h *Host) Elements(v any) ([]any, error) {
	switch v := v.(type) {
	case Array:
		return v, nil
	case Set:
		return v, nil
	case Map:
		out := make([]any, len(v))
		for i, p := range v {
			out[i] = Array{p[0], p[1]}
		}
		return out, nil
	case string:
		var out []any
		for _, r := range v {
			out = append(out, string(r))
		}
		return out, nil
	}
	return nil, jserr.Typef("%s is not iterable", h.ConstructorName(v))
}

func (h *Host) Entries(v any) ([][2]any, error) {
	if m, ok := v.(Map); ok {
		return m, nil
	}
	items, err := h.Elements(v)
	if err != nil {
		return nil, err
	}
	out := make([][2]any, len(items))
	for i, item := range items {
		pair, ok := item.(Array)
		if !ok {
			return nil, jserr.Typef("Iterator value %v is not an entry object", item)
		}
		var p [2]any
		p[0], p[1] = Undefined{}, Undefined{}
		copy(p[:], pair)
		out[i] = p
	}
	return out, nil
}

// Has reports whether name is a property of v, like the in operator
// applied to Object(v).
func (h *Host) Has(v any, name string) bool {
	_, ok := h.Member(v, name)
	return ok
}

// Get returns property name of v, or Undefined.
func (h *Host) Get(v any, name string) any {
	if m, ok := h.Member(v, name); ok {
		return m
	}
	return Undefined{}
}

// NewArray returns items as an Array.
func (h *Host) NewArray(items []any) any { return Array(items) }

// ConstructorName returns the name of the constructor of v.
func (h *Host) ConstructorName(v any) string {
	if c := classOf(v); c != nil {
		return c.Name
	}
	return "undefined"
}

func classOf(v any) *Class {
	switch v := v.(type) {
	case float64:
		return NumberClass
	case string:
		return StringClass
	case bool:
		return BooleanClass
	case Array:
		return ArrayClass
	case Set:
		return SetClass
	case Map:
		return MapClass
	case *Object:
		return v.Class
	case *Class, Func:
		return FunctionClass
	}
	return nil
}

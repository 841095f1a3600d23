package typeexpr

import (
	"strings"

	"github.com/albertocavalcante/tcjs/internal/jserr"
)

// Value is a runtime value owned by the Host.
type Value = any

// Kind is the primitive tag of a runtime value, as reported by typeof.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindNumber
	KindString
	KindBoolean
	KindSymbol
	KindBigInt
	KindObject
	KindFunction
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindNull:      "null",
	KindNumber:    "number",
	KindString:    "string",
	KindBoolean:   "boolean",
	KindSymbol:    "symbol",
	KindBigInt:    "bigint",
	KindObject:    "object",
	KindFunction:  "function",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// CallKind is the calling convention of a callable value.
type CallKind int

const (
	NotCallable CallKind = iota
	PlainCall
	GeneratorCall
	AsyncCall
	AsyncGeneratorCall
	// ClassCall marks values written with class syntax. They are never
	// matched by the function pseudo-types.
	ClassCall
)

// Host inspects runtime values on behalf of the matcher.
type Host interface {
	KindOf(v Value) Kind
	IsNaN(v Value) bool
	CallKind(v Value) CallKind
	// IsClass reports whether v is constructible, has its own prototype and
	// is not a generator or async generator function.
	IsClass(v Value) bool
	// Global resolves a name in the ambient global scope. Undefined bindings
	// report false.
	Global(name string) (Value, bool)
	// Member returns the property name of v. Nullish v or an undefined
	// property report false.
	Member(v Value, name string) (Value, bool)
	// PrimitiveKind reports which primitive tag the built-in wrapper
	// constructor typ stands for (Number, String, Boolean, Symbol, BigInt).
	PrimitiveKind(typ Value) (Kind, bool)
	InstanceOf(v, typ Value) (bool, error)
	// Elements iterates v and returns the produced values.
	Elements(v Value) ([]Value, error)
	// Entries iterates v as key/value pairs.
	Entries(v Value) ([][2]Value, error)
}

// Resolver looks up names registered outside the ambient global scope.
type Resolver interface {
	Lookup(name string) (Value, bool)
}

// Env is the context a type expression is matched in.
type Env struct {
	Host     Host
	Registry Resolver // may be nil
}

// IsInstance reports whether v is a value of type e.
//
// A *jserr.ReferenceError is returned when a named type cannot be resolved
// and a *jserr.TypeError when it resolves to something that is not a class.
func (e *Expr) IsInstance(env Env, v Value) (bool, error) {
	if e.IsUnion() {
		for _, br := range e.branches {
			ok, err := br.IsInstance(env, v)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}

	h := env.Host
	switch e.raw {
	case TypeVar:
		return true, nil
	case TypeNull:
		return h.KindOf(v) == KindNull, nil
	case TypeUndefined, TypeVoid:
		return h.KindOf(v) == KindUndefined, nil
	case TypeNaN:
		return h.IsNaN(v), nil
	case TypeFunction:
		return h.CallKind(v) == PlainCall, nil
	case TypeGenerator:
		return h.CallKind(v) == GeneratorCall, nil
	case TypeAsync:
		return h.CallKind(v) == AsyncCall, nil
	case TypeAsyncGenerator:
		return h.CallKind(v) == AsyncGeneratorCall, nil
	case TypeClass:
		return h.IsClass(v), nil
	}

	typ, err := e.resolve(env)
	if err != nil {
		return false, err
	}
	if ok, err := IsInstanceOf(env, v, typ); err != nil || !ok {
		return false, err
	}

	switch {
	case e.isTuple:
		return e.matchTuple(env, v)
	case len(e.generics) == 2 || (len(e.generics) == 1 && e.raw == ContainerMap):
		return e.matchEntries(env, v)
	case len(e.generics) == 1:
		return e.matchElements(env, v)
	}
	return true, nil
}

// IsInstanceOf reports whether v is an instance of the resolved class typ.
// Primitive wrapper classes match by primitive tag; Number excludes NaN.
func IsInstanceOf(env Env, v, typ Value) (bool, error) {
	h := env.Host
	switch h.KindOf(v) {
	case KindNull, KindUndefined:
		return false, nil
	}
	if k, ok := h.PrimitiveKind(typ); ok {
		if h.KindOf(v) != k {
			return false, nil
		}
		return k != KindNumber || !h.IsNaN(v), nil
	}
	return h.InstanceOf(v, typ)
}

func (e *Expr) resolve(env Env) (Value, error) {
	segs := strings.Split(e.raw, ".")
	var (
		typ Value
		ok  bool
	)
	if env.Registry != nil {
		typ, ok = env.Registry.Lookup(segs[0])
	}
	if !ok {
		typ, ok = env.Host.Global(segs[0])
	}
	for _, seg := range segs[1:] {
		if !ok {
			break
		}
		typ, ok = env.Host.Member(typ, seg)
	}
	if !ok {
		return nil, jserr.Referencef("'%s' in type declaration is not defined", e.raw)
	}
	if !env.Host.IsClass(typ) {
		return nil, jserr.Typef("'%s' in type declaration does not name a type", e.raw)
	}
	return typ, nil
}

func (e *Expr) matchTuple(env Env, v Value) (bool, error) {
	items, err := env.Host.Elements(v)
	if err != nil {
		return false, err
	}
	if len(items) != len(e.tuple) {
		return false, nil
	}
	for i, item := range items {
		if ok, err := e.tuple[i].IsInstance(env, item); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (e *Expr) matchElements(env Env, v Value) (bool, error) {
	items, err := env.Host.Elements(v)
	if err != nil {
		return false, err
	}
	elem := e.generics[0]
	for _, item := range items {
		if ok, err := elem.IsInstance(env, item); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (e *Expr) matchEntries(env Env, v Value) (bool, error) {
	pairs, err := env.Host.Entries(v)
	if err != nil {
		return false, err
	}
	key, val := e.KeyType(), e.ValueType()
	for _, p := range pairs {
		if key != nil {
			if ok, err := key.IsInstance(env, p[0]); err != nil || !ok {
				return false, err
			}
		}
		if ok, err := val.IsInstance(env, p[1]); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

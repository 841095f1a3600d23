// Package checker validates call arguments and return values against an
// extracted signature.
package checker

import (
	"strings"

	"github.com/albertocavalcante/tcjs/internal/jserr"
	"github.com/albertocavalcante/tcjs/internal/signature"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// Value is a runtime value owned by the Host.
type Value = typeexpr.Value

// Host extends typeexpr.Host with the object operations the checker needs.
type Host interface {
	typeexpr.Host
	// Has reports whether name is a property of Object(v).
	Has(v Value, name string) bool
	Get(v Value, name string) Value
	NewArray(items []Value) Value
	// ConstructorName returns v.constructor.name, or "undefined".
	ConstructorName(v Value) string
}

// Checker checks calls. It holds no state besides its environment and may be
// shared between goroutines if its Host allows it.
type Checker struct {
	Host     Host
	Registry typeexpr.Resolver
}

// New returns a Checker resolving names through reg, then the global scope.
func New(h Host, reg typeexpr.Resolver) *Checker {
	return &Checker{Host: h, Registry: reg}
}

// Env returns the matching environment of c.
func (c *Checker) Env() typeexpr.Env {
	return typeexpr.Env{Host: c.Host, Registry: c.Registry}
}

// CheckCall checks args against the parameters of sig.
func (c *Checker) CheckCall(sig *signature.Signature, args []Value) error {
	return c.CheckArguments(args, sig.Params, sig.Name, sig.BareArrow)
}

// CheckArguments checks arity and the type of each positional argument,
// recursing into destructuring patterns. When unbounded is set there is no
// maximum arity.
func (c *Checker) CheckArguments(args []Value, params []*signature.Param, label string, unbounded bool) error {
	minArgs, maxArgs := signature.MinArgs(params), signature.MaxArgs(params)
	if unbounded {
		maxArgs = signature.Unbounded
	}
	if len(args) < minArgs {
		return jserr.Typef("%d arguments passed to %s, but at least %d were expected.", len(args), label, minArgs)
	}
	if maxArgs != signature.Unbounded && len(args) > maxArgs {
		return jserr.Typef("%d arguments passed to %s, but at most %d were expected.", len(args), label, maxArgs)
	}

	for i := 0; i < len(params) && (i < len(args) || params[i].Rest); i++ {
		p := params[i]
		var arg Value
		if p.Rest {
			var tail []Value
			if i < len(args) {
				tail = args[i:]
			}
			arg = c.Host.NewArray(tail)
		} else {
			arg = args[i]
		}
		if err := c.checkParam(p, arg, label); err != nil {
			return err
		}
	}
	return nil
}

// checkNamed checks the children of an object pattern against the
// properties of obj.
func (c *Checker) checkNamed(obj Value, params []*signature.Param, label string) error {
	for _, p := range params {
		if !c.Host.Has(obj, p.Name) {
			if p.Optional {
				continue
			}
			return jserr.Typef("Parameter passed as %s does not have a property named %s", label, p.Name)
		}
		if err := c.checkParam(p, c.Host.Get(obj, p.Name), label); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkParam(p *signature.Param, arg Value, label string) error {
	if p.Type != nil {
		ok, err := p.Type.IsInstance(c.Env(), arg)
		if err != nil {
			return err
		}
		if !ok {
			return jserr.Typef("Expected parameter '%s' of %s to be of type '%s', got '%s'", p.Name, label, p.Type.Source(), c.TypeName(arg))
		}
	}

	inner := "destructured parameter '" + p.Name + "' of " + label
	switch p.Destructure {
	case signature.Array:
		items, err := c.Host.Elements(arg)
		if err != nil {
			return &jserr.TypeError{Msg: "Parameter passed as " + inner + " is not iterable", Cause: err}
		}
		return c.CheckArguments(items, p.Children, inner, false)
	case signature.Object:
		return c.checkNamed(arg, p.Children, inner)
	}
	return nil
}

// CheckReturnValue checks v against ret. A nil ret accepts anything.
func (c *Checker) CheckReturnValue(v Value, ret *typeexpr.Expr, label string) error {
	if ret == nil {
		return nil
	}
	ok, err := ret.IsInstance(c.Env(), v)
	if err != nil {
		return err
	}
	if !ok {
		return jserr.Typef("Expected return value of %s to be of type '%s', got '%s'", label, ret.Source(), c.TypeName(v))
	}
	return nil
}

// TypeName describes the runtime type of v for diagnostics. Non-empty
// arrays and sets list their element types, as in Array<Number | String>,
// and maps list key and value types.
func (c *Checker) TypeName(v Value) string {
	h := c.Host
	if h.KindOf(v) == typeexpr.KindNull {
		return "null"
	}
	switch {
	case c.isA(v, typeexpr.ContainerArray), c.isA(v, typeexpr.ContainerSet):
		if items, err := h.Elements(v); err == nil && len(items) > 0 {
			var names nameSet
			for _, item := range items {
				names.add(c.itemName(item))
			}
			return h.ConstructorName(v) + "<" + names.String() + ">"
		}
	case c.isA(v, typeexpr.ContainerMap):
		if pairs, err := h.Entries(v); err == nil && len(pairs) > 0 {
			var keys, values nameSet
			for _, p := range pairs {
				keys.add(c.itemName(p[0]))
				values.add(c.itemName(p[1]))
			}
			return h.ConstructorName(v) + "<" + keys.String() + ", " + values.String() + ">"
		}
	}
	return h.ConstructorName(v)
}

func (c *Checker) itemName(v Value) string {
	if c.Host.KindOf(v) == typeexpr.KindNull {
		return "null"
	}
	return c.Host.ConstructorName(v)
}

// isA reports whether v is an instance of the global class name.
func (c *Checker) isA(v Value, name string) bool {
	typ, ok := c.Host.Global(name)
	if !ok {
		return false
	}
	switch c.Host.KindOf(v) {
	case typeexpr.KindObject, typeexpr.KindFunction:
	default:
		return false
	}
	is, err := c.Host.InstanceOf(v, typ)
	return err == nil && is
}

// nameSet is an insertion-ordered set of type names.
type nameSet struct {
	names []string
}

func (s *nameSet) add(name string) {
	for _, n := range s.names {
		if n == name {
			return
		}
	}
	s.names = append(s.names, name)
}

func (s *nameSet) String() string { return strings.Join(s.names, " | ") }

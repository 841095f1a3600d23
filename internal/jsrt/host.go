package jsrt

import (
	"math"
	"strconv"

	"github.com/dop251/goja"

	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// host implements checker.Host for a goja runtime. Values crossing the
// interface are goja.Value; a nil interface stands for undefined.
type host struct {
	vm   *goja.Runtime
	glue *glue

	// primitives maps the built-in wrapper constructors to their tags.
	primitives []primitive
}

type primitive struct {
	ctor goja.Value
	kind typeexpr.Kind
}

func newHost(vm *goja.Runtime, g *glue) *host {
	h := &host{vm: vm, glue: g}
	for _, p := range []struct {
		name string
		kind typeexpr.Kind
	}{
		{"Number", typeexpr.KindNumber},
		{"String", typeexpr.KindString},
		{"Boolean", typeexpr.KindBoolean},
		{"Symbol", typeexpr.KindSymbol},
		{"BigInt", typeexpr.KindBigInt},
	} {
		if ctor, ok := h.Global(p.name); ok {
			h.primitives = append(h.primitives, primitive{ctor: ctor.(goja.Value), kind: p.kind})
		}
	}
	return h
}

func jsValue(v any) goja.Value {
	if jv, ok := v.(goja.Value); ok && jv != nil {
		return jv
	}
	return goja.Undefined()
}

func (h *host) call(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	return fn(goja.Undefined(), args...)
}

var kindsByName = map[string]typeexpr.Kind{
	"undefined": typeexpr.KindUndefined,
	"null":      typeexpr.KindNull,
	"number":    typeexpr.KindNumber,
	"string":    typeexpr.KindString,
	"boolean":   typeexpr.KindBoolean,
	"symbol":    typeexpr.KindSymbol,
	"bigint":    typeexpr.KindBigInt,
	"object":    typeexpr.KindObject,
	"function":  typeexpr.KindFunction,
}

func (h *host) KindOf(v any) typeexpr.Kind {
	jv := jsValue(v)
	switch {
	case goja.IsUndefined(jv):
		return typeexpr.KindUndefined
	case goja.IsNull(jv):
		return typeexpr.KindNull
	}
	res, err := h.call(h.glue.typeOf, jv)
	if err != nil {
		return typeexpr.KindObject
	}
	if k, ok := kindsByName[res.String()]; ok {
		return k
	}
	return typeexpr.KindObject
}

func (h *host) IsNaN(v any) bool {
	return h.KindOf(v) == typeexpr.KindNumber && math.IsNaN(jsValue(v).ToFloat())
}

func (h *host) CallKind(v any) typeexpr.CallKind {
	res, err := h.call(h.glue.callKind, jsValue(v))
	if err != nil {
		return typeexpr.NotCallable
	}
	switch res.ToInteger() {
	case 1:
		return typeexpr.PlainCall
	case 2:
		return typeexpr.GeneratorCall
	case 3:
		return typeexpr.AsyncCall
	case 4:
		return typeexpr.AsyncGeneratorCall
	case 5:
		return typeexpr.ClassCall
	}
	return typeexpr.NotCallable
}

func (h *host) IsClass(v any) bool {
	res, err := h.call(h.glue.isClass, jsValue(v))
	return err == nil && res.ToBoolean()
}

func (h *host) Global(name string) (any, bool) {
	v := h.vm.GlobalObject().Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	return v, true
}

func (h *host) Member(v any, name string) (any, bool) {
	jv := jsValue(v)
	if goja.IsUndefined(jv) || goja.IsNull(jv) {
		return nil, false
	}
	m := jv.ToObject(h.vm).Get(name)
	if m == nil || goja.IsUndefined(m) {
		return nil, false
	}
	return m, true
}

func (h *host) PrimitiveKind(typ any) (typeexpr.Kind, bool) {
	jt := jsValue(typ)
	for _, p := range h.primitives {
		if p.ctor.SameAs(jt) {
			return p.kind, true
		}
	}
	return 0, false
}

func (h *host) InstanceOf(v, typ any) (bool, error) {
	res, err := h.call(h.glue.instanceOf, jsValue(v), jsValue(typ))
	if err != nil {
		return false, err
	}
	return res.ToBoolean(), nil
}

func (h *host) Elements(v any) ([]any, error) {
	res, err := h.call(h.glue.toArray, jsValue(v))
	if err != nil {
		return nil, err
	}
	return h.items(res), nil
}

func (h *host) Entries(v any) ([][2]any, error) {
	res, err := h.call(h.glue.entries, jsValue(v))
	if err != nil {
		return nil, err
	}
	items := h.items(res)
	pairs := make([][2]any, len(items))
	for i, item := range items {
		kv := h.items(item.(goja.Value))
		pairs[i] = [2]any{kv[0], kv[1]}
	}
	return pairs, nil
}

// items copies the elements of a JavaScript array.
func (h *host) items(arr goja.Value) []any {
	obj := arr.ToObject(h.vm)
	n := int(obj.Get("length").ToInteger())
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = jsValue(obj.Get(strconv.Itoa(i)))
	}
	return out
}

func (h *host) Has(v any, name string) bool {
	res, err := h.call(h.glue.has, jsValue(v), h.vm.ToValue(name))
	return err == nil && res.ToBoolean()
}

func (h *host) Get(v any, name string) any {
	res, err := h.call(h.glue.get, jsValue(v), h.vm.ToValue(name))
	if err != nil {
		return goja.Undefined()
	}
	return res
}

func (h *host) NewArray(items []any) any {
	return h.vm.NewArray(items...)
}

func (h *host) ConstructorName(v any) string {
	res, err := h.call(h.glue.constructorName, jsValue(v))
	if err != nil {
		return "undefined"
	}
	return res.String()
}

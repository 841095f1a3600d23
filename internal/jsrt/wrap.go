package jsrt

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/albertocavalcante/tcjs/internal/jserr"
	"github.com/albertocavalcante/tcjs/internal/signature"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// Kinds accepted by Wrap.
const (
	KindFunction = "function"
	KindMethod   = "method"
	KindGetter   = "getter"
	KindSetter   = "setter"
	KindClass    = "class"
)

// wrapper produces the checked replacement for one kind of callable.
type wrapper interface {
	wrap(r *Runtime) (goja.Value, error)
}

type plainCallable struct {
	fn   goja.Value
	name string
}

type accessorGetter struct {
	fn   goja.Value
	name string
}

type accessorSetter struct {
	fn   goja.Value
	name string
}

type constructible struct {
	cls  goja.Value
	name string
}

func variantOf(fn goja.Value, name, kind string) (wrapper, error) {
	switch kind {
	case KindFunction, KindMethod:
		return plainCallable{fn: fn, name: name}, nil
	case KindGetter:
		return accessorGetter{fn: fn, name: name}, nil
	case KindSetter:
		return accessorSetter{fn: fn, name: name}, nil
	case KindClass:
		return constructible{cls: fn, name: name}, nil
	}
	return nil, jserr.Typef("typechecked is only allowed on classes, functions, methods, getters or setters, got %s", kind)
}

// Wrap returns a checked replacement for fn. An empty name defaults to
// fn.name; an empty kind is class for class syntax and function otherwise.
// Annotation and signature errors are reported here, never on first call.
func (r *Runtime) Wrap(fn goja.Value, name, kind string) (goja.Value, error) {
	if name == "" {
		if n, ok := r.host.Member(fn, "name"); ok {
			name = jsValue(n).String()
		}
	}
	if kind == "" {
		kind = KindFunction
		if r.host.CallKind(fn) == typeexpr.ClassCall {
			kind = KindClass
		}
	}
	w, err := variantOf(fn, name, kind)
	if err != nil {
		return nil, err
	}
	return w.wrap(r)
}

func (w plainCallable) wrap(r *Runtime) (goja.Value, error) {
	return r.wrapCallable(w.fn, w.name, false)
}

func (w accessorGetter) wrap(r *Runtime) (goja.Value, error) {
	return r.wrapCallable(w.fn, w.name, false)
}

func (w accessorSetter) wrap(r *Runtime) (goja.Value, error) {
	return r.wrapCallable(w.fn, w.name, true)
}

func (w constructible) wrap(r *Runtime) (goja.Value, error) {
	if w.name != "" && !strings.Contains(w.name, ".") {
		if err := r.registry.Register(w.name, w.cls); err != nil {
			return nil, err
		}
	}
	if err := r.wrapMembers(w.cls, w.name); err != nil {
		return nil, err
	}

	src, err := r.source(w.cls)
	if err != nil {
		return nil, err
	}
	ctor, ok, err := signature.FindConstructor(src)
	if err != nil {
		return nil, jserr.Prefix(err, "Error when parsing typechecked class "+readableName(w.name)+": ")
	}
	if !ok {
		return w.cls, nil
	}
	sig, err := signature.Extract(readableName(w.name)+" constructor", ctor)
	if err != nil {
		return nil, err
	}
	if sig.Return != nil {
		return nil, jserr.Typef("Constructors can't have return types")
	}
	sub, err := r.glue.subclass(goja.Undefined(), w.cls, r.argsChecker(sig), r.vm.ToValue(baseName(w.name)))
	if err != nil {
		return nil, err
	}
	r.checked[sub.ToObject(r.vm)] = w.cls
	return sub, nil
}

func (r *Runtime) wrapCallable(fn goja.Value, name string, setter bool) (goja.Value, error) {
	src, err := r.source(fn)
	if err != nil {
		return nil, err
	}
	sig, err := signature.Extract(readableName(name), src)
	if err != nil {
		return nil, err
	}
	if setter && sig.Return != nil {
		return nil, jserr.Typef("Setters can't have return types")
	}

	factory := "plain"
	switch r.host.CallKind(fn) {
	case typeexpr.AsyncCall:
		factory = "async"
	case typeexpr.GeneratorCall:
		factory = "generator"
	case typeexpr.AsyncGeneratorCall:
		factory = "asyncGenerator"
	}

	opts := r.vm.NewObject()
	_ = opts.Set("arrow", sig.Arrow)
	_ = opts.Set("setter", setter)
	_ = opts.Set("name", baseName(name))

	checkReturn := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return r.result(nil, r.checker.CheckReturnValue(call.Argument(0), sig.Return, sig.Name))
	})
	return r.glue.wrap(goja.Undefined(), r.vm.ToValue(factory), fn, r.argsChecker(sig), checkReturn, opts)
}

// argsChecker returns a native function checking an argument array
// against sig.
func (r *Runtime) argsChecker(sig *signature.Signature) goja.Value {
	return r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return r.result(nil, r.checker.CheckCall(sig, r.host.items(call.Argument(0))))
	})
}

// wrapMembers replaces the static and prototype methods and accessors of
// cls with checked versions. Non-writable members stay unchecked.
func (r *Runtime) wrapMembers(cls goja.Value, className string) error {
	list, err := r.glue.members(goja.Undefined(), cls)
	if err != nil {
		return err
	}
	isFunc := func(v goja.Value) bool {
		return r.host.KindOf(v) == typeexpr.KindFunction
	}
	for _, item := range r.host.items(list) {
		m := jsValue(item).ToObject(r.vm)
		key := m.Get("name").String()
		target := m.Get("target")
		value, get, set := jsValue(m.Get("value")), jsValue(m.Get("get")), jsValue(m.Get("set"))
		qualified := className + "." + key

		if !m.Get("writable").ToBoolean() {
			if !isFunc(value) && !isFunc(get) && !isFunc(set) {
				continue
			}
			if r.strict {
				return jserr.Typef("%s is not writable and can't be typechecked.", qualified)
			}
			r.warn("%s is not writable and can't be typechecked.", qualified)
			continue
		}

		switch {
		case isFunc(value):
			kind := KindMethod
			if r.host.CallKind(value) == typeexpr.ClassCall {
				kind = KindClass
			}
			wrapped, err := r.Wrap(value, qualified, kind)
			if err != nil {
				return err
			}
			if _, err := r.glue.assign(goja.Undefined(), target, r.vm.ToValue(key), wrapped); err != nil {
				return err
			}
		case isFunc(get) || isFunc(set):
			g, s := goja.Undefined(), goja.Undefined()
			if isFunc(get) {
				if g, err = (accessorGetter{fn: get, name: qualified}).wrap(r); err != nil {
					return err
				}
			}
			if isFunc(set) {
				if s, err = (accessorSetter{fn: set, name: qualified}).wrap(r); err != nil {
					return err
				}
			}
			if _, err := r.glue.defineAccessor(goja.Undefined(), target, r.vm.ToValue(key), g, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runtime) source(fn goja.Value) (string, error) {
	v, err := r.glue.source(goja.Undefined(), fn)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// Package jsrt binds the type checker to a goja JavaScript runtime.
//
// Install defines a frozen global typechecked function:
//
//	const area = typechecked(function area(r /*: Number */) /*: Number */ {
//		return Math.PI * r * r;
//	});
//
// typechecked.isinstance(value, type) matches a value against a class or an
// annotation string, and typechecked.register(cls) makes a class visible to
// annotations by name.
package jsrt

import (
	"errors"
	"log"
	"strings"

	"github.com/dop251/goja"

	"github.com/albertocavalcante/tcjs/internal/checker"
	"github.com/albertocavalcante/tcjs/internal/jserr"
	"github.com/albertocavalcante/tcjs/internal/registry"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
)

// Runtime owns the checker state for one goja runtime. Like the goja
// runtime itself it must not be used from more than one goroutine at a time.
type Runtime struct {
	vm       *goja.Runtime
	glue     *glue
	host     *host
	registry *registry.Table
	cache    *typeexpr.Cache
	checker  *checker.Checker
	warn     func(format string, args ...any)
	strict   bool

	// checked maps the subclasses returned for classes with a checked
	// constructor back to the class they extend.
	checked map[*goja.Object]goja.Value
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithWarn sets the sink for warnings about members that cannot be
// wrapped. The default is log.Printf.
func WithWarn(warn func(format string, args ...any)) Option {
	return func(r *Runtime) { r.warn = warn }
}

// WithStrict makes members that cannot be wrapped a TypeError instead of a
// warning.
func WithStrict(strict bool) Option {
	return func(r *Runtime) { r.strict = strict }
}

// WithCache shares a parse cache between runtimes.
func WithCache(c *typeexpr.Cache) Option {
	return func(r *Runtime) { r.cache = c }
}

// New prepares vm for type checking. Call Install to expose the
// typechecked global.
func New(vm *goja.Runtime, opts ...Option) (*Runtime, error) {
	g, err := loadGlue(vm)
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		vm:    vm,
		glue:  g,
		host:  newHost(vm, g),
		cache:   &typeexpr.Cache{},
		warn:    log.Printf,
		checked: make(map[*goja.Object]goja.Value),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registry = registry.New(
		func(a, b any) bool { return jsValue(a).SameAs(jsValue(b)) },
		func(name string) bool {
			_, ok := r.host.Global(name)
			return ok
		},
	)
	r.checker = checker.New(r.host, r.registry)
	return r, nil
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime { return r.vm }

// Registry returns the class registration table of r.
func (r *Runtime) Registry() *registry.Table { return r.registry }

// Checker returns the call checker bound to r.
func (r *Runtime) Checker() *checker.Checker { return r.checker }

// Install defines the typechecked global.
func (r *Runtime) Install() error {
	native := r.vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"wrap":       r.nativeWrap,
		"isinstance": r.nativeIsInstance,
		"register":   r.nativeRegister,
	} {
		if err := native.Set(name, fn); err != nil {
			return err
		}
	}
	_, err := r.glue.install(goja.Undefined(), native)
	return err
}

func (r *Runtime) nativeWrap(call goja.FunctionCall) goja.Value {
	fn := call.Argument(0)
	if r.host.KindOf(fn) != typeexpr.KindFunction {
		return r.result(nil, jserr.Typef("Expected parameter 'undecorated' of function 'typechecked' to be of type 'function | class', got '%s'", r.checker.TypeName(fn)))
	}

	name, kind := "", ""
	if opts := call.Argument(1); !goja.IsUndefined(opts) && !goja.IsNull(opts) {
		o := opts.ToObject(r.vm)
		var err error
		if name, err = r.stringOption(o, "name"); err != nil {
			return r.result(nil, err)
		}
		if kind, err = r.stringOption(o, "kind"); err != nil {
			return r.result(nil, err)
		}
	}
	return r.result(r.Wrap(fn, name, kind))
}

func (r *Runtime) stringOption(o *goja.Object, key string) (string, error) {
	v := o.Get(key)
	if v == nil || goja.IsUndefined(v) {
		return "", nil
	}
	if r.host.KindOf(v) != typeexpr.KindString {
		return "", jserr.Typef("Expected parameter '%s' of function 'typechecked' to be of type 'String', got '%s'", key, r.checker.TypeName(v))
	}
	return v.String(), nil
}

func (r *Runtime) nativeIsInstance(call goja.FunctionCall) goja.Value {
	ok, err := r.IsInstance(call.Argument(0), call.Argument(1))
	if err != nil {
		return r.result(nil, err)
	}
	return r.result(r.vm.ToValue(ok), nil)
}

func (r *Runtime) nativeRegister(call goja.FunctionCall) goja.Value {
	return r.result(nil, r.Register(call.Argument(0)))
}

// IsInstance matches obj against typ, which may be null, undefined, a class
// or an annotation string.
func (r *Runtime) IsInstance(obj, typ goja.Value) (bool, error) {
	env := r.checker.Env()
	switch {
	case goja.IsNull(typ):
		return goja.IsNull(obj), nil
	case goja.IsUndefined(typ):
		return goja.IsUndefined(obj), nil
	case r.host.IsClass(typ):
		return typeexpr.IsInstanceOf(env, obj, typ)
	case r.host.KindOf(typ) == typeexpr.KindString:
		e, err := r.cache.Parse(typ.String())
		if err != nil {
			return false, err
		}
		return e.IsInstance(env, obj)
	}
	return false, jserr.Typef("Expected parameter 'type' of function 'typechecked.isinstance' to be of type 'String | class | null | undefined', got '%s'", r.checker.TypeName(typ))
}

// Register makes cls resolvable by its name in annotations. A class
// returned by typechecked registers the class it was made from.
func (r *Runtime) Register(cls goja.Value) error {
	if !r.host.IsClass(cls) {
		return jserr.Typef("Expected parameter 'cls' of function 'typechecked.register' to be of type 'class', got '%s'", r.checker.TypeName(cls))
	}
	if orig, ok := r.checked[cls.ToObject(r.vm)]; ok {
		cls = orig
	}
	name, _ := r.host.Member(cls, "name")
	return r.registry.Register(jsValue(name).String(), cls)
}

// result packs a value or an error into the object glue.js raise expects.
// Exceptions thrown by JavaScript code are passed through unchanged.
func (r *Runtime) result(v goja.Value, err error) goja.Value {
	o := r.vm.NewObject()
	var (
		je  jserr.Error
		exc *goja.Exception
	)
	switch {
	case err == nil:
		if v == nil {
			v = goja.Undefined()
		}
		_ = o.Set("value", v)
	case !errors.As(err, &je) && errors.As(err, &exc):
		_ = o.Set("thrown", exc.Value())
	default:
		e := r.vm.NewObject()
		_ = e.Set("kind", jserr.KindOf(err))
		_ = e.Set("message", jserr.MessageOf(err))
		_ = o.Set("error", e)
	}
	return o
}

// readableName formats a callable name for diagnostics.
func readableName(name string) string {
	if name == "" {
		return "<anonymous>"
	}
	return "'" + name + "'"
}

// baseName returns the last dotted segment of name.
func baseName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

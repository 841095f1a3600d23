package jsrt

import (
	_ "embed"
	"fmt"

	"github.com/dop251/goja"
)

//go:embed glue.js
var glueSource string

// glue holds the JavaScript helper functions evaluated from glue.js.
type glue struct {
	typeOf          goja.Callable
	callKind        goja.Callable
	isClass         goja.Callable
	instanceOf      goja.Callable
	has             goja.Callable
	get             goja.Callable
	toArray         goja.Callable
	entries         goja.Callable
	constructorName goja.Callable
	source          goja.Callable
	members         goja.Callable
	defineAccessor  goja.Callable
	assign          goja.Callable
	wrap            goja.Callable
	subclass        goja.Callable
	install         goja.Callable
}

func loadGlue(vm *goja.Runtime) (*glue, error) {
	v, err := vm.RunScript("tcjs:glue.js", glueSource)
	if err != nil {
		return nil, fmt.Errorf("loading host helpers: %w", err)
	}
	table := v.ToObject(vm)

	g := &glue{}
	fields := []struct {
		name string
		dst  *goja.Callable
	}{
		{"typeOf", &g.typeOf},
		{"callKind", &g.callKind},
		{"isClass", &g.isClass},
		{"instanceOf", &g.instanceOf},
		{"has", &g.has},
		{"get", &g.get},
		{"toArray", &g.toArray},
		{"entries", &g.entries},
		{"constructorName", &g.constructorName},
		{"source", &g.source},
		{"members", &g.members},
		{"defineAccessor", &g.defineAccessor},
		{"assign", &g.assign},
		{"wrap", &g.wrap},
		{"subclass", &g.subclass},
		{"install", &g.install},
	}
	for _, f := range fields {
		fn, ok := goja.AssertFunction(table.Get(f.name))
		if !ok {
			return nil, fmt.Errorf("host helper %q is not a function", f.name)
		}
		*f.dst = fn
	}
	return g, nil
}

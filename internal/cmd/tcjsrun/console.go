package tcjsrun

import (
	"io"
	"strings"

	"github.com/dop251/goja"

	"github.com/albertocavalcante/tcjs/internal/cli"
)

// installConsole defines a console global whose log and info methods write
// to stdout and whose warn and error methods write to stderr.
func installConsole(vm *goja.Runtime, stdout, stderr io.Writer) error {
	console := vm.NewObject()
	printer := func(w io.Writer) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = inspect(vm, arg)
			}
			cli.Writeln(w, strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	for name, w := range map[string]io.Writer{
		"log":   stdout,
		"info":  stdout,
		"debug": stdout,
		"warn":  stderr,
		"error": stderr,
	} {
		if err := console.Set(name, printer(w)); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

// inspect renders v for console output. Strings print bare, plain objects
// and arrays as JSON, everything else through String.
func inspect(vm *goja.Runtime, v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return v.String()
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return v.String()
	}
	switch obj.ClassName() {
	case "Object", "Array":
	default:
		return v.String()
	}
	data, err := obj.MarshalJSON()
	if err != nil {
		return v.String()
	}
	return string(data)
}

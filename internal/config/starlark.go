package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.starlark.net/starlark"
)

// DefaultStarlarkTimeout is the default execution timeout for Starlark config files.
const DefaultStarlarkTimeout = 5 * time.Second

// ErrConfigureNotFound is returned when tcjs.star doesn't define a configure() function.
var ErrConfigureNotFound = errors.New("tcjs.star must define a configure() function")

// ErrConfigureReturnType is returned when configure() doesn't return a dict.
var ErrConfigureReturnType = errors.New("configure() must return a dict")

// LoadStarlarkConfig loads a configuration from a Starlark file.
// The file must define a configure() function that returns a dict.
// The execution is sandboxed: no filesystem or network access, with a timeout.
func LoadStarlarkConfig(path string, timeout time.Duration) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name: path,
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("execution timeout")
		case <-done:
		}
	}()
	defer close(done)

	globals, err := starlark.ExecFile(thread, path, data, configPredeclared())
	if err != nil {
		return nil, fmt.Errorf("executing config %s: %w", path, err)
	}

	configureFn, ok := globals["configure"]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrConfigureNotFound)
	}

	fn, ok := configureFn.(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("%s: configure must be a function, got %s", path, configureFn.Type())
	}

	result, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: calling configure(): %w", path, err)
	}

	dict, ok := result.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("%s: %w, got %s", path, ErrConfigureReturnType, result.Type())
	}

	return dictToConfig(dict)
}

// configPredeclared returns the predeclared values for config Starlark files.
// This is a sandboxed environment with no filesystem or network access.
func configPredeclared() starlark.StringDict {
	return starlark.StringDict{
		"getenv":    starlark.NewBuiltin("getenv", builtinGetenv),
		"host_os":   starlark.String(runtime.GOOS),
		"host_arch": starlark.String(runtime.GOARCH),
		"duration":  starlark.NewBuiltin("duration", builtinDuration),
	}
}

// builtinGetenv implements getenv(name, default="") -> string.
func builtinGetenv(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultVal starlark.String
	if err := starlark.UnpackArgs("getenv", args, kwargs, "name", &name, "default?", &defaultVal); err != nil {
		return nil, err
	}

	val := os.Getenv(name)
	if val == "" {
		return defaultVal, nil
	}
	return starlark.String(val), nil
}

// builtinDuration implements duration(s) -> string.
// Validates that the string is a valid Go duration.
func builtinDuration(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackArgs("duration", args, kwargs, "s", &s); err != nil {
		return nil, err
	}
	if _, err := time.ParseDuration(s); err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return starlark.String(s), nil
}

// dictToConfig converts a Starlark dict to a Config struct.
func dictToConfig(d *starlark.Dict) (*Config, error) {
	cfg := DefaultConfig()

	sections := []struct {
		name  string
		parse func(*starlark.Dict) error
	}{
		{"check", func(d *starlark.Dict) error { return parseCheckConfig(d, &cfg.Check) }},
		{"run", func(d *starlark.Dict) error { return parseRunConfig(d, &cfg.Run) }},
		{"format", func(d *starlark.Dict) error { return parseFormatConfig(d, &cfg.Format) }},
	}
	for _, s := range sections {
		v, found, _ := d.Get(starlark.String(s.name))
		if !found {
			continue
		}
		sd, ok := v.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("%s must be a dict, got %s", s.name, v.Type())
		}
		if err := s.parse(sd); err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", s.name, err)
		}
	}

	for _, k := range d.Keys() {
		key, _ := starlark.AsString(k)
		if key != "check" && key != "run" && key != "format" {
			return nil, fmt.Errorf("unknown config section %s", k.String())
		}
	}

	return cfg, nil
}

func parseCheckConfig(d *starlark.Dict, cfg *CheckConfig) error {
	if v, found, _ := d.Get(starlark.String("exclude")); found {
		list, err := stringList("exclude", v)
		if err != nil {
			return err
		}
		cfg.Exclude = list
	}

	if v, found, _ := d.Get(starlark.String("extensions")); found {
		list, err := stringList("extensions", v)
		if err != nil {
			return err
		}
		cfg.Extensions = list
	}

	if v, found, _ := d.Get(starlark.String("warnings_as_errors")); found {
		b, ok := v.(starlark.Bool)
		if !ok {
			return fmt.Errorf("warnings_as_errors must be a bool, got %s", v.Type())
		}
		cfg.WarningsAsErrors = bool(b)
	}

	return nil
}

func parseRunConfig(d *starlark.Dict, cfg *RunConfig) error {
	if v, found, _ := d.Get(starlark.String("timeout")); found {
		s, ok := starlark.AsString(v)
		if !ok {
			return fmt.Errorf("timeout must be a string, got %s", v.Type())
		}
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", s, err)
		}
		cfg.Timeout = Duration{dur}
	}

	if v, found, _ := d.Get(starlark.String("prelude")); found {
		list, err := stringList("prelude", v)
		if err != nil {
			return err
		}
		cfg.Prelude = list
	}

	if v, found, _ := d.Get(starlark.String("strict")); found {
		b, ok := v.(starlark.Bool)
		if !ok {
			return fmt.Errorf("strict must be a bool, got %s", v.Type())
		}
		cfg.Strict = bool(b)
	}

	return nil
}

func parseFormatConfig(d *starlark.Dict, cfg *FormatConfig) error {
	if v, found, _ := d.Get(starlark.String("check")); found {
		b, ok := v.(starlark.Bool)
		if !ok {
			return fmt.Errorf("check must be a bool, got %s", v.Type())
		}
		cfg.Check = bool(b)
	}
	return nil
}

// stringList converts a Starlark list of strings.
func stringList(name string, v starlark.Value) ([]string, error) {
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %s", name, v.Type())
	}
	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string", name, i)
		}
		out = append(out, s)
	}
	return out, nil
}

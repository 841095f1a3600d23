// Package tcjsrun implements tcjs run, which executes JavaScript files in a
// runtime where the typechecked global is installed.
package tcjsrun

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dop251/goja"

	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/config"
	"github.com/albertocavalcante/tcjs/internal/jsrt"
	"github.com/albertocavalcante/tcjs/internal/typeexpr"
	"github.com/albertocavalcante/tcjs/internal/version"
	"github.com/albertocavalcante/tcjs/internal/watch"
)

// Run executes tcjs run with the given arguments.
// Returns exit code.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	var (
		timeoutFlag time.Duration
		watchFlag   bool
		strictFlag  bool
		verboseFlag bool
		versionFlag bool
		configFlag  string
	)

	fs := flag.NewFlagSet("tcjs run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&timeoutFlag, "timeout", 0, "interrupt scripts running longer than this (default from config, 30s)")
	fs.BoolVar(&watchFlag, "watch", false, "run scripts again when they change")
	fs.BoolVar(&strictFlag, "strict", false, "fail on class members that can't be typechecked")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover tcjs.star or tcjs.toml)")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: tcjs run [flags] <file.js...>")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Runs JavaScript files with runtime type checking.")
		cli.Writeln(stderr, "Each file runs in a fresh runtime with typechecked and console defined.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return cli.ExitOK
		}
		return cli.ExitError
	}

	if versionFlag {
		cli.Writef(stdout, "tcjs run %s\n", version.String())
		return cli.ExitOK
	}

	log.SetOutput(io.Discard)
	if verboseFlag {
		log.SetOutput(stderr)
		log.SetFlags(log.Ltime | log.Lshortfile)
	}

	files := fs.Args()
	if len(files) == 0 {
		cli.Writeln(stderr, "tcjs run: no files specified")
		fs.Usage()
		return cli.ExitError
	}

	var (
		cfg     *config.Config
		cfgPath string
		err     error
	)
	if configFlag != "" {
		cfg, err = config.LoadConfig(configFlag)
		cfgPath = configFlag
	} else {
		cfg, cfgPath, err = config.DiscoverConfig("")
	}
	if err != nil {
		cli.Writef(stderr, "tcjs run: %v\n", err)
		return cli.ExitError
	}
	cfg.Merge(&config.Config{Run: config.RunConfig{
		Timeout: config.Duration{Duration: timeoutFlag},
		Strict:  strictFlag,
	}})

	r := &runner{
		timeout: cfg.Run.Timeout.Duration,
		strict:  cfg.Run.Strict,
		prelude: resolvePrelude(cfg.Run.Prelude, cfgPath),
		cache:   &typeexpr.Cache{},
		stdout:  stdout,
		stderr:  stderr,
	}
	log.Printf("config=%q timeout=%s strict=%v prelude=%v", cfgPath, r.timeout, r.strict, r.prelude)

	if watchFlag {
		return r.watch(ctx, files, cfgPath)
	}
	return r.runAll(ctx, files)
}

// resolvePrelude makes relative prelude paths relative to the config file.
func resolvePrelude(prelude []string, cfgPath string) []string {
	out := make([]string, len(prelude))
	for i, p := range prelude {
		if cfgPath != "" && !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(cfgPath), p)
		}
		out[i] = p
	}
	return out
}

// runner executes scripts.
type runner struct {
	timeout time.Duration
	strict  bool
	prelude []string

	// cache is shared by every runtime the runner creates.
	cache *typeexpr.Cache

	stdout io.Writer
	stderr io.Writer
}

// runAll runs every file and returns the exit code.
func (r *runner) runAll(ctx context.Context, files []string) int {
	code := cli.ExitOK
	for _, file := range files {
		if err := r.runFile(ctx, file); err != nil {
			cli.Writef(r.stderr, "tcjs run: %v\n", err)
			code = cli.ExitError
		}
	}
	return code
}

// errTimeout is the interrupt value used when a script exceeds the timeout.
var errTimeout = errors.New("timed out")

// runFile runs the prelude and file in a fresh runtime.
func (r *runner) runFile(ctx context.Context, file string) error {
	vm := goja.New()
	rt, err := jsrt.New(vm,
		jsrt.WithCache(r.cache),
		jsrt.WithStrict(r.strict),
		jsrt.WithWarn(func(format string, args ...any) {
			cli.Writef(r.stderr, "tcjs run: warning: %s\n", fmt.Sprintf(format, args...))
		}),
	)
	if err != nil {
		return fmt.Errorf("creating runtime: %w", err)
	}
	if err := rt.Install(); err != nil {
		return fmt.Errorf("installing typechecked: %w", err)
	}
	if err := installConsole(vm, r.stdout, r.stderr); err != nil {
		return fmt.Errorf("installing console: %w", err)
	}

	if r.timeout > 0 {
		timer := time.AfterFunc(r.timeout, func() { vm.Interrupt(errTimeout) })
		defer timer.Stop()
	}
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	var rejected []*goja.Promise
	vm.SetPromiseRejectionTracker(func(p *goja.Promise, op goja.PromiseRejectionOperation) {
		switch op {
		case goja.PromiseRejectionReject:
			rejected = append(rejected, p)
		case goja.PromiseRejectionHandle:
			rejected = slices.DeleteFunc(rejected, func(q *goja.Promise) bool { return q == p })
		}
	})

	for _, script := range append(slices.Clone(r.prelude), file) {
		log.Printf("running %s", script)
		if err := runScript(vm, script); err != nil {
			return r.describe(script, err)
		}
		if len(rejected) > 0 {
			return fmt.Errorf("%s: uncaught (in promise) %s", script, rejected[0].Result())
		}
	}
	return nil
}

func runScript(vm *goja.Runtime, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = vm.RunScript(path, string(src))
	return err
}

// describe turns a script failure into the error reported to the user.
func (r *runner) describe(script string, err error) error {
	var (
		interrupted *goja.InterruptedError
		exc         *goja.Exception
	)
	switch {
	case errors.As(err, &interrupted):
		if v, ok := interrupted.Value().(error); ok && errors.Is(v, errTimeout) {
			return fmt.Errorf("%s: timed out after %s", script, r.timeout)
		}
		return fmt.Errorf("%s: interrupted", script)
	case errors.As(err, &exc):
		return fmt.Errorf("uncaught %s", exc.String())
	}
	return err
}

// watch runs files, then runs the affected files again after every change
// until ctx is done.
func (r *runner) watch(ctx context.Context, files []string, cfgPath string) int {
	w, err := watch.New()
	if err != nil {
		cli.Writef(r.stderr, "tcjs run: %v\n", err)
		return cli.ExitError
	}
	defer func() { _ = w.Close() }()

	for _, f := range files {
		if err := w.Add(f); err != nil {
			cli.Writef(r.stderr, "tcjs run: watching %s: %v\n", f, err)
			return cli.ExitError
		}
	}
	shared := slices.Clone(r.prelude)
	if cfgPath != "" {
		shared = append(shared, cfgPath)
	}
	for _, f := range shared {
		if err := w.AddShared(f); err != nil {
			cli.Writef(r.stderr, "tcjs run: watching %s: %v\n", f, err)
		}
	}

	r.runAll(ctx, files)
	cli.Writef(r.stdout, "Watching %d file(s) for changes. Press Ctrl+C to stop.\n", len(files))

	watch.Loop(ctx, w, func(ev watch.Event) {
		cli.Writef(r.stdout, "\nChanged: %s\n", filepath.Base(ev.Files[0]))
		r.runAll(ctx, ev.Affected)
	}, func(err error) {
		cli.Writef(r.stderr, "tcjs run: watcher error: %v\n", err)
	})
	return cli.ExitOK
}

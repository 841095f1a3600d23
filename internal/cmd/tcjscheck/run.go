// Package tcjscheck implements tcjs check, which reports malformed type
// annotations and signatures without running any JavaScript.
package tcjscheck

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/term"

	"github.com/albertocavalcante/tcjs/internal/annotations"
	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/config"
	"github.com/albertocavalcante/tcjs/internal/version"
	"github.com/albertocavalcante/tcjs/internal/watch"
)

// Run executes tcjs check with the given arguments.
// Returns exit code.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	var (
		jsonFlag    bool
		versionFlag bool
		quietFlag   bool
		watchFlag   bool
		verboseFlag bool
		configFlag  string
	)

	fs := flag.NewFlagSet("tcjs check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&jsonFlag, "json", false, "output diagnostics as JSON")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.BoolVar(&quietFlag, "quiet", false, "only output errors, suppress warnings")
	fs.BoolVar(&watchFlag, "watch", false, "check again when files change")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover tcjs.star or tcjs.toml)")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: tcjs check [flags] <paths...>")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Reports type annotation problems in JavaScript files.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Checks for:")
		cli.Writeln(stderr, "  - Malformed /*: ... */ annotations")
		cli.Writeln(stderr, "  - Malformed annotated signatures")
		cli.Writeln(stderr, "  - Unions with repeated branches or a var branch")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Examples:")
		cli.Writeln(stderr, "  tcjs check app.js            # Check a single file")
		cli.Writeln(stderr, "  tcjs check src/              # Check a directory")
		cli.Writeln(stderr, "  tcjs check -json src/        # Output as JSON")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return cli.ExitOK
		}
		return cli.ExitError
	}

	if versionFlag {
		cli.Writef(stdout, "tcjs check %s\n", version.String())
		return cli.ExitOK
	}

	log.SetOutput(io.Discard)
	if verboseFlag {
		log.SetOutput(stderr)
		log.SetFlags(log.Ltime | log.Lshortfile)
	}

	paths := fs.Args()
	if len(paths) == 0 {
		cli.Writeln(stderr, "tcjs check: no files specified")
		fs.Usage()
		return cli.ExitError
	}

	cfg, cfgPath, err := loadConfig(configFlag)
	if err != nil {
		cli.Writef(stderr, "tcjs check: %v\n", err)
		return cli.ExitError
	}
	log.Printf("config: %q", cfgPath)

	files, err := cli.ExpandPaths(paths, cfg.Check.Checked)
	if err != nil {
		cli.Writef(stderr, "tcjs check: %v\n", err)
		return cli.ExitError
	}

	c := &checker{
		cfg:    cfg,
		json:   jsonFlag,
		quiet:  quietFlag,
		color:  !jsonFlag && isTerminal(stdout),
		stdout: stdout,
		stderr: stderr,
	}

	if watchFlag {
		return c.watch(ctx, paths, files, cfgPath)
	}

	if len(files) == 0 {
		cli.Writeln(stderr, "tcjs check: no files to check")
		return cli.ExitOK
	}
	return c.check(files)
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadConfig(path)
		return cfg, path, err
	}
	return config.DiscoverConfig("")
}

// checker scans files and reports their diagnostics.
type checker struct {
	cfg    *config.Config
	json   bool
	quiet  bool
	color  bool
	stdout io.Writer
	stderr io.Writer
}

// result is the outcome of checking a set of files.
type result struct {
	files       int
	diagnostics []fileDiagnostic
}

type fileDiagnostic struct {
	path string
	annotations.Diagnostic
}

func (r *result) count(sev annotations.Severity) int {
	n := 0
	for _, d := range r.diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// check scans files and writes the report. It returns the exit code.
func (c *checker) check(files []string) int {
	res := &result{files: len(files)}
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			cli.Writef(c.stderr, "tcjs check: %v\n", err)
			return cli.ExitError
		}
		f := annotations.Scan(path, src)
		log.Printf("%s: %d annotation(s), %d diagnostic(s)", path, len(f.Annotations), len(f.Diagnostics))
		for _, d := range f.Diagnostics {
			if d.Severity == annotations.SeverityWarning && c.cfg.Check.WarningsAsErrors {
				d.Severity = annotations.SeverityError
			}
			res.diagnostics = append(res.diagnostics, fileDiagnostic{path: path, Diagnostic: d})
		}
	}

	if c.quiet {
		res.diagnostics = slices.DeleteFunc(res.diagnostics, func(d fileDiagnostic) bool {
			return d.Severity != annotations.SeverityError
		})
	}

	if c.json {
		return c.outputJSON(res)
	}
	return c.outputText(res)
}

const (
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

func (c *checker) outputText(res *result) int {
	w := c.stdout
	for _, d := range res.diagnostics {
		severity := d.Severity.String()
		if c.color {
			tint := ansiRed
			if d.Severity == annotations.SeverityWarning {
				tint = ansiYellow
			}
			severity = tint + severity + ansiReset
		}
		cli.Writef(w, "%s:%s: %s: %s [%s]\n", d.path, d.Pos, severity, d.Message, d.Code)
	}

	// Summary
	if len(res.diagnostics) > 0 {
		cli.Writeln(w)
	}
	errors := res.count(annotations.SeverityError)
	warnings := res.count(annotations.SeverityWarning)
	if errors > 0 || warnings > 0 {
		cli.Writef(w, "Found %d error(s) and %d warning(s) in %d file(s)\n", errors, warnings, res.files)
	} else {
		cli.Writef(w, "Checked %d file(s), no issues found\n", res.files)
	}

	return cli.ExitCode(errors, warnings)
}

type jsonOutput struct {
	Files       int              `json:"files"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
}

type jsonDiagnostic struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	Severity  string `json:"severity"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (c *checker) outputJSON(res *result) int {
	out := jsonOutput{
		Files:       res.files,
		Errors:      res.count(annotations.SeverityError),
		Warnings:    res.count(annotations.SeverityWarning),
		Diagnostics: make([]jsonDiagnostic, 0, len(res.diagnostics)),
	}

	for _, d := range res.diagnostics {
		out.Diagnostics = append(out.Diagnostics, jsonDiagnostic{
			File:      d.path,
			Line:      d.Pos.Line,
			Column:    d.Pos.Column,
			EndLine:   d.End.Line,
			EndColumn: d.End.Column,
			Severity:  d.Severity.String(),
			Code:      d.Code,
			Message:   d.Message,
		})
	}

	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return cli.ExitError
	}

	return cli.ExitCode(out.Errors, out.Warnings)
}

// watch checks files, then checks the affected files again after every
// change until ctx is done.
func (c *checker) watch(ctx context.Context, paths, files []string, cfgPath string) int {
	w, err := watch.New(watch.WithFilter(c.cfg.Check.Checked))
	if err != nil {
		cli.Writef(c.stderr, "tcjs check: %v\n", err)
		return cli.ExitError
	}
	defer func() { _ = w.Close() }()

	for _, p := range paths {
		if err := w.Add(p); err != nil {
			cli.Writef(c.stderr, "tcjs check: watching %s: %v\n", p, err)
		}
	}
	if cfgPath != "" {
		if err := w.AddShared(cfgPath); err != nil {
			cli.Writef(c.stderr, "tcjs check: watching %s: %v\n", cfgPath, err)
		}
	}

	if len(files) > 0 {
		c.check(files)
	}
	cli.Writef(c.stdout, "Watching %d file(s) for changes. Press Ctrl+C to stop.\n", len(w.Targets()))

	watch.Loop(ctx, w, func(ev watch.Event) {
		if slices.Contains(ev.Files, absPath(cfgPath)) {
			if cfg, err := config.LoadConfig(cfgPath); err != nil {
				cli.Writef(c.stderr, "tcjs check: %v\n", err)
			} else {
				c.cfg = cfg
			}
		}
		cli.Writef(c.stdout, "\nChanged: %s\n", filepath.Base(ev.Files[0]))
		c.check(ev.Affected)
	}, func(err error) {
		cli.Writef(c.stderr, "tcjs check: watcher error: %v\n", err)
	})
	return cli.ExitOK
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// isTerminal reports whether w is a terminal, which decides whether
// severities are colored.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Package tcjsfmt implements tcjs fmt, which rewrites type annotations into
// their canonical spelling.
package tcjsfmt

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/albertocavalcante/tcjs/internal/annotations"
	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/config"
	"github.com/albertocavalcante/tcjs/internal/version"
)

// Run executes tcjs fmt with the given arguments.
// Returns exit code.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing.
func RunWithIO(_ context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		writeFlag   bool
		diffFlag    bool
		checkFlag   bool
		versionFlag bool
	)

	fs := flag.NewFlagSet("tcjs fmt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&writeFlag, "w", false, "write result to source file instead of stdout")
	fs.BoolVar(&diffFlag, "d", false, "display diffs instead of rewriting files")
	fs.BoolVar(&checkFlag, "check", false, "list files whose annotations are not canonical and exit 2")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: tcjs fmt [flags] [paths...]")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Rewrites /*: ... */ type annotations into their canonical form.")
		cli.Writeln(stderr, "With no paths, formats stdin to stdout.")
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
		cli.Writef(stdout, "tcjs fmt %s\n", version.String())
		return cli.ExitOK
	}

	if fs.NArg() == 0 {
		if writeFlag {
			cli.Writeln(stderr, "tcjs fmt: cannot use -w with standard input")
			return cli.ExitError
		}
		src, err := io.ReadAll(stdin)
		if err != nil {
			cli.Writef(stderr, "tcjs fmt: reading stdin: %v\n", err)
			return cli.ExitError
		}
		out, _ := annotations.Format(src)
		cli.WriteBytes(stdout, out)
		return cli.ExitOK
	}

	cfg, _, err := config.DiscoverConfig("")
	if err != nil {
		cli.Writef(stderr, "tcjs fmt: %v\n", err)
		return cli.ExitError
	}
	if cfg.Format.Check && !writeFlag && !diffFlag {
		checkFlag = true
	}

	files, err := cli.ExpandPaths(fs.Args(), cfg.Check.Checked)
	if err != nil {
		cli.Writef(stderr, "tcjs fmt: %v\n", err)
		return cli.ExitError
	}

	unformatted := 0
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			cli.Writef(stderr, "tcjs fmt: %v\n", err)
			return cli.ExitError
		}
		out, changed := annotations.Format(src)

		switch {
		case checkFlag:
			if changed > 0 {
				unformatted++
				cli.Writeln(stdout, path)
			}
		case diffFlag:
			if changed > 0 {
				cli.Write(stdout, unifiedDiff(path, src, out))
			}
		case writeFlag:
			if changed == 0 {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				cli.Writef(stderr, "tcjs fmt: %v\n", err)
				return cli.ExitError
			}
			if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
				cli.Writef(stderr, "tcjs fmt: %v\n", err)
				return cli.ExitError
			}
		default:
			cli.WriteBytes(stdout, out)
		}
	}

	if unformatted > 0 {
		cli.Writef(stderr, "tcjs fmt: %d file(s) need formatting\n", unformatted)
		return cli.ExitWarning
	}
	return cli.ExitOK
}

// unifiedDiff returns a unified diff between the original and formatted
// content of path.
func unifiedDiff(path string, before, after []byte) string {
	if bytes.Equal(before, after) {
		return ""
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: path + ".orig",
		ToFile:   path,
		Context:  3,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	return text
}

// Command tcjs runs JavaScript with runtime type checking and ships the
// tools around /*: ... */ type annotations.
package main

import (
	"context"
	"io"

	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/version"
)

func main() {
	cli.Main(run)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(stderr)
		return cli.ExitOK
	}

	switch args[0] {
	case "version":
		cli.Writef(stdout, "tcjs %s\n", version.String())
		return cli.ExitOK
	case "help":
		printUsage(stderr)
		return cli.ExitOK
	}

	tool, ok := tools[args[0]]
	if !ok {
		cli.Writef(stderr, "tcjs: unknown command %q\n", args[0])
		printUsage(stderr)
		return cli.ExitWarning
	}
	return tool(ctx, args[1:], stdin, stdout, stderr)
}

func isHelp(arg string) bool {
	return arg == "-h" || arg == "--help"
}

func printUsage(w io.Writer) {
	cli.Writeln(w, "usage: tcjs <command> [args]")
	cli.Writeln(w)
	cli.Writeln(w, "commands:")
	cli.Writeln(w, "  run          run JavaScript files with runtime type checking")
	cli.Writeln(w, "  check        report malformed type annotations")
	cli.Writeln(w, "  fmt          canonicalize type annotations")
	cli.Writeln(w, "  ls           language server (LSP)")
	cli.Writeln(w, "  version      show version")
	cli.Writeln(w)
	cli.Writeln(w, "run \"tcjs <command> -help\" for command flags")
}

// Package tcjsls implements tcjs ls, the language server.
package tcjsls

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/lsp"
	"github.com/albertocavalcante/tcjs/internal/version"
)

// Run executes tcjs ls with the given arguments.
func Run(args []string) int {
	return RunWithIO(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for testing.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		versionFlag bool
		verboseFlag bool
	)

	fs := flag.NewFlagSet("tcjs ls", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.BoolVar(&verboseFlag, "v", false, "verbose logging to stderr")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: tcjs ls [flags]")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Language server for JavaScript type annotations.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "The server communicates over stdio using JSON-RPC 2.0.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Features:")
		cli.Writeln(stderr, "  - Diagnostics for malformed annotations and signatures")
		cli.Writeln(stderr, "  - Hover over an annotation to see its canonical form")
		cli.Writeln(stderr, "  - Formatting of annotations (as tcjs fmt)")
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
		cli.Writef(stdout, "tcjs ls %s\n", version.String())
		return cli.ExitOK
	}

	if verboseFlag {
		log.SetOutput(stderr)
		log.SetFlags(log.Ltime | log.Lshortfile)
	} else {
		log.SetOutput(io.Discard)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := lsp.NewServer(cancel)
	conn := lsp.NewConn(&stdioConn{Reader: stdin, Writer: stdout}, server)
	server.SetConn(conn)

	log.Printf("tcjs ls: starting server")

	if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
		cli.Writef(stderr, "tcjs ls: %v\n", err)
		return cli.ExitError
	}

	log.Printf("tcjs ls: server stopped")
	return cli.ExitOK
}

// stdioConn wraps stdin/stdout as an io.ReadWriteCloser.
type stdioConn struct {
	io.Reader
	io.Writer
}

func (s *stdioConn) Close() error {
	return nil
}

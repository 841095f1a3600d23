package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
)

// Tool is the entry point shared by the standalone binaries and the tcjs
// dispatcher. It returns the process exit code.
type Tool func(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int

// Main runs tool with the process arguments and exits with its code.
// An interrupt cancels the context passed to tool.
func Main(tool Tool) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := tool(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

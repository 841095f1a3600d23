package cli

import (
	"fmt"
	"io"
)

// Writef writes formatted output to w, ignoring write errors. A broken
// stdout or stderr leaves nothing to report the failure to; the exit code
// still reflects the outcome.
//
//	cli.Writef(stdout, "%s:%d:%d: %s\n", path, line, col, msg)
func Writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// Writeln writes a line to w, ignoring write errors.
//
//	cli.Writeln(stderr, "tcjs:", err)
//	cli.Writeln(stdout) // blank line
func Writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

// Write writes s to w, ignoring write errors.
func Write(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
}

// WriteBytes writes b to w, ignoring write errors.
//
//	cli.WriteBytes(stdout, formatted)
func WriteBytes(w io.Writer, b []byte) {
	_, _ = w.Write(b)
}

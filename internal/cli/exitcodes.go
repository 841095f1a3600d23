// Package cli provides shared utilities for the tcjs tools.
package cli

// Standard exit codes for tcjs tools.
//
// These follow Unix conventions:
//   - 0: Success
//   - 1: General error (invalid annotations, uncaught exceptions, I/O errors)
//   - 2: Warnings or check failures (annotation warnings, format needed)
const (
	// ExitOK indicates successful execution with no issues.
	ExitOK = 0

	// ExitError indicates a fatal error occurred (parse error, I/O error, etc.).
	ExitError = 1

	// ExitWarning indicates the tool completed but found warnings or issues
	// that don't constitute errors. For example:
	//   - tcjs check found warnings (but no errors)
	//   - tcjs fmt -check found files that need formatting
	ExitWarning = 2
)

// ExitCode returns the exit code for a run that found the given numbers of
// errors and warnings.
func ExitCode(errors, warnings int) int {
	switch {
	case errors > 0:
		return ExitError
	case warnings > 0:
		return ExitWarning
	}
	return ExitOK
}

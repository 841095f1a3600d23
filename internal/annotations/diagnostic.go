package annotations

import "fmt"

// Diagnostic codes.
const (
	CodeInvalidAnnotation = "invalid-annotation"
	CodeInvalidSignature  = "invalid-signature"
	CodeRedundantUnion    = "redundant-union"
	CodeVarInUnion        = "var-in-union"
)

// Position is a location in a source file. Line and Column are 1-based;
// Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Diagnostic represents a single issue found in a file.
type Diagnostic struct {
	// Pos is the start of the offending text.
	Pos Position

	// End is the position just past the offending text.
	End Position

	// Severity indicates the severity of the issue.
	Severity Severity

	// Code is a unique identifier for this diagnostic type.
	Code string

	// Message is a human-readable description of the issue.
	Message string
}

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// HasErrors reports whether any diagnostic of f is an error.
func (f *File) HasErrors() bool {
	return f.ErrorCount() > 0
}

// ErrorCount returns the number of error-level diagnostics.
func (f *File) ErrorCount() int {
	return f.count(SeverityError)
}

// WarningCount returns the number of warning-level diagnostics.
func (f *File) WarningCount() int {
	return f.count(SeverityWarning)
}

func (f *File) count(s Severity) int {
	n := 0
	for _, d := range f.Diagnostics {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// Package cmdtest provides a testscript-based test harness for the tcjs
// tools.
//
// It uses txtar format test files to specify input files and expected outputs,
// making it easy to write comprehensive CLI tests.
//
// Example test file (testdata/tcjscheck/unclosed.txtar):
//
//	# An unclosed generic is reported with its position
//	! exec tcjscheck app.js
//	stdout 'app.js:1:14: error: .*Unclosed generic'
//
//	-- app.js --
//	function f(a /*: Array<Number */) {}
package cmdtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/albertocavalcante/tcjs/internal/cmd/tcjscheck"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsfmt"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsls"
	"github.com/albertocavalcante/tcjs/internal/cmd/tcjsrun"
	"github.com/albertocavalcante/tcjs/internal/config"
)

// Run executes the testscript tests in the given directory.
func Run(t *testing.T, dir string) {
	testscript.Run(t, testscript.Params{
		Dir: dir,
		Setup: func(env *testscript.Env) error {
			// Config discovery stops at the work directory.
			env.Setenv(config.EnvConfig, "")
			return os.Mkdir(filepath.Join(env.WorkDir, ".git"), 0o755)
		},
	})
}

// Main is the TestMain function that should be called from test files.
// It sets up the CLI tools as testscript commands.
func Main(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"tcjsrun":   wrapRun(tcjsrun.Run),
		"tcjscheck": wrapRun(tcjscheck.Run),
		"tcjsfmt":   wrapRun(tcjsfmt.Run),
		"tcjsls":    wrapRun(tcjsls.Run),
	}))
}

// wrapRun wraps a Run(args []string) int function to func() int for testscript.
// The args are taken from os.Args[1:].
func wrapRun(run func(args []string) int) func() int {
	return func() int {
		return run(os.Args[1:])
	}
}

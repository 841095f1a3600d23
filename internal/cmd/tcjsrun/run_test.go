package tcjsrun

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/albertocavalcante/tcjs/internal/cli"
	"github.com/albertocavalcante/tcjs/internal/config"
)

// writeFiles creates files in a temp dir; cfg becomes its tcjs.toml, which
// config discovery is pointed at.
func writeFiles(t *testing.T, cfg string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files[config.ConfigTOML] = cfg
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}
	}
	t.Setenv(config.EnvConfig, filepath.Join(dir, config.ConfigTOML))
	return dir
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := RunWithIO(context.Background(), args, nil, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := run(t, "-version")
	if code != cli.ExitOK {
		t.Errorf("RunWithIO(-version) returned %d, want 0", code)
	}
	if !strings.HasPrefix(stdout, "tcjs run ") {
		t.Errorf("version output = %q", stdout)
	}
}

func TestRun_NoFiles(t *testing.T) {
	code, _, stderr := run(t)
	if code != cli.ExitError {
		t.Errorf("returned %d, want %d", code, cli.ExitError)
	}
	if !strings.Contains(stderr, "no files specified") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_Script(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr []string
	}{
		{
			name: "checked call",
			script: `const area = typechecked(function area(r /*: Number */) /*: Number */ {
	return r * r;
});
console.log("area", area(3), [1, 2], {a: 1});
`,
			wantCode:   cli.ExitOK,
			wantStdout: "area 9 [1,2] {\"a\":1}\n",
		},
		{
			name: "argument mismatch",
			script: `const area = typechecked(function area(r /*: Number */) /*: Number */ {
	return r * r;
});
console.log("before");
area("3");
console.log("after");
`,
			wantCode:   cli.ExitError,
			wantStdout: "before\n",
			wantStderr: []string{"uncaught TypeError: Expected parameter 'r' of 'area' to be of type 'Number', got 'String'"},
		},
		{
			name:       "malformed annotation",
			script:     `typechecked(function f(a /*: Array<Number, String> */) {});`,
			wantCode:   cli.ExitError,
			wantStderr: []string{"uncaught TypeError", "Did you mean 'Array<Number | String>'?"},
		},
		{
			name:       "caught errors",
			script:     `try { typechecked(function (a /*: Nope */) {})(1); } catch (e) { console.error(e.name + ": " + e.message); }`,
			wantCode:   cli.ExitOK,
			wantStderr: []string{"ReferenceError: 'Nope' in type declaration is not defined"},
		},
		{
			name:       "timeout",
			script:     `for (;;) {}`,
			args:       []string{"-timeout", "50ms"},
			wantCode:   cli.ExitError,
			wantStderr: []string{"timed out after 50ms"},
		},
		{
			name: "unhandled async rejection",
			script: `const half = typechecked(async function half(n /*: Number */) /*: Number */ { return n / 2; });
half("4");
console.log("sync done");
`,
			wantCode:   cli.ExitError,
			wantStdout: "sync done\n",
			wantStderr: []string{"main.js: uncaught (in promise) TypeError: Expected parameter 'n' of 'half' to be of type 'Number', got 'String'"},
		},
		{
			name: "handled async rejection",
			script: `const half = typechecked(async function half(n /*: Number */) /*: Number */ { return n / 2; });
half("4")
	.catch(e => console.log("caught " + e.name))
	.then(() => half(4))
	.then(v => console.log("half " + v));
`,
			wantCode:   cli.ExitOK,
			wantStdout: "caught TypeError\nhalf 2\n",
		},
		{
			name: "unwritable member warns",
			script: `class W { m(a /*: Number */) {} }
Object.defineProperty(W.prototype, "m", {writable: false});
typechecked(W);
console.log("ok");
`,
			wantCode:   cli.ExitOK,
			wantStdout: "ok\n",
			wantStderr: []string{"warning: W.m is not writable and can't be typechecked."},
		},
		{
			name: "unwritable member strict",
			script: `class W { m(a /*: Number */) {} }
Object.defineProperty(W.prototype, "m", {writable: false});
typechecked(W);
`,
			args:       []string{"-strict"},
			wantCode:   cli.ExitError,
			wantStderr: []string{"uncaught TypeError: W.m is not writable and can't be typechecked."},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, "", map[string]string{"main.js": tc.script})
			args := append(tc.args, filepath.Join(dir, "main.js"))
			code, stdout, stderr := run(t, args...)
			if code != tc.wantCode {
				t.Errorf("returned %d, want %d\nstderr: %s", code, tc.wantCode, stderr)
			}
			if stdout != tc.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout, tc.wantStdout)
			}
			for _, want := range tc.wantStderr {
				if !strings.Contains(stderr, want) {
					t.Errorf("stderr missing %q:\n%s", want, stderr)
				}
			}
		})
	}
}

func TestRun_Prelude(t *testing.T) {
	dir := writeFiles(t, "[run]\nprelude = [\"lib/point.js\"]\n", map[string]string{
		"lib/point.js": `class Point {
	constructor(x /*: Number */, y /*: Number */) { this.x = x; this.y = y; }
}
typechecked.register(Point);
`,
		"main.js": `const dist = typechecked((p /*: Point */) /*: Number */ => Math.hypot(p.x, p.y));
console.log(dist(new Point(3, 4)));
`,
	})

	code, stdout, stderr := run(t, filepath.Join(dir, "main.js"))
	if code != cli.ExitOK {
		t.Fatalf("returned %d, want 0\nstderr: %s", code, stderr)
	}
	if stdout != "5\n" {
		t.Errorf("stdout = %q, want %q", stdout, "5\n")
	}
}

func TestRun_FreshRuntimePerFile(t *testing.T) {
	script := "class A {}\ntypechecked.register(A);\nconsole.log(typechecked.isinstance(new A(), \"A\"));\n"
	dir := writeFiles(t, "", map[string]string{"one.js": script, "two.js": script})

	code, stdout, stderr := run(t, filepath.Join(dir, "one.js"), filepath.Join(dir, "two.js"))
	if code != cli.ExitOK {
		t.Fatalf("returned %d, want 0\nstderr: %s", code, stderr)
	}
	if stdout != "true\ntrue\n" {
		t.Errorf("stdout = %q, want two trues", stdout)
	}
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	dir := writeFiles(t, "", map[string]string{
		"bad.js":  `throw new RangeError("boom");`,
		"good.js": `console.log("good");`,
	})

	code, stdout, stderr := run(t, filepath.Join(dir, "bad.js"), filepath.Join(dir, "good.js"))
	if code != cli.ExitError {
		t.Errorf("returned %d, want %d", code, cli.ExitError)
	}
	if stdout != "good\n" {
		t.Errorf("stdout = %q, want %q", stdout, "good\n")
	}
	if !strings.Contains(stderr, "uncaught RangeError: boom") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRun_Cancelled(t *testing.T) {
	dir := writeFiles(t, "[run]\ntimeout = \"1m\"\n", map[string]string{"main.js": `for (;;) {}`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	code := RunWithIO(ctx, []string{filepath.Join(dir, "main.js")}, nil, &stdout, &stderr)
	if code != cli.ExitError {
		t.Errorf("returned %d, want %d", code, cli.ExitError)
	}
	if !strings.Contains(stderr.String(), "interrupted") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestResolvePrelude(t *testing.T) {
	cfgPath := filepath.Join("proj", "tcjs.toml")
	abs := filepath.Join(string(filepath.Separator), "abs", "p.js")
	got := resolvePrelude([]string{"lib/a.js", abs}, cfgPath)
	want := []string{filepath.Join("proj", "lib", "a.js"), abs}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("resolvePrelude() = %v, want %v", got, want)
	}
	if got := resolvePrelude([]string{"a.js"}, ""); got[0] != "a.js" {
		t.Errorf("without config = %v, want [a.js]", got)
	}
}

// Package config provides configuration loading for the tcjs tools.
//
// It supports two configuration formats:
//   - tcjs.star: Starlark configuration evaluated in a sandbox
//   - tcjs.toml: declarative TOML configuration
//
// Configuration files are discovered by walking up the directory tree from
// the working directory, stopping at the repository root. The TCJS_CONFIG
// environment variable and the -config flag override discovery.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Config file names.
const (
	ConfigStar = "tcjs.star"
	ConfigTOML = "tcjs.toml"
)

// EnvConfig is the environment variable for specifying config file path.
const EnvConfig = "TCJS_CONFIG"

// ErrConflict is returned when multiple config files exist in the same directory.
var ErrConflict = errors.New("multiple config files found in the same directory; use only one")

// Config represents the tcjs configuration.
type Config struct {
	// Check configures tcjs check.
	Check CheckConfig `json:"check" toml:"check"`

	// Run configures tcjs run.
	Run RunConfig `json:"run" toml:"run"`

	// Format configures tcjs fmt.
	Format FormatConfig `json:"format" toml:"format"`
}

// CheckConfig contains annotation checker configuration.
type CheckConfig struct {
	// Exclude lists glob patterns of files and directories to skip.
	Exclude []string `json:"exclude" toml:"exclude"`

	// Extensions lists the file extensions checked when walking directories.
	Extensions []string `json:"extensions" toml:"extensions"`

	// WarningsAsErrors treats warnings as errors.
	WarningsAsErrors bool `json:"warnings_as_errors" toml:"warnings_as_errors"`
}

// RunConfig contains script runner configuration.
type RunConfig struct {
	// Timeout interrupts a script running longer than this (e.g., "30s").
	Timeout Duration `json:"timeout" toml:"timeout"`

	// Prelude is a list of scripts evaluated before the main script.
	Prelude []string `json:"prelude" toml:"prelude"`

	// Strict turns warnings about members that can't be wrapped into errors.
	Strict bool `json:"strict" toml:"strict"`
}

// FormatConfig contains annotation formatter configuration.
type FormatConfig struct {
	// Check makes tcjs fmt report unformatted files instead of rewriting them.
	Check bool `json:"check" toml:"check"`
}

// Duration wraps time.Duration for TOML/JSON string parsing.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return nil, nil
	}
	return []byte(d.Duration.String()), nil
}

// DefaultExtensions are the file extensions checked by default.
var DefaultExtensions = []string{".js", ".mjs", ".cjs"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Check: CheckConfig{
			Extensions: slices.Clone(DefaultExtensions),
		},
		Run: RunConfig{
			Timeout: Duration{30 * time.Second},
		},
	}
}

// LoadConfig loads configuration from the specified path.
// The format is auto-detected based on file extension.
func LoadConfig(path string) (*Config, error) {
	ext := filepath.Ext(path)
	switch ext {
	case ".toml":
		return LoadTOMLConfig(path)
	case ".star":
		return LoadStarlarkConfig(path, DefaultStarlarkTimeout)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s (expected .star or .toml)", ext)
	}
}

// DiscoverConfig searches for a configuration file.
//
// Resolution order:
//  1. If TCJS_CONFIG env var is set, use that path
//  2. Walk up from startDir looking for tcjs.star or tcjs.toml
//
// If both files exist in the same directory, an ErrConflict error is
// returned. Returns the loaded config and the path to the config file.
// If no config is found, returns (DefaultConfig(), "", nil).
func DiscoverConfig(startDir string) (*Config, string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		cfg, err := LoadConfig(envPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", EnvConfig, err)
		}
		return cfg, envPath, nil
	}

	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting working directory: %w", err)
		}
	}

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path: %w", err)
	}

	gitRoot := findGitRoot(absDir)

	dir := absDir
	for {
		configPath, err := findConfigInDir(dir)
		if err != nil {
			return nil, "", err
		}
		if configPath != "" {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return nil, "", err
			}
			return cfg, configPath, nil
		}

		if gitRoot != "" && dir == gitRoot {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return DefaultConfig(), "", nil
}

// findConfigInDir returns the config file of dir, or "" if there is none.
func findConfigInDir(dir string) (string, error) {
	var found []string
	for _, name := range []string{ConfigStar, ConfigTOML} {
		if fileExists(filepath.Join(dir, name)) {
			found = append(found, name)
		}
	}
	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return filepath.Join(dir, found[0]), nil
	}
	return "", fmt.Errorf("%w: found %s in %s", ErrConflict, strings.Join(found, ", "), dir)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findGitRoot finds the git repository root from a starting directory.
// Returns empty string if not in a git repository.
func findGitRoot(startDir string) string {
	dir := startDir
	for {
		if fileExists(filepath.Join(dir, ".git")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Merge merges the other config into this one.
// Non-zero values from other override values in c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Check.Exclude) > 0 {
		c.Check.Exclude = append(c.Check.Exclude, other.Check.Exclude...)
	}
	if len(other.Check.Extensions) > 0 {
		c.Check.Extensions = other.Check.Extensions
	}
	if other.Check.WarningsAsErrors {
		c.Check.WarningsAsErrors = true
	}

	if other.Run.Timeout.Duration != 0 {
		c.Run.Timeout = other.Run.Timeout
	}
	if len(other.Run.Prelude) > 0 {
		c.Run.Prelude = append(c.Run.Prelude, other.Run.Prelude...)
	}
	if other.Run.Strict {
		c.Run.Strict = true
	}

	if other.Format.Check {
		c.Format.Check = true
	}
}

// Excluded reports whether p matches one of the exclude patterns. Patterns
// are matched against every run of consecutive path segments, so "vendor"
// and "*.min.js" match at any depth and "build/gen" excludes everything
// below a build/gen directory.
func (c *CheckConfig) Excluded(p string) bool {
	p = filepath.ToSlash(filepath.Clean(p))
	parts := strings.Split(p, "/")
	for _, pattern := range c.Exclude {
		for i := range parts {
			for j := i + 1; j <= len(parts); j++ {
				if ok, _ := path.Match(pattern, strings.Join(parts[i:j], "/")); ok {
					return true
				}
			}
		}
	}
	return false
}

// Checked reports whether a file named p should be checked when found
// while walking a directory.
func (c *CheckConfig) Checked(p string) bool {
	exts := c.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return slices.Contains(exts, filepath.Ext(p)) && !c.Excluded(p)
}

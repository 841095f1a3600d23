package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LoadTOMLConfig loads a configuration from a TOML file. Keys missing from
// the file keep their defaults.
func LoadTOMLConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing TOML config %s: unknown key %q", path, undecoded[0].String())
	}

	return cfg, nil
}

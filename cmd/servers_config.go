package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	sim "github.com/latency-sim/latency-sim/sim"
)

// DefaultServersFilePath is where the server set is read from unless --servers is given.
const DefaultServersFilePath = "servers.yaml"

// ServersConfig represents the full servers file structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ServersConfig struct {
	Version string       `yaml:"version" toml:"version"`
	Servers []sim.Server `yaml:"servers" toml:"servers"`
}

// LoadServersConfig parses a servers file. Files ending in .toml are decoded as
// TOML; anything else as YAML with strict field checking (typos must cause errors).
func LoadServersConfig(path string) (*ServersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading servers file: %w", err)
	}

	var cfg ServersConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing servers TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing servers TOML: unknown field %q", undecoded[0].String())
		}
		return &cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing servers YAML: %w", err)
	}
	return &cfg, nil
}

// LoadServerSet reads and validates the server set at path.
func LoadServerSet(path string) (*sim.ServerSet, error) {
	cfg, err := LoadServersConfig(path)
	if err != nil {
		return nil, err
	}
	set, err := sim.NewServerSet(cfg.Servers)
	if err != nil {
		return nil, fmt.Errorf("invalid server set in %s: %w", path, err)
	}
	return set, nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultServer  = "http://localhost:3001"
	defaultTimeout = 15 * time.Minute
)

type cliConfig struct {
	Server         string        `yaml:"server"`
	Timeout        time.Duration `yaml:"timeout"`
	Pipeline       string        `yaml:"pipeline"`
	OutputFilename string        `yaml:"output_filename"`
}

// loadConfig reads the YAML config at path. A missing file is only an error
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (*cliConfig, error) {
	cfg := &cliConfig{Server: defaultServer, Timeout: defaultTimeout}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg, nil
}

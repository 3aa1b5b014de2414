package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the echo server's own on-disk configuration: a plain struct
// with yaml tags, parsed straight from a file path with no env-var
// layering.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	Secret     string `yaml:"secret"`
}

func DefaultConfig() Config {
	return Config{ListenAddr: ":8787"}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

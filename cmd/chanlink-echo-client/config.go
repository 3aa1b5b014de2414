package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the echo client's configuration: layered defaults, an optional
// file, and CHANLINK_-prefixed environment variable overrides.
type Config struct {
	ServerURL string `mapstructure:"server_url"`
	Secret    string `mapstructure:"secret"`
	Message   string `mapstructure:"message"`
}

func LoadConfig(configPath string) (Config, error) {
	v := viper.New()

	v.SetDefault("server_url", "ws://127.0.0.1:8787/connect")
	v.SetDefault("message", "hello")

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix("CHANLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

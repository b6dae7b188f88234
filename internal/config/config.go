// Package config loads the server configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerName       string `yaml:"server_name"`
	ListenAddr       string `yaml:"listen_addr"`
	DBPath           string `yaml:"db_path"`
	IdentityFile     string `yaml:"identity_file"`
	AnnounceInterval int    `yaml:"announce_interval"` // seconds, 0 disables
}

func Default() Config {
	return Config{
		ServerName:       "meshbbs",
		ListenAddr:       ":8780",
		DBPath:           "meshbbs.db",
		IdentityFile:     "server_identity.key",
		AnnounceInterval: 0,
	}
}

// Load reads the YAML config at path. A missing file yields the
// defaults rather than an error, matching first-run behavior.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "meshbbs"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8780"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "meshbbs.db"
	}
	if cfg.IdentityFile == "" {
		cfg.IdentityFile = "server_identity.key"
	}
	return cfg, nil
}

// Package config loads server settings from YAML. A missing file yields the
// defaults so a bare `server` invocation just works.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Addr            string
	DataDir         string
	MaxPayloadBytes int64
	BackupPath      string
	BackupInterval  time.Duration
}

type yamlSettings struct {
	Addr                  string `yaml:"addr"`
	DataDir               string `yaml:"data_dir"`
	MaxPayloadBytes       int64  `yaml:"max_payload_bytes"`
	BackupPath            string `yaml:"backup_path"`
	BackupIntervalSeconds int    `yaml:"backup_interval_seconds"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:            "localhost:8080",
		DataDir:         "data",
		MaxPayloadBytes: 1 << 20,
		BackupPath:      "backup.sqlite3",
		BackupInterval:  time.Minute,
	}
}

// Load reads settings from the YAML file at path. If the file does not
// exist, default settings are returned.
func Load(path string) (Settings, error) {
	settings := DefaultSettings()

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	if fileData.Addr != "" {
		settings.Addr = fileData.Addr
	}
	if fileData.DataDir != "" {
		settings.DataDir = fileData.DataDir
	}
	if fileData.MaxPayloadBytes > 0 {
		settings.MaxPayloadBytes = fileData.MaxPayloadBytes
	}
	if fileData.BackupPath != "" {
		settings.BackupPath = fileData.BackupPath
	}
	if fileData.BackupIntervalSeconds > 0 {
		settings.BackupInterval = time.Duration(fileData.BackupIntervalSeconds) * time.Second
	}
	return settings, nil
}

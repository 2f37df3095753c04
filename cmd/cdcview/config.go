package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "cdcview.yaml"

// CLIConfig holds defaults shared by the commands.
// Loaded from cdcview.yaml if present.
type CLIConfig struct {
	// CatalogName and DatabaseName fill view configs that leave them empty.
	CatalogName  string `yaml:"catalogName"`
	DatabaseName string `yaml:"databaseName"`

	// Region is the AWS region used by infer.
	Region string `yaml:"region"`

	// StoreDir is where BadgerDB caches generated artifacts. Empty keeps
	// the cache in memory for serve and disables it elsewhere.
	StoreDir string `yaml:"storeDir"`

	// Port is the HTTP port for the server.
	Port int `yaml:"port"`
}

// LoadCLIConfig reads the nearest cdcview.yaml and applies the environment
// on top of it. Missing or unreadable files yield the environment alone.
func LoadCLIConfig() CLIConfig {
	dir, err := os.Getwd()
	if err != nil {
		return applyEnv(CLIConfig{})
	}
	return applyEnv(loadCLIConfigFrom(dir))
}

func loadCLIConfigFrom(dir string) CLIConfig {
	var cfg CLIConfig

	configPath := findConfigFile(dir)
	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}

func applyEnv(cfg CLIConfig) CLIConfig {
	if dir := os.Getenv("CDCVIEW_STORE_DIR"); dir != "" {
		cfg.StoreDir = dir
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Region = region
	}
	return cfg
}

// findConfigFile searches for cdcview.yaml walking up from dir.
func findConfigFile(dir string) string {
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pagopa/cdcview/artifactstore"
	"github.com/pagopa/cdcview/viewgen"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, formatJSON, formatYAML)
	}
}

// readInput returns the contents of the file named by the only argument, or
// of stdin when there is none or it is "-".
func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

// loadViewConfig reads a YAML (or JSON) view config and fills the catalog
// and database from the CLI defaults when the file leaves them empty.
func loadViewConfig(path string, defaults CLIConfig) (viewgen.Config, error) {
	var cfg viewgen.Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return withDefaults(cfg, defaults), nil
}

func withDefaults(cfg viewgen.Config, defaults CLIConfig) viewgen.Config {
	if cfg.CatalogName == "" {
		cfg.CatalogName = defaults.CatalogName
	}
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = defaults.DatabaseName
	}
	return cfg
}

// openStore opens the artifact cache in dir. It returns nil when dir is empty.
func openStore(dir string) (*artifactstore.Store, error) {
	if dir == "" {
		return nil, nil
	}
	return artifactstore.New(artifactstore.StoreOptions{Path: dir})
}

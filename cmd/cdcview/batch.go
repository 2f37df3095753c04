package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pagopa/cdcview/internal/logger"
	"github.com/pagopa/cdcview/viewgen"
)

// Manifest lists the views rendered by the batch command. Catalog and
// database set at the top apply to every view that leaves them empty.
type Manifest struct {
	CatalogName  string           `yaml:"catalogName"`
	DatabaseName string           `yaml:"databaseName"`
	Views        []viewgen.Config `yaml:"views"`
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Views) == 0 {
		return nil, fmt.Errorf("manifest %s lists no views", path)
	}
	return &m, nil
}

// Configs returns the view configs with manifest and CLI defaults applied.
func (m *Manifest) Configs(defaults CLIConfig) []viewgen.Config {
	if m.CatalogName != "" {
		defaults.CatalogName = m.CatalogName
	}
	if m.DatabaseName != "" {
		defaults.DatabaseName = m.DatabaseName
	}
	cfgs := make([]viewgen.Config, len(m.Views))
	for i, v := range m.Views {
		cfgs[i] = withDefaults(v, defaults)
	}
	return cfgs
}

type batchOptions struct {
	outDir   string
	format   string
	parallel int
}

func newBatchCmd() *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Render every view listed in a manifest",
		Long: `Render the artifacts of every view in a YAML manifest. Each view is written to
<out>/<view name>.<format>. Nothing is written unless every view generates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.outDir, "out", ".", "Output directory")
	f.StringVarP(&opts.format, "output", "o", formatJSON, "Output format: json or yaml")
	f.IntVar(&opts.parallel, "parallel", runtime.NumCPU(), "Maximum number of views rendered at once")
	return cmd
}

// checkViewNames rejects view names that cannot be used as output file names
// and names listed twice.
func checkViewNames(cfgs []viewgen.Config) error {
	seen := make(map[string]int, len(cfgs))
	for i, cfg := range cfgs {
		name := cfg.Normalize().CdcViewName
		if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("view %d: name %q cannot be used as a file name", i, name)
		}
		if name == "" {
			continue
		}
		if j, ok := seen[name]; ok {
			return fmt.Errorf("view %d: name %q already used by view %d", i, name, j)
		}
		seen[name] = i
	}
	return nil
}

func runBatch(cmd *cobra.Command, path string, opts batchOptions) error {
	m, err := LoadManifest(path)
	if err != nil {
		return err
	}
	cfgs := m.Configs(LoadCLIConfig())
	if err := checkViewNames(cfgs); err != nil {
		return err
	}

	rendered := make([][]byte, len(cfgs))
	eg, ctx := errgroup.WithContext(cmd.Context())
	if opts.parallel > 0 {
		eg.SetLimit(opts.parallel)
	}
	for i, cfg := range cfgs {
		eg.Go(func() error {
			gen, err := viewgen.New(cfg)
			if err != nil {
				return fmt.Errorf("view %d (%s): %w", i, cfg.CdcViewName, err)
			}
			a, err := gen.Artifacts(ctx)
			if err != nil {
				return fmt.Errorf("view %s: %w", gen.Config().CdcViewName, err)
			}
			var buf bytes.Buffer
			if err := writeOutput(&buf, opts.format, a); err != nil {
				return err
			}
			rendered[i] = buf.Bytes()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}
	for i, cfg := range cfgs {
		name := cfg.Normalize().CdcViewName + "." + opts.format
		if err := os.WriteFile(filepath.Join(opts.outDir, name), rendered[i], 0o644); err != nil {
			return err
		}
		logger.Get().Info("Wrote view", "view", cfg.CdcViewName, "file", name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d views into %s\n", len(cfgs), opts.outDir)
	return nil
}

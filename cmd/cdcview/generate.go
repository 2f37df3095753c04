package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pagopa/cdcview/internal/logger"
	"github.com/pagopa/cdcview/transform"
	"github.com/pagopa/cdcview/viewgen"
)

type generateOptions struct {
	file   string
	format string
	only   string
	cfg    viewgen.Config
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render the columns and views of one CDC table",
		Long: `Render the storage descriptor columns, the view and the union-all view of one
change data capture table. Parameters come from --file and are overridden by
the individual flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "View config file (YAML)")
	f.StringVarP(&opts.format, "output", "o", formatJSON, "Output format: json or yaml")
	f.StringVar(&opts.only, "only", "", "Print a single fragment: one of the macro output types")
	f.StringVar(&opts.cfg.CatalogName, "catalog", "", "Catalog name")
	f.StringVar(&opts.cfg.DatabaseName, "database", "", "Database name")
	f.StringVar(&opts.cfg.CdcTableName, "table", "", "CDC source table")
	f.StringVar(&opts.cfg.CdcParsedTableName, "parsed-table", "", "Compacted table read by the union-all view")
	f.StringVar(&opts.cfg.CdcViewName, "view", "", "View name")
	f.StringVar(&opts.cfg.CdcKeysType, "keys-type", "", "Hive type of the item keys")
	f.StringVar(&opts.cfg.CdcNewImageType, "new-image-type", "", "Hive type of the new image")
	f.StringVar(&opts.cfg.CdcRecordFilter, "filter", "", "Boolean SQL filter appended to the view")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	defaults := LoadCLIConfig()
	cfg, err := loadViewConfig(opts.file, defaults)
	if err != nil {
		return err
	}
	cfg = overrideConfig(cfg, opts.cfg)

	gen, err := viewgen.New(cfg)
	if err != nil {
		return err
	}
	a, err := gen.Artifacts(cmd.Context())
	if err != nil {
		return err
	}

	if err := primeStore(cmd, defaults.StoreDir, gen.Config(), a); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.only == "" {
		return writeOutput(out, opts.format, a)
	}
	output := transform.OutputType(opts.only)
	if !slices.Contains(transform.OutputTypes, output) {
		return fmt.Errorf("unknown output type %q", opts.only)
	}
	frag := transform.Fragments(a)[output]
	if frag.Columns == nil {
		_, err := fmt.Fprintln(out, frag.Text)
		return err
	}
	return writeOutput(out, opts.format, frag.Columns)
}

// overrideConfig replaces the fields of base that are set in flags.
func overrideConfig(base, flags viewgen.Config) viewgen.Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.CatalogName, flags.CatalogName)
	set(&base.DatabaseName, flags.DatabaseName)
	set(&base.CdcTableName, flags.CdcTableName)
	set(&base.CdcParsedTableName, flags.CdcParsedTableName)
	set(&base.CdcViewName, flags.CdcViewName)
	set(&base.CdcKeysType, flags.CdcKeysType)
	set(&base.CdcNewImageType, flags.CdcNewImageType)
	set(&base.CdcRecordFilter, flags.CdcRecordFilter)
	return base
}

// primeStore caches the fragments of a when a store directory is configured.
func primeStore(cmd *cobra.Command, dir string, cfg viewgen.Config, a *viewgen.Artifacts) error {
	store, err := openStore(dir)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	h := transform.NewHandler(transform.WithLogger(logger.Get()), transform.WithCache(store))
	h.Prime(cmd.Context(), cfg, a)
	logger.Get().Debug("Cached fragments", "view", cfg.CdcViewName, "dir", dir)
	return nil
}

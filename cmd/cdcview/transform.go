package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagopa/cdcview/internal/logger"
	"github.com/pagopa/cdcview/transform"
)

func newTransformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transform [event.json]",
		Short: "Answer a macro event",
		Long: `Read a macro event ({"requestId": ..., "params": {...}}) from a file or stdin
and print the response. Fragments are cached when a store directory is
configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTransform,
	}
}

func runTransform(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	var ev transform.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	opts := []transform.Option{transform.WithLogger(logger.Get())}
	store, err := openStore(LoadCLIConfig().StoreDir)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, transform.WithCache(store))
	}

	resp, err := transform.NewHandler(opts...).Handle(cmd.Context(), ev)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), formatJSON, resp)
}

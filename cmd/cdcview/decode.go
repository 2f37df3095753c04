package main

import (
	"github.com/spf13/cobra"

	"github.com/pagopa/cdcview/viewgen"
)

func newDecodeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "decode [view.txt]",
		Short: "Print the payload of a view's original text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			view, err := viewgen.DecodePrestoView(string(data))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), format, view)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatJSON, "Output format: json or yaml")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagopa/cdcview/hivetype"
)

func newParseCmd() *cobra.Command {
	var leaves bool

	cmd := &cobra.Command{
		Use:   "parse <type>",
		Short: "Print the canonical form of a Hive type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := hivetype.Parse(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !leaves {
				_, err := fmt.Fprintln(out, t.Sql())
				return err
			}
			ls, err := hivetype.Leaves(t)
			if err != nil {
				return err
			}
			for _, l := range ls {
				fmt.Fprintf(out, "%s\t%s\n", strings.Join(l.Path, "."), l.Type)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&leaves, "leaves", false, "List the simple-typed leaves with their paths")
	return cmd
}

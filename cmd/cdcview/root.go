package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pagopa/cdcview/internal/logger"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "cdcview",
		Short: "Athena views for DynamoDB change data capture tables",
		Long: fmt.Sprintf(`cdcview turns the Hive types of a DynamoDB table's keys and new image into
catalog columns and an Athena view that flattens the change records.

Version: %s@%s %s %s`, Version, GitCommit, platform(), BuildDate),
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetGlobal(logger.New(os.Stderr, debug), debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newGenerateCmd(),
		newBatchCmd(),
		newTransformCmd(),
		newParseCmd(),
		newDecodeCmd(),
		newInferCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cdcview v%s@%s %s %s\n", Version, GitCommit, platform(), BuildDate)
		},
	}
}

// platform returns the OS/architecture combination
func platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pagopa/cdcview/internal/logger"
	"github.com/pagopa/cdcview/server"
)

const defaultPort = 8080

func newServeCmd() *cobra.Command {
	var (
		port     int
		storeDir string
		memory   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transform macro and the generator over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadCLIConfig()
			if !cmd.Flags().Changed("port") && cfg.Port != 0 {
				port = cfg.Port
			}
			if storeDir == "" {
				storeDir = cfg.StoreDir
			}
			if memory {
				storeDir = ""
			}

			srv, err := server.NewServer(server.ServerConfig{Port: port, StoreDir: storeDir}, logger.Get())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.IntVar(&port, "port", defaultPort, "HTTP port")
	f.StringVar(&storeDir, "db", "", "Artifact database directory")
	f.BoolVar(&memory, "memory", false, "Keep artifacts in memory")
	return cmd
}

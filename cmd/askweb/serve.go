package main

import (
	"github.com/mohammad-safakhou/askweb/config"
	srv "github.com/mohammad-safakhou/askweb/internal/server"
	"github.com/spf13/cobra"
)

func serveCMD(load func() (*config.Config, error)) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if serveAddr != "" {
				cfg.Server.Address = serveAddr
				cfg.Normalize()
			}
			return srv.Run(cmd.Context(), cfg)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	return serve
}

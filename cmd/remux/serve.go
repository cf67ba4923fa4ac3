package main

import (
	"github.com/spf13/cobra"

	"github.com/ugparu/remux/internal/config"
	"github.com/ugparu/remux/internal/service"
	"github.com/ugparu/remux/utils/logger"
)

func newServeCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the post-processing algorithms over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			lvl, err := cfg.Level()
			if err != nil {
				return err
			}
			logger.Init(lvl)

			pool := service.NewPool(cfg.Workers)
			pool.Start()
			defer pool.Close()

			srv := service.NewServer(cfg, pool)
			if err = srv.Start(); err != nil {
				return err
			}
			logger.Infof(srv, "listening on %s", cfg.Addr)
			select {
			case <-cmd.Context().Done():
				logger.Info(srv, "shutting down")
			case <-srv.Dead():
				logger.Error(srv, "server stopped unexpectedly")
			}
			srv.Close()
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "YAML config file")
	return cmd
}

// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/bufalari/clientbook/clients"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveOptions struct {
	Listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clients HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("listen") {
			cfg.Listen = serveOptions.Listen
		}

		db, repo, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		geocoder, err := newGeocoder(ctx)
		if err != nil {
			return err
		}

		if cfg.LogFormat == "json" {
			gin.SetMode(gin.ReleaseMode)
		}

		server := clients.NewServer(newManager(repo, geocoder), repo.Ping, logger.Named("http"))

		logger.Info("starting clientbook",
			zap.String("version", Version),
			zap.String("driver", cfg.DBDriver),
			zap.String("listen", cfg.Listen),
		)

		return server.Run(cfg.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveOptions.Listen, "listen", "localhost:8080", "address to listen on")
}

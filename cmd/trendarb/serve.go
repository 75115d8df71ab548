// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lafarch/trendArbitrage/internal/logging"
	"github.com/lafarch/trendArbitrage/internal/server"
	"github.com/lafarch/trendArbitrage/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the analysis engine over HTTP:

  GET /api/analyze?keywords=a,b  run and return a ranked batch
  GET /api/trending?geo=US       list trending searches
  GET /healthz                   health probe
  GET /metrics                   Prometheus metrics

Runs are persisted to the run history as they complete.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	eng, trends, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	eng.Observe(server.FetchObserver{})

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logFormat, _ := rootCmd.PersistentFlags().GetString("log-format")
	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(eng, trends, st, cfg.Server, log)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pluzgi/chatbot-study/internal/votes"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve Swiss federal vote metadata for the study frontend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := []votes.FetcherOption{
			votes.WithMaxAge(time.Duration(cfg.Votes.CacheDays) * 24 * time.Hour),
			votes.WithRateLimit(cfg.Votes.RateLimitRPS),
		}
		if cfg.Votes.DatasetURL != "" {
			opts = append(opts, votes.WithDatasetURL(cfg.Votes.DatasetURL))
		}
		fetcher := votes.NewFetcher(cfg.Votes.DataDir, opts...)
		pdfs := votes.NewPDFCache(cfg.Votes.DataDir)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := votes.NewServer(fetcher, pdfs)
		return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

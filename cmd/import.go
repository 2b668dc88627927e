package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/store"
)

var importAI bool

var importCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Import a participant CSV export into the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Migrate(ctx); err != nil {
			return err
		}

		batchID, n, err := store.ImportCSV(ctx, s, args[0], importAI)
		if err != nil {
			return err
		}

		zap.L().Info("cmd: import complete",
			zap.String("batch_id", batchID),
			zap.Int("records", n),
			zap.String("driver", cfg.Store.Driver),
		)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Migrate(cmd.Context()); err != nil {
			return err
		}
		zap.L().Info("cmd: migration complete", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importAI, "ai", false, "mark imported records as AI-simulated participants")
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
}

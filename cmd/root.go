package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "chatbot-study",
	Short: "Analysis pipeline for the chatbot transparency and control study",
	Long:  "Loads participant records from Postgres, SQLite, or CSV exports and runs the six-phase statistical analysis of the 2x2 donation experiment. Also serves Swiss federal vote metadata for the study frontend.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

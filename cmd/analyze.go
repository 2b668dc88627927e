package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/phases"
	"github.com/pluzgi/chatbot-study/internal/report"
	"github.com/pluzgi/chatbot-study/internal/themes"
)

var (
	analyzeInput string
	analyzeOut   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run all six analysis phases and write the reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		fr, design, err := loadAnalysisSample(cmd.Context(), analyzeInput)
		if err != nil {
			return err
		}

		codebook, err := studyCodebook()
		if err != nil {
			return err
		}

		outDir := outputDir(analyzeOut)

		reports := []struct {
			name string
			rep  phaseReport
		}{
			{"phase1", phases.Phase1(fr, design)},
			{"phase2", phases.Phase2(fr, design)},
			{"phase3", phases.Phase3(fr, design)},
			{"phase4", phases.Phase4(fr, design)},
			{"phase5", phases.Phase5(fr, design)},
			{"phase6", phases.Phase6(fr, design, codebook)},
		}
		for _, r := range reports {
			if err := writePhase(r.name, r.rep, outDir); err != nil {
				return err
			}
		}

		zap.L().Info("cmd: analysis complete",
			zap.Int("n", fr.FinalN),
			zap.String("out", outDir),
		)
		return nil
	},
}

// phaseReport is the common surface of the six phase reports: a JSON-ready
// value that can also render itself as flat tables.
type phaseReport interface {
	Tables() []report.Table
}

// studyCodebook loads the configured theme codebook override, or returns
// nil to use the built-in default.
func studyCodebook() (*themes.Codebook, error) {
	if cfg.Study.ThemesFile == "" {
		return nil, nil
	}
	return themes.LoadCodebook(cfg.Study.ThemesFile)
}

func outputDir(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return cfg.Output.Dir
}

func writePhase(name string, rep phaseReport, outDir string) error {
	dir := filepath.Join(outDir, name)
	if err := report.WriteCSV(dir, rep.Tables()); err != nil {
		return err
	}
	if err := report.WriteJSON(filepath.Join(dir, name+".json"), rep); err != nil {
		return err
	}
	if cfg.Output.XLSX {
		if err := report.WriteXLSX(filepath.Join(dir, name+".xlsx"), rep.Tables()); err != nil {
			return err
		}
	}
	zap.L().Info("cmd: phase report written",
		zap.String("phase", name),
		zap.String("dir", dir),
	)
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "participant CSV export (default: load from the configured store)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "output directory (default from config)")
	rootCmd.AddCommand(analyzeCmd)
}

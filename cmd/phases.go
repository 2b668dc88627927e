package main

import (
	"github.com/spf13/cobra"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/phases"
)

var (
	phaseInput string
	phaseOut   string
)

// phaseCommand builds a cobra command running a single analysis phase.
func phaseCommand(name, short string, run func(dataset.FilterResult, model.StudyDesign) (phaseReport, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			fr, design, err := loadAnalysisSample(cmd.Context(), phaseInput)
			if err != nil {
				return err
			}
			rep, err := run(fr, design)
			if err != nil {
				return err
			}
			return writePhase(name, rep, outputDir(phaseOut))
		},
	}
}

func init() {
	cmds := []*cobra.Command{
		phaseCommand("phase1", "Descriptive statistics and sample characterization",
			func(fr dataset.FilterResult, d model.StudyDesign) (phaseReport, error) { return phases.Phase1(fr, d), nil }),
		phaseCommand("phase2", "Bivariate hypothesis tests of the main effects",
			func(fr dataset.FilterResult, d model.StudyDesign) (phaseReport, error) { return phases.Phase2(fr, d), nil }),
		phaseCommand("phase3", "Logistic regression model building and diagnostics",
			func(fr dataset.FilterResult, d model.StudyDesign) (phaseReport, error) { return phases.Phase3(fr, d), nil }),
		phaseCommand("phase4", "Marginal effects and interaction decomposition",
			func(fr dataset.FilterResult, d model.StudyDesign) (phaseReport, error) { return phases.Phase4(fr, d), nil }),
		phaseCommand("phase5", "Manipulation checks for both factors",
			func(fr dataset.FilterResult, d model.StudyDesign) (phaseReport, error) { return phases.Phase5(fr, d), nil }),
		phaseCommand("phase6", "Qualitative coding of open feedback and dashboard behavior",
			func(fr dataset.FilterResult, d model.StudyDesign) (phaseReport, error) {
				codebook, err := studyCodebook()
				if err != nil {
					return nil, err
				}
				return phases.Phase6(fr, d, codebook), nil
			}),
	}
	for _, c := range cmds {
		c.Flags().StringVar(&phaseInput, "input", "", "participant CSV export (default: load from the configured store)")
		c.Flags().StringVar(&phaseOut, "out", "", "output directory (default from config)")
		rootCmd.AddCommand(c)
	}
}

package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/store"
)

// openStore builds the participant store named by the configured driver.
func openStore(ctx context.Context) (store.ParticipantStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("cmd: unknown store driver %q", cfg.Store.Driver)
	}
}

// loadParticipants reads raw participant records either from a CSV export
// (when path is non-empty) or from the configured store.
func loadParticipants(ctx context.Context, csvPath string) ([]model.Participant, error) {
	if csvPath != "" {
		return store.ReadParticipantsCSV(csvPath)
	}

	s, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.LoadParticipants(ctx, store.ParticipantFilter{
		AIParticipants: cfg.Study.AIParticipants,
	})
}

// loadAnalysisSample loads, derives, and filters the analysis sample shared
// by all phases. It fails when no analyzable records remain.
func loadAnalysisSample(ctx context.Context, csvPath string) (dataset.FilterResult, model.StudyDesign, error) {
	design := cfg.StudyDesign()

	raw, err := loadParticipants(ctx, csvPath)
	if err != nil {
		return dataset.FilterResult{}, design, err
	}

	rows := dataset.Prepare(raw, design)
	fr := dataset.Filter(rows)

	zap.L().Info("cmd: analysis sample ready",
		zap.Int("initial_n", fr.InitialN),
		zap.Int("excluded_attention", fr.ExcludedAttention),
		zap.Int("excluded_missing_condition", fr.ExcludedMissingCondition),
		zap.Int("excluded_missing_donation", fr.ExcludedMissingDonation),
		zap.Int("final_n", fr.FinalN),
	)

	if fr.FinalN == 0 {
		return fr, design, eris.New("cmd: no analyzable participants after exclusions")
	}
	return fr, design, nil
}

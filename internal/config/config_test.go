package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.InDelta(t, 0.05, cfg.Study.Alpha, 1e-12)
	assert.Equal(t, 3, cfg.Study.BonferroniTests)
	assert.Equal(t, 1000, cfg.Study.BootstrapDraws)
	assert.Equal(t, int64(42), cfg.Study.BootstrapSeed)
	assert.InDelta(t, 5.0, cfg.Study.InteractionThresholdPP, 1e-12)
	assert.Equal(t, "voting", cfg.Study.AttentionKeyword)
	assert.Equal(t, "results", cfg.Output.Dir)
	assert.Equal(t, 7, cfg.Votes.CacheDays)
	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CHATBOT_STUDY_STUDY_ALPHA", "0.01")
	t.Setenv("CHATBOT_STUDY_STORE_DRIVER", "sqlite")
	t.Setenv("CHATBOT_STUDY_SERVER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.01, cfg.Study.Alpha, 1e-12)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
study:
  bootstrap_draws: 200
  bootstrap_seed: 7
output:
  dir: out
  xlsx: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Study.BootstrapDraws)
	assert.Equal(t, int64(7), cfg.Study.BootstrapSeed)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.False(t, cfg.Output.XLSX)
}

func TestStudyDesign_FromConfig(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	design := cfg.StudyDesign()
	assert.InDelta(t, 0.05, design.Alpha, 1e-12)
	assert.Equal(t, int64(42), design.BootstrapSeed)
	assert.InDelta(t, 5.0, design.InteractionThresholdPP, 1e-12)
	assert.Equal(t, "voting", design.AttentionKeyword)
	assert.Len(t, design.ConditionMap, 4)

	cfg.Study.Alpha = 0.1
	cfg.Study.InteractionThresholdPP = 10
	design = cfg.StudyDesign()
	assert.InDelta(t, 0.1, design.Alpha, 1e-12)
	assert.InDelta(t, 10.0, design.InteractionThresholdPP, 1e-12)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

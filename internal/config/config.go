// Package config loads the application configuration from an optional YAML
// file with CHATBOT_STUDY-prefixed environment overrides, and initializes
// the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Study  StudyConfig  `yaml:"study" mapstructure:"study"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Votes  VotesConfig  `yaml:"votes" mapstructure:"votes"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the participant database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string            `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// StudyConfig carries the experimental design parameters.
type StudyConfig struct {
	Alpha                  float64 `yaml:"alpha" mapstructure:"alpha"`
	BonferroniTests        int     `yaml:"bonferroni_tests" mapstructure:"bonferroni_tests"`
	BootstrapDraws         int     `yaml:"bootstrap_draws" mapstructure:"bootstrap_draws"`
	BootstrapSeed          int64   `yaml:"bootstrap_seed" mapstructure:"bootstrap_seed"`
	InteractionThresholdPP float64 `yaml:"interaction_threshold_pp" mapstructure:"interaction_threshold_pp"`
	AttentionKeyword       string  `yaml:"attention_keyword" mapstructure:"attention_keyword"`
	AIParticipants         bool    `yaml:"ai_participants" mapstructure:"ai_participants"`
	ThemesFile             string  `yaml:"themes_file" mapstructure:"themes_file"`
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	XLSX bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// VotesConfig configures the vote metadata service.
type VotesConfig struct {
	DataDir      string  `yaml:"data_dir" mapstructure:"data_dir"`
	DatasetURL   string  `yaml:"dataset_url" mapstructure:"dataset_url"`
	CacheDays    int     `yaml:"cache_days" mapstructure:"cache_days"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHATBOT_STUDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "chatbot_study.db")
	v.SetDefault("study.alpha", 0.05)
	v.SetDefault("study.bonferroni_tests", 3)
	v.SetDefault("study.bootstrap_draws", 1000)
	v.SetDefault("study.bootstrap_seed", 42)
	v.SetDefault("study.interaction_threshold_pp", 5.0)
	v.SetDefault("study.attention_keyword", "voting")
	v.SetDefault("study.ai_participants", false)
	v.SetDefault("output.dir", "results")
	v.SetDefault("output.xlsx", true)
	v.SetDefault("votes.data_dir", "data")
	v.SetDefault("votes.dataset_url", "https://swissvotes.ch/page/dataset/swissvotes_dataset.csv")
	v.SetDefault("votes.cache_days", 7)
	v.SetDefault("votes.rate_limit_rps", 1.0)
	v.SetDefault("server.port", 5001)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// StudyDesign maps the configured parameters onto the registered 2x2
// design. The condition-to-factor mapping itself is fixed by the
// preregistration and not configurable.
func (c *Config) StudyDesign() model.StudyDesign {
	design := model.DefaultStudyDesign()
	if c.Study.Alpha > 0 {
		design.Alpha = c.Study.Alpha
	}
	if c.Study.BonferroniTests > 0 {
		design.BonferroniTests = c.Study.BonferroniTests
	}
	if c.Study.BootstrapDraws > 0 {
		design.BootstrapDraws = c.Study.BootstrapDraws
	}
	design.BootstrapSeed = c.Study.BootstrapSeed
	if c.Study.InteractionThresholdPP > 0 {
		design.InteractionThresholdPP = c.Study.InteractionThresholdPP
	}
	if c.Study.AttentionKeyword != "" {
		design.AttentionKeyword = c.Study.AttentionKeyword
	}
	return design
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultTopN       = 10
	DefaultWidth      = 2000
	DefaultHeight     = 2000
	DefaultMaxWords   = 200
	DefaultBackground = "white"
	DefaultOutputDir  = "."
	DefaultFormat     = "text"
)

type Config struct {
	Analysis  AnalysisConfig  `json:"analysis"`
	WordCloud WordCloudConfig `json:"wordcloud"`
	Telegram  TelegramConfig  `json:"telegram"`
	Schedule  ScheduleConfig  `json:"schedule"`
}

type AnalysisConfig struct {
	TopN int `json:"topN"`
	// StopwordsPath replaces the embedded Persian list when set.
	StopwordsPath string `json:"stopwordsPath,omitempty"`
	// PersianDigits folds ASCII and Arabic-Indic digits during normalization.
	PersianDigits bool   `json:"persianDigits"`
	Format        string `json:"format"`
}

type WordCloudConfig struct {
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Background string   `json:"background"`
	FontPath   string   `json:"fontPath,omitempty"`
	MaxWords   int      `json:"maxWords"`
	Colors     []string `json:"colors,omitempty"`
	OutputDir  string   `json:"outputDir"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chatId"`
	Proxy   string `json:"proxy,omitempty"`
}

type ScheduleConfig struct {
	Jobs []JobConfig `json:"jobs,omitempty"`
}

// JobConfig describes a recurring report.
type JobConfig struct {
	Name       string `json:"name"`
	Expr       string `json:"expr"` // standard 5-field cron expression
	Transcript string `json:"transcript"`
	OutputDir  string `json:"outputDir,omitempty"`
	Publish    bool   `json:"publish"`
	Enabled    bool   `json:"enabled"`
}

func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			TopN:          DefaultTopN,
			PersianDigits: true,
			Format:        DefaultFormat,
		},
		WordCloud: WordCloudConfig{
			Width:      DefaultWidth,
			Height:     DefaultHeight,
			Background: DefaultBackground,
			MaxWords:   DefaultMaxWords,
			OutputDir:  DefaultOutputDir,
		},
		Telegram: TelegramConfig{},
		Schedule: ScheduleConfig{},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".chatstats")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	// .env files never override variables that are already set
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(ConfigDir(), ".env"))

	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("CHATSTATS_TOP_N"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.TopN = parsed
		}
	}
	if v := os.Getenv("CHATSTATS_STOPWORDS"); v != "" {
		cfg.Analysis.StopwordsPath = v
	}
	if v := os.Getenv("CHATSTATS_FORMAT"); v != "" {
		cfg.Analysis.Format = v
	}
	if v := os.Getenv("CHATSTATS_FONT"); v != "" {
		cfg.WordCloud.FontPath = v
	}
	if v := os.Getenv("CHATSTATS_OUTPUT_DIR"); v != "" {
		cfg.WordCloud.OutputDir = v
	}
	if v := os.Getenv("CHATSTATS_WIDTH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.WordCloud.Width = parsed
		}
	}
	if v := os.Getenv("CHATSTATS_HEIGHT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.WordCloud.Height = parsed
		}
	}
	if v := os.Getenv("CHATSTATS_BACKGROUND"); v != "" {
		cfg.WordCloud.Background = v
	}
	if v := os.Getenv("CHATSTATS_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("CHATSTATS_TELEGRAM_CHAT_ID"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Telegram.ChatID = parsed
		}
	}
	if v := os.Getenv("CHATSTATS_TELEGRAM_PROXY"); v != "" {
		cfg.Telegram.Proxy = v
	}

	if cfg.WordCloud.Width <= 0 {
		cfg.WordCloud.Width = DefaultWidth
	}
	if cfg.WordCloud.Height <= 0 {
		cfg.WordCloud.Height = DefaultHeight
	}
	if cfg.WordCloud.MaxWords <= 0 {
		cfg.WordCloud.MaxWords = DefaultMaxWords
	}
	if cfg.WordCloud.Background == "" {
		cfg.WordCloud.Background = DefaultBackground
	}
	if cfg.WordCloud.OutputDir == "" {
		cfg.WordCloud.OutputDir = DefaultOutputDir
	}
	if cfg.Analysis.Format == "" {
		cfg.Analysis.Format = DefaultFormat
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}

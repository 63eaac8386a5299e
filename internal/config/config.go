package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type AppConfig struct {
	RedisURL    string `mapstructure:"REDIS_URL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	TimeControl string `mapstructure:"CHESS_TIME_CONTROL"`
	WhitePlayer string `mapstructure:"CHESS_WHITE_PLAYER"`
	BlackPlayer string `mapstructure:"CHESS_BLACK_PLAYER"`
	StartFEN    string `mapstructure:"CHESS_START_FEN"`
	Rated       bool   `mapstructure:"CHESS_RATED"`
	MaxPlies    int    `mapstructure:"CHESS_MAX_PLIES"`

	ProfilesDir   string `mapstructure:"CHESS_PROFILES_DIR"`
	MessagesDir   string `mapstructure:"CHESS_MESSAGES_DIR"`
	BookPath      string `mapstructure:"CHESS_POLYGLOT_BOOK_PATH"`
	SearchWorkers int    `mapstructure:"CHESS_SEARCH_WORKERS"`
	RandomSeed    int64  `mapstructure:"CHESS_RANDOM_SEED"`

	SessionTTLSec int `mapstructure:"CHESS_SESSION_TTL_SEC"`
	HistoryLimit  int `mapstructure:"CHESS_HISTORY_LIMIT"`
}

var defaults = map[string]any{
	"REDIS_URL":                "",
	"DATABASE_URL":             "",
	"CHESS_TIME_CONTROL":       "none",
	"CHESS_WHITE_PLAYER":       "human",
	"CHESS_BLACK_PLAYER":       "level3",
	"CHESS_START_FEN":          "",
	"CHESS_RATED":              false,
	"CHESS_MAX_PLIES":          0,
	"CHESS_PROFILES_DIR":       "",
	"CHESS_MESSAGES_DIR":       "",
	"CHESS_POLYGLOT_BOOK_PATH": "",
	"CHESS_SEARCH_WORKERS":     0,
	"CHESS_RANDOM_SEED":        0,
	"CHESS_SESSION_TTL_SEC":    3600,
	"CHESS_HISTORY_LIMIT":      10,
}

// Load 는 환경변수를 읽는다. CHESS_CONFIG 가 있으면 그 파일 값을 먼저 깔고 환경변수가 덮는다.
func Load() (*AppConfig, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("CHESS_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() {
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.TimeControl = strings.TrimSpace(c.TimeControl)
	c.WhitePlayer = strings.TrimSpace(c.WhitePlayer)
	c.BlackPlayer = strings.TrimSpace(c.BlackPlayer)
	c.StartFEN = strings.TrimSpace(c.StartFEN)
	c.ProfilesDir = strings.TrimSpace(c.ProfilesDir)
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)
	c.BookPath = strings.TrimSpace(c.BookPath)
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.WhitePlayer == "" || c.BlackPlayer == "" {
		errs = append(errs, errors.New("CHESS_WHITE_PLAYER and CHESS_BLACK_PLAYER must not be empty"))
	}
	if c.MaxPlies < 0 {
		errs = append(errs, fmt.Errorf("CHESS_MAX_PLIES must be >= 0, got %d", c.MaxPlies))
	}
	if c.SearchWorkers < 0 {
		errs = append(errs, fmt.Errorf("CHESS_SEARCH_WORKERS must be >= 0, got %d", c.SearchWorkers))
	}
	if c.SessionTTLSec <= 0 {
		errs = append(errs, fmt.Errorf("CHESS_SESSION_TTL_SEC must be > 0, got %d", c.SessionTTLSec))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("CHESS_HISTORY_LIMIT must be > 0, got %d", c.HistoryLimit))
	}
	return errors.Join(errs...)
}

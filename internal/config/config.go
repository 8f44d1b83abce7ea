// internal/config/config.go
//
// Server configuration.
// Sources, lowest to highest precedence:
//   - Built-in defaults (Default).
//   - Optional YAML file (CONFIG_FILE, default config.yaml).
//   - Environment, after loading .env when present.
//
// Validate rejects settings the game cannot run with (odd default grid,
// default delay outside the offered choices, ...).

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all server settings.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	APOD        APODConfig        `yaml:"apod"`
	Game        GameConfig        `yaml:"game"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
}

// ServerConfig holds HTTP and process settings.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	LogLevel     string        `yaml:"log_level"`
	LogPretty    bool          `yaml:"log_pretty"`
	ClientOrigin string        `yaml:"client_origin"`
	JWTSecret    string        `yaml:"jwt_secret"`
	Production   bool          `yaml:"production"`
	RatePerSec   float64       `yaml:"rate_per_sec"`
	RateBurst    int           `yaml:"rate_burst"`
	SessionIdle  time.Duration `yaml:"session_idle"`
}

// APODConfig holds image source settings.
type APODConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	Overfetch  int           `yaml:"overfetch"` // extra entries requested to cover videos
}

// GameConfig holds round settings offered to players.
type GameConfig struct {
	DefaultRows         int   `yaml:"default_rows"`
	DefaultCols         int   `yaml:"default_cols"`
	MinDim              int   `yaml:"min_dim"`
	MaxDim              int   `yaml:"max_dim"`
	DelayChoicesSeconds []int `yaml:"delay_choices_seconds"`
	DefaultDelaySeconds int   `yaml:"default_delay_seconds"`
	PeekSeconds         int   `yaml:"peek_seconds"`
}

// LeaderboardConfig holds score persistence settings. An empty DBPath keeps
// scores in memory.
type LeaderboardConfig struct {
	DBPath string `yaml:"db_path"`
	Size   int    `yaml:"size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "5175",
			LogLevel:     "info",
			ClientOrigin: "http://localhost:5173",
			JWTSecret:    "dev_secret_change_me",
			RatePerSec:   20,
			RateBurst:    40,
			SessionIdle:  30 * time.Minute,
		},
		APOD: APODConfig{
			BaseURL:    "https://api.nasa.gov",
			APIKey:     "DEMO_KEY",
			Timeout:    10 * time.Second,
			RatePerSec: 1,
			Overfetch:  6,
		},
		Game: GameConfig{
			DefaultRows:         4,
			DefaultCols:         4,
			MinDim:              2,
			MaxDim:              10,
			DelayChoicesSeconds: []int{1, 2, 3},
			DefaultDelaySeconds: 1,
			PeekSeconds:         3,
		},
		Leaderboard: LeaderboardConfig{
			DBPath: "./data/scores.db",
			Size:   10,
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if present),
// then applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only configuration
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides cfg with any environment variables that are set.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		cfg.Server.LogPretty = v == "true"
	}
	if v := os.Getenv("CLIENT_ORIGIN"); v != "" {
		cfg.Server.ClientOrigin = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := os.Getenv("NODE_ENV"); v != "" {
		cfg.Server.Production = v == "production"
	}
	if v, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Leaderboard.DBPath = v
	}
	if v := os.Getenv("NASA_API_KEY"); v != "" {
		cfg.APOD.APIKey = v
	}
	if v := os.Getenv("APOD_BASE_URL"); v != "" {
		cfg.APOD.BaseURL = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"LEADERBOARD_SIZE", &cfg.Leaderboard.Size},
		{"PEEK_SECONDS", &cfg.Game.PeekSeconds},
		{"DEFAULT_ROWS", &cfg.Game.DefaultRows},
		{"DEFAULT_COLS", &cfg.Game.DefaultCols},
		{"DEFAULT_DELAY_SECONDS", &cfg.Game.DefaultDelaySeconds},
	}
	for _, kv := range ints {
		v := os.Getenv(kv.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", kv.key, err)
		}
		*kv.dst = n
	}

	if v := os.Getenv("DELAY_CHOICES_SECONDS"); v != "" {
		var choices []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("DELAY_CHOICES_SECONDS: %w", err)
			}
			choices = append(choices, n)
		}
		cfg.Game.DelayChoicesSeconds = choices
	}
	return nil
}

// Validate rejects settings the game cannot run with.
func (c *Config) Validate() error {
	g := c.Game
	if g.MinDim < 1 || g.MaxDim < g.MinDim {
		return fmt.Errorf("invalid grid bounds %d..%d", g.MinDim, g.MaxDim)
	}
	if g.DefaultRows < g.MinDim || g.DefaultRows > g.MaxDim || g.DefaultCols < g.MinDim || g.DefaultCols > g.MaxDim {
		return fmt.Errorf("default grid %dx%d outside %d..%d", g.DefaultRows, g.DefaultCols, g.MinDim, g.MaxDim)
	}
	if (g.DefaultRows*g.DefaultCols)%2 != 0 {
		return fmt.Errorf("default grid %dx%d has an odd number of cards", g.DefaultRows, g.DefaultCols)
	}
	if len(g.DelayChoicesSeconds) == 0 {
		return errors.New("at least one mismatch delay choice is required")
	}
	for _, d := range g.DelayChoicesSeconds {
		if d <= 0 {
			return fmt.Errorf("mismatch delay choice %d must be positive", d)
		}
	}
	if !slices.Contains(g.DelayChoicesSeconds, g.DefaultDelaySeconds) {
		return fmt.Errorf("default delay %ds is not one of %v", g.DefaultDelaySeconds, g.DelayChoicesSeconds)
	}
	if g.PeekSeconds < 0 {
		return fmt.Errorf("peek seconds must not be negative")
	}
	if c.Leaderboard.Size <= 0 {
		return fmt.Errorf("leaderboard size must be positive")
	}
	if c.Server.Port == "" {
		return errors.New("port is required")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultEnvFile   = "auth.env"
	DefaultBaseURL   = "https://api.mangadex.org"
	DefaultUserAgent = "mdhold/1.0"

	// JournalOff disables the run journal.
	JournalOff = "off"

	TokenStoreEnvFile = "envfile"
	TokenStoreKeyring = "keyring"
)

// RefreshTokenKey is the env file key the refresh token is kept under.
const RefreshTokenKey = "refresh_token"

type Config struct {
	EnvFile string

	BaseURL   string
	UserAgent string

	Username     string
	Password     string
	RefreshToken string

	RateCalls    int
	RatePeriod   time.Duration
	RateStrategy string

	TokenStore  string
	JournalPath string
	LogLevel    string
}

// Load reads envFile (a missing file is fine) and the process environment.
// Process environment wins over the file, the same as godotenv.Load.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	fileVals, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
		fileVals = map[string]string{}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return fileVals[key]
	}

	cfg := &Config{
		EnvFile:      envFile,
		BaseURL:      getString(lookup, "MANGADEX_BASE_URL", DefaultBaseURL),
		UserAgent:    getString(lookup, "MDHOLD_USER_AGENT", DefaultUserAgent),
		Username:     lookup("MANGADEX_USERNAME"),
		Password:     lookup("MANGADEX_PASSWORD"),
		RefreshToken: getString(lookup, "MANGADEX_REFRESH_TOKEN", lookup(RefreshTokenKey)),
		RateStrategy: getString(lookup, "MDHOLD_RATE_STRATEGY", "window"),
		TokenStore:   getString(lookup, "MDHOLD_TOKEN_STORE", TokenStoreEnvFile),
		JournalPath:  getString(lookup, "MDHOLD_JOURNAL", defaultJournalPath()),
		LogLevel:     getString(lookup, "MDHOLD_LOG_LEVEL", "info"),
	}

	if cfg.RateCalls, err = getInt(lookup, "MANGADEX_RATE_CALLS", 5); err != nil {
		return nil, err
	}
	if cfg.RatePeriod, err = getDuration(lookup, "MANGADEX_RATE_PERIOD", time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that flags may have overridden after Load.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL must not be empty")
	}
	if c.RateCalls <= 0 {
		return fmt.Errorf("rate calls must be positive, got %d", c.RateCalls)
	}
	if c.RatePeriod <= 0 {
		return fmt.Errorf("rate period must be positive, got %s", c.RatePeriod)
	}
	switch c.RateStrategy {
	case "window", "smooth":
	default:
		return fmt.Errorf("rate strategy must be window or smooth, got %q", c.RateStrategy)
	}
	switch c.TokenStore {
	case TokenStoreEnvFile, TokenStoreKeyring:
	default:
		return fmt.Errorf("token store must be %s or %s, got %q", TokenStoreEnvFile, TokenStoreKeyring, c.TokenStore)
	}
	return nil
}

// JournalEnabled reports whether runs should be journalled.
func (c *Config) JournalEnabled() bool {
	return c.JournalPath != "" && c.JournalPath != JournalOff
}

func defaultJournalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return JournalOff
	}
	return filepath.Join(home, ".mdhold", "journal.db")
}

func getString(lookup func(string) string, key, def string) string {
	if v := lookup(key); v != "" {
		return v
	}
	return def
}

func getInt(lookup func(string) string, key string, def int) (int, error) {
	v := lookup(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getDuration accepts Go durations ("1s", "500ms") or plain seconds ("2").
func getDuration(lookup func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := lookup(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// MaskSecret shortens a token for logging.
func MaskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

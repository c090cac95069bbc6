package config

import (
	"errors"
	"os"
	"shrinkurl/internal/shortcode"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the application configuration.
type Config struct {
	ServerPort      string `env:"SERVER_PORT,default=:8080"`
	DatabaseURL     string `env:"DATABASE_URL,required"`
	DatabaseDialect string `env:"DATABASE_DIALECT,default=postgres"`
	BaseURL         string `env:"BASE_URL,default=http://localhost:8080/"`
	AllowedDomains  string `env:"ALLOWED_DOMAINS"` // Comma-separated list of allowed domains

	ShortCodeAlphabet    string `env:"SHORTCODE_ALPHABET"`
	ShortCodeLength      int    `env:"SHORTCODE_LENGTH,default=5"`
	ShortCodeDriver      string `env:"SHORTCODE_DRIVER,default=sequential"`
	ShortCodeSeed        uint64 `env:"SHORTCODE_SEED"`
	ShortCodeMaxAttempts int    `env:"SHORTCODE_MAX_ATTEMPTS"`

	PreviewEnabled        bool   `env:"PREVIEW_ENABLED"`
	PreviewWorkerCount    int    `env:"PREVIEW_WORKER_COUNT,default=2"`
	PreviewTimeoutSeconds int    `env:"PREVIEW_TIMEOUT_SECONDS,default=60"`
	RodBinPath            string `env:"ROD_BIN_PATH"` // Optional, if not in default PATH

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogPretty bool   `env:"LOG_PRETTY"`
}

var AppConfig *Config

// ErrMissingDatabaseURL is returned by LoadConfig when DATABASE_URL is unset.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")

// LoadConfig loads configuration from environment variables.
// It looks for a .env file in the current directory for development convenience.
func LoadConfig() error {
	// Attempt to load .env file, but don't fail if it's not there (for production)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DatabaseDialect: getEnv("DATABASE_DIALECT", "postgres"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080/"),
		AllowedDomains:  getEnv("ALLOWED_DOMAINS", ""), // Empty means allow all

		ShortCodeAlphabet:    getEnv("SHORTCODE_ALPHABET", shortcode.DefaultAlphabet),
		ShortCodeLength:      getEnvInt("SHORTCODE_LENGTH", shortcode.DefaultLength),
		ShortCodeDriver:      getEnv("SHORTCODE_DRIVER", shortcode.DriverSequential),
		ShortCodeSeed:        getEnvUint64("SHORTCODE_SEED", 0),
		ShortCodeMaxAttempts: getEnvInt("SHORTCODE_MAX_ATTEMPTS", 0),

		PreviewEnabled:        getEnvBool("PREVIEW_ENABLED", false),
		PreviewWorkerCount:    getEnvInt("PREVIEW_WORKER_COUNT", 2),
		PreviewTimeoutSeconds: getEnvInt("PREVIEW_TIMEOUT_SECONDS", 60),
		RodBinPath:            getEnv("ROD_BIN_PATH", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),
	}

	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	AppConfig = cfg

	if cfg.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// ShortCode returns the generator configuration.
func (c *Config) ShortCode() shortcode.Config {
	return shortcode.Config{
		Alphabet:    c.ShortCodeAlphabet,
		Length:      c.ShortCodeLength,
		Driver:      c.ShortCodeDriver,
		Seed:        c.ShortCodeSeed,
		MaxAttempts: c.ShortCodeMaxAttempts,
	}
}

// AllowedDomainList splits AllowedDomains into trimmed, non-empty hostnames.
func (c *Config) AllowedDomainList() []string {
	if c.AllowedDomains == "" {
		return nil
	}
	var domains []string
	for _, d := range strings.Split(c.AllowedDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Int("fallback", fallback).Msg("invalid integer in environment, using fallback")
		return fallback
	}
	return n
}

func getEnvUint64(key string, fallback uint64) uint64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Uint64("fallback", fallback).Msg("invalid unsigned integer in environment, using fallback")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Bool("fallback", fallback).Msg("invalid boolean in environment, using fallback")
		return fallback
	}
	return b
}

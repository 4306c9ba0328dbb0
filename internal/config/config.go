package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kitbuilder587/predictive-search/internal/domain"
)

var (
	ErrMissingToken      = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingDB         = errors.New("DATABASE_URL is required")
	ErrInvalidBaseURL    = errors.New("SUGGEST_BASE_URL must be an absolute http(s) url")
	ErrInvalidDebounce   = errors.New("SUGGEST_DEBOUNCE_MS must not be negative")
	ErrInvalidCacheSize  = errors.New("SUGGEST_CACHE_SIZE must be at least 1")
	ErrInvalidServerAddr = errors.New("SERVER_ADDR is required")
)

type Config struct {
	Suggest   SuggestConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Telegram  TelegramConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

// SuggestConfig - настройки клиента предиктивного поиска.
type SuggestConfig struct {
	BaseURL   string
	Debounce  time.Duration
	CacheSize int
	Timeout   time.Duration
	Search    domain.SearchOptions
}

type ServerConfig struct {
	Addr string
}

type DatabaseConfig struct {
	URL string
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type LogConfig struct {
	Level string
	// File - писать логи в файл вместо stderr (нужно для TUI)
	File string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

func Load() (*Config, error) {
	cfg := &Config{
		Suggest: SuggestConfig{
			BaseURL:   getEnvOrDefault("SUGGEST_BASE_URL", "http://localhost:8080"),
			Debounce:  time.Duration(getEnvIntOrDefault("SUGGEST_DEBOUNCE_MS", 10)) * time.Millisecond,
			CacheSize: getEnvIntOrDefault("SUGGEST_CACHE_SIZE", 40),
			Timeout:   time.Duration(getEnvIntOrDefault("SUGGEST_TIMEOUT_SEC", 10)) * time.Second,
			Search: domain.SearchOptions{
				Types:               domain.ParseResultTypes(getEnvOrDefault("SUGGEST_TYPES", "product")),
				Limit:               getEnvIntOrDefault("SUGGEST_LIMIT", domain.MaxLimit),
				UnavailableProducts: getEnvOrDefault("SUGGEST_UNAVAILABLE_PRODUCTS", "last"),
				Fields:              splitList(os.Getenv("SUGGEST_FIELDS")),
			},
		},
		Server: ServerConfig{
			Addr: getEnvOrDefault("SERVER_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug: getEnvBool("TELEGRAM_DEBUG"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			File:  os.Getenv("LOG_FILE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Suggest.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.Suggest.Debounce < 0 {
		return ErrInvalidDebounce
	}
	if c.Suggest.CacheSize < 1 {
		return ErrInvalidCacheSize
	}
	if err := c.Suggest.Search.Validate(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return ErrInvalidServerAddr
	}
	return nil
}

// RequireDatabase - для suggestd, остальным бинарникам база не нужна.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrMissingDB
	}
	return nil
}

func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// DomainConfig собирает конфиг для predictive.New.
func (c *Config) DomainConfig() *domain.Config {
	opts := c.Suggest.Search
	return &domain.Config{Search: &opts}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

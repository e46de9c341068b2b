// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	LogLevel         string
	AllowedUsers     []int64

	StoreBackend  string
	DatabasePath  string
	MongoURI      string
	MongoDatabase string
	StoreTimeout  time.Duration

	PageSize       int
	SearchDebounce time.Duration
	ReportTTL      time.Duration
	SweepSchedule  string

	EmailFrom     string
	EmailPass     string
	SMTPAddr      string
	EmailEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	backend := strings.ToLower(envOrDefault("STORE_BACKEND", BackendSQLite))
	mongoURI := os.Getenv("MONGODB_URI")
	switch backend {
	case BackendSQLite:
	case BackendMongo:
		if mongoURI == "" {
			return nil, errors.New("MONGODB_URI is required for the mongo backend")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}

	pageSize, err := positiveInt("PAGE_SIZE", 3)
	if err != nil {
		return nil, err
	}
	debounceMS, err := positiveInt("SEARCH_DEBOUNCE_MS", 400)
	if err != nil {
		return nil, err
	}
	ttlDays, err := positiveInt("REPORT_TTL_DAYS", 180)
	if err != nil {
		return nil, err
	}
	timeoutSec, err := positiveInt("STORE_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken: token,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		AllowedUsers:     allowedUsers,
		StoreBackend:     backend,
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/findit.db"),
		MongoURI:         mongoURI,
		MongoDatabase:    envOrDefault("MONGODB_DATABASE", "findit"),
		StoreTimeout:     time.Duration(timeoutSec) * time.Second,
		PageSize:         pageSize,
		SearchDebounce:   time.Duration(debounceMS) * time.Millisecond,
		ReportTTL:        time.Duration(ttlDays) * 24 * time.Hour,
		SweepSchedule:    envOrDefault("SWEEP_SCHEDULE", "@every 1h"),
		EmailFrom:        os.Getenv("EMAIL_FROM"),
		EmailPass:        os.Getenv("EMAIL_PASS"),
		SMTPAddr:         envOrDefault("SMTP_ADDR", "smtp.gmail.com:587"),
		EmailEndpoint:    os.Getenv("EMAIL_ENDPOINT"),
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}

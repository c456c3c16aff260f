package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	AdminTelegramID int64
	LogLevel        string
	Environment     string

	StoreDriver string // postgres, sqlite or memory
	DatabaseURL string
	SQLitePath  string

	CronSpecDayRollover string
	DefaultLeadMinutes  int
	PermissionTimeout   time.Duration

	PrayerAPIBaseURL    string
	PrayerAPIMethod     int
	PrayerAPISchool     int
	PrayerAPIRatePerSec int

	RedisAddress   string // Empty disables the timetable cache
	RedisUsername  string
	RedisPassword  string
	PrayerCacheTTL time.Duration

	AMQPURL      string // Empty disables reminder publishing
	AMQPExchange string

	HTTPAddr string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", "postgres"))
	switch cfg.StoreDriver {
	case "postgres":
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case "sqlite", "memory":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: expected postgres, sqlite or memory", cfg.StoreDriver)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "./data/prayer.db")

	cfg.CronSpecDayRollover = getenvDefault("CRON_SPEC_DAY_ROLLOVER", "1 0 * * *") // 00:01 daily

	if cfg.DefaultLeadMinutes, err = getenvInt("DEFAULT_LEAD_MINUTES", 5); err != nil {
		return nil, err
	}
	if cfg.DefaultLeadMinutes < 1 || cfg.DefaultLeadMinutes > 120 {
		return nil, fmt.Errorf("DEFAULT_LEAD_MINUTES must be between 1 and 120, got %d", cfg.DefaultLeadMinutes)
	}
	if cfg.PermissionTimeout, err = getenvDuration("PERMISSION_PROMPT_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}

	cfg.PrayerAPIBaseURL = strings.TrimRight(getenvDefault("PRAYER_API_BASE_URL", "https://api.aladhan.com/v1"), "/")
	if cfg.PrayerAPIMethod, err = getenvInt("PRAYER_API_METHOD", 2); err != nil { // ISNA
		return nil, err
	}
	if cfg.PrayerAPISchool, err = getenvInt("PRAYER_API_SCHOOL", 0); err != nil { // Shafi
		return nil, err
	}
	if cfg.PrayerAPIRatePerSec, err = getenvInt("PRAYER_API_RATE_PER_SEC", 5); err != nil {
		return nil, err
	}

	cfg.RedisAddress = os.Getenv("REDIS_ADDRESS")
	cfg.RedisUsername = os.Getenv("REDIS_USERNAME")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.PrayerCacheTTL, err = getenvDuration("PRAYER_CACHE_TTL", 6*time.Hour); err != nil {
		return nil, err
	}

	cfg.AMQPURL = os.Getenv("AMQP_URL")
	cfg.AMQPExchange = getenvDefault("AMQP_EXCHANGE", "prayer.reminders")

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP Server
	Port string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Database
	SQLiteDBPath string

	// Backend selection
	DataBackend string

	// Exchange rates to canonical currency (KZT)
	RateUSD string
	RateEUR string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets statement export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	// Export worker
	ExportBatchSize int
	ExportInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8082"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 7*24*time.Hour),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tenge.db"),
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),

		RateUSD: getEnv("RATE_USD_KZT", "450"),
		RateEUR: getEnv("RATE_EUR_KZT", "490"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tenge"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		ExportBatchSize: getEnvInt("EXPORT_BATCH_SIZE", 25),
		ExportInterval:  getEnvDuration("EXPORT_INTERVAL", time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET must be set")
	}
	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite memory]", c.DataBackend))
	}

	for _, r := range []struct{ name, value string }{
		{"RATE_USD_KZT", c.RateUSD},
		{"RATE_EUR_KZT", c.RateEUR},
	} {
		d, err := decimal.NewFromString(r.value)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s '%s': %v", r.name, r.value, err))
		} else if !d.IsPositive() {
			errs = append(errs, fmt.Sprintf("invalid %s '%s': must be positive", r.name, r.value))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errs = append(errs, "Google Sheet name is required when a spreadsheet ID is provided")
		}
		if c.GoogleOAuthClientFile == "" && c.GoogleOAuthClientJSON == "" {
			errs = append(errs, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets export")
		}
		if c.GoogleOAuthTokenFile == "" && c.GoogleOAuthTokenJSON == "" {
			errs = append(errs, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for sheets export")
		}
		if c.GoogleOAuthClientFile != "" {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
		if c.GoogleOAuthTokenFile != "" {
			if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google OAuth token file does not exist: %s", c.GoogleOAuthTokenFile))
			}
		}
	}

	if c.ExportBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}

	if c.ExportInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// Rates returns the configured exchange-rate table keyed by currency
// code, canonical currency included with rate 1.
func (c *Config) Rates() (map[string]decimal.Decimal, error) {
	usd, err := decimal.NewFromString(c.RateUSD)
	if err != nil {
		return nil, fmt.Errorf("parse RATE_USD_KZT: %w", err)
	}
	eur, err := decimal.NewFromString(c.RateEUR)
	if err != nil {
		return nil, fmt.Errorf("parse RATE_EUR_KZT: %w", err)
	}
	return map[string]decimal.Decimal{
		"USD": usd,
		"EUR": eur,
		"KZT": decimal.NewFromInt(1),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

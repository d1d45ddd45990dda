package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Currency settings
	BaseCurrency string // currency aggregate totals are reported in
	AltCurrency  string

	// DefaultExchangeRate is the last-resort USD/base rate used when no
	// historical rate can be resolved for a date.
	DefaultExchangeRate decimal.Decimal

	// BaselineValues maps account id -> fixed baseline total for
	// percentage-change reporting. Accounts without an entry fall back to
	// their earliest captured snapshot total.
	BaselineValues map[string]decimal.Decimal

	// Recalculation settings
	RecalcWorkers int

	// DefaultHistoryDays is the window used by history queries when the
	// caller does not specify one.
	DefaultHistoryDays int
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		Port:                getEnv("PORT", "8080"),
		DatabasePath:        getEnv("DATABASE_PATH", "./snapfolio.db"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		BaseCurrency:        getEnv("BASE_CURRENCY", "KRW"),
		AltCurrency:         getEnv("ALT_CURRENCY", "USD"),
		DefaultExchangeRate: getEnvAsDecimal("DEFAULT_EXCHANGE_RATE", decimal.NewFromInt(1300)),
		BaselineValues:      getEnvAsBaselineMap("BASELINE_VALUES"),
		RecalcWorkers:       getEnvAsInt("RECALC_WORKERS", 4),
		DefaultHistoryDays:  getEnvAsInt("DEFAULT_HISTORY_DAYS", 90),
	}

	log.Printf("Configuration loaded. Port: %s, DBPath: %s, BaseCurrency: %s, Baselines: %d account(s)",
		Cfg.Port, Cfg.DatabasePath, Cfg.BaseCurrency, len(Cfg.BaselineValues))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("WARNING: Invalid integer for %s: '%s'. Using default %d.", key, valueStr, fallback)
		return fallback
	}
	return value
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		log.Printf("WARNING: Invalid decimal for %s: '%s'. Using default %s.", key, valueStr, fallback)
		return fallback
	}
	return value
}

// getEnvAsBaselineMap parses "accountID:amount,accountID:amount" pairs.
// Malformed pairs are skipped with a warning rather than failing startup.
func getEnvAsBaselineMap(key string) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal)
	raw := getEnv(key, "")
	if raw == "" {
		return result
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			log.Printf("WARNING: Malformed %s entry '%s', expected accountID:amount. Skipping.", key, pair)
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Printf("WARNING: Invalid baseline amount in %s entry '%s': %v. Skipping.", key, pair, err)
			continue
		}
		result[strings.TrimSpace(parts[0])] = amount
	}
	return result
}

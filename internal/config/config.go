package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Catalog
	CatalogPath string
	IntentsPath string // empty → built-in table
	TaxRate     float64

	// Language model
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float64
	AISystemPrompt    string
	AITimeout         time.Duration
	AIHistoryWindow   int

	// WhatsApp Cloud API
	WhatsAppVerifyToken   string
	WhatsAppAccessToken   string // empty → replies are only logged
	WhatsAppPhoneNumberID string
	WhatsAppAPIURL        string
	WhatsAppAppSecret     string // empty → no signature check

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Sessions
	SessionTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Admin
	AdminJWTSecret string

	// Payment details shown to customers
	BankName          string
	BankAccountType   string
	BankAccountNumber string
	BankAccountHolder string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 3000),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CatalogPath: getEnv("CATALOG_PATH", "productos_reformante.json"),
		IntentsPath: getEnv("INTENTS_PATH", ""),
		TaxRate:     getEnvFloat("TAX_RATE", 0.19),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAITemperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
		AISystemPrompt:    getEnv("AI_SYSTEM_PROMPT", ""),
		AITimeout:         getEnvDuration("AI_TIMEOUT", 20*time.Second),
		AIHistoryWindow:   getEnvInt("AI_HISTORY_WINDOW", 10),

		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAPIURL:        getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),

		SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		BankName:          getEnv("BANK_NAME", "Bancolombia"),
		BankAccountType:   getEnv("BANK_ACCOUNT_TYPE", "Ahorros"),
		BankAccountNumber: getEnv("BANK_ACCOUNT_NUMBER", "31000008050"),
		BankAccountHolder: getEnv("BANK_ACCOUNT_HOLDER", "Reformante S.A.S."),
	}
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.CatalogPath == "" {
		errs = append(errs, errors.New("CATALOG_PATH is required"))
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		errs = append(errs, fmt.Errorf("TAX_RATE must be in [0, 1), got %v", c.TaxRate))
	}
	if c.AIHistoryWindow < 1 {
		errs = append(errs, fmt.Errorf("AI_HISTORY_WINDOW must be positive, got %d", c.AIHistoryWindow))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.WhatsAppAccessToken != "" && c.WhatsAppPhoneNumberID == "" {
		errs = append(errs, errors.New("WHATSAPP_PHONE_NUMBER_ID is required when WHATSAPP_ACCESS_TOKEN is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

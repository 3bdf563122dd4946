// Package config loads server configuration from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration.
type Config struct {
	// Server
	Port           string
	Env            string
	UseMemoryStore bool
	SkipAuth       bool
	AllowedOrigins []string
	LogLevel       string
	RequestTimeout time.Duration

	// Google Cloud
	ProjectID      string
	ReceiptsBucket string

	// Categorisation
	GeminiAPIKey        string
	GeminiModel         string
	CategoriseBatchSize int

	// Stripe
	StripeSecretKey     string
	StripePriceID       string
	StripeWebhookSecret string
	AppBaseURL          string

	// Banking-data provider
	BankingClientID     string
	BankingClientSecret string
	BankingRedirectURL  string
	BankingAuthURL      string
	BankingAPIURL       string

	// HMRC Making Tax Digital
	HMRCClientID     string
	HMRCClientSecret string
	HMRCRedirectURL  string
	HMRCBaseURL      string

	// Algolia
	AlgoliaAppID  string
	AlgoliaAPIKey string
	AlgoliaIndex  string

	// Sentry
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
}

// DefaultAllowedOrigins are used when ALLOWED_ORIGINS is not set.
var DefaultAllowedOrigins = []string{
	"http://localhost:1234",
	"http://127.0.0.1:1234",
	"https://reelin.app",
	"https://www.reelin.app",
}

// Load reads .env (if present) and builds the configuration from environment variables.
// It reports whether a .env file was found.
func Load() (*Config, bool) {
	loadedDotEnv := godotenv.Load() == nil

	env := envOr("ENV", "production")
	cfg := &Config{
		// NOTE: Default is 8111 to avoid clashing with other local services on 8080
		Port:           envOr("PORT", "8111"),
		Env:            env,
		UseMemoryStore: envBool("USE_MEMORY_STORE", false) || env == "local",
		SkipAuth:       envBool("SKIP_AUTH", false),
		AllowedOrigins: envList("ALLOWED_ORIGINS", DefaultAllowedOrigins),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),

		ProjectID:      envOr("GOOGLE_CLOUD_PROJECT", "reelin-app"),
		ReceiptsBucket: os.Getenv("RECEIPTS_BUCKET"),

		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		CategoriseBatchSize: envInt("CATEGORISE_BATCH_SIZE", 20),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripePriceID:       os.Getenv("STRIPE_PRICE_ID"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		AppBaseURL:          envOr("APP_BASE_URL", "https://reelin.app"),

		BankingClientID:     os.Getenv("BANKING_CLIENT_ID"),
		BankingClientSecret: os.Getenv("BANKING_CLIENT_SECRET"),
		BankingRedirectURL:  os.Getenv("BANKING_REDIRECT_URL"),
		BankingAuthURL:      envOr("BANKING_AUTH_URL", "https://auth.truelayer-sandbox.com"),
		BankingAPIURL:       envOr("BANKING_API_URL", "https://api.truelayer-sandbox.com"),

		HMRCClientID:     os.Getenv("HMRC_CLIENT_ID"),
		HMRCClientSecret: os.Getenv("HMRC_CLIENT_SECRET"),
		HMRCRedirectURL:  os.Getenv("HMRC_REDIRECT_URL"),
		HMRCBaseURL:      envOr("HMRC_BASE_URL", "https://test-api.service.hmrc.gov.uk"),

		AlgoliaAppID:  os.Getenv("ALGOLIA_APP_ID"),
		AlgoliaAPIKey: os.Getenv("ALGOLIA_API_KEY"),
		AlgoliaIndex:  envOr("ALGOLIA_INDEX", "transactions"),

		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SentryEnvironment: envOr("SENTRY_ENVIRONMENT", env),
		SentryRelease:     envOr("SENTRY_RELEASE", "reelin-backend@dev"),
	}
	return cfg, loadedDotEnv
}

// IsLocal reports whether the server runs without cloud dependencies.
func (c *Config) IsLocal() bool {
	return c.UseMemoryStore || c.Env == "local"
}

// BankingEnabled reports whether the banking provider is configured.
func (c *Config) BankingEnabled() bool {
	return c.BankingClientID != "" && c.BankingClientSecret != ""
}

// HMRCEnabled reports whether HMRC Making Tax Digital is configured.
func (c *Config) HMRCEnabled() bool {
	return c.HMRCClientID != "" && c.HMRCClientSecret != ""
}

// AlgoliaEnabled reports whether transaction search is backed by Algolia.
func (c *Config) AlgoliaEnabled() bool {
	return c.AlgoliaAppID != "" && c.AlgoliaAPIKey != ""
}

// StripeEnabled reports whether billing is configured.
func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

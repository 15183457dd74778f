// Package config loads application configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/iliyamo/blueprint-paywall/internal/utils"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; see Load for names and defaults.
type Config struct {
	Env      string // application environment (dev, prod)
	Port     string // HTTP port to listen on
	BaseURL  string // public origin used in checkout redirects
	LogLevel string // zap level name

	StripeSecretKey     string // provider API key
	StripeWebhookSecret string // whsec_… used to verify webhook deliveries
	StripePriceID       string // the single fixed-price item sold

	CookieSecret string // HMAC key for the grq_access cookie

	KVURL           string // Redis endpoint; empty means degraded mode
	KVToken         string // Redis password / REST token
	LedgerNamespace string // optional key prefix for ledger records

	DefaultRole string // role used when session metadata has none; empty disables

	RabbitURL string // optional AMQP broker for fulfillment events
	MySQLDSN  string // optional purchase archive

	AdminUser         string
	AdminPasswordHash string // bcrypt hash
	AdminJWTSecret    string
	AdminTokenTTLMin  int
	BcryptCost        int
}

// LoadDotEnv reads .env (or the given files) into the environment without
// overriding variables that are already set.  A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads configuration from the environment.  It only fails when a
// production deployment lacks a secret it cannot run without.
func Load() (Config, error) {
	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "3000"),
		BaseURL:  strings.TrimRight(envStr("BASE_URL", "http://localhost:3000"), "/"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceID:       os.Getenv("STRIPE_PRICE_ID"),

		CookieSecret: os.Getenv("GRQ_COOKIE_SECRET"),

		KVURL:           firstEnv("KV_URL", "KV_REST_API_URL", "REDIS_URL", "REDIS_ADDR"),
		KVToken:         firstEnv("KV_TOKEN", "KV_REST_API_TOKEN", "REDIS_PASSWORD"),
		LedgerNamespace: os.Getenv("LEDGER_NAMESPACE"),

		DefaultRole: envStr("DEFAULT_ROLE", "architect"),

		RabbitURL: firstEnv("RABBITMQ_URL", "AMQP_URL"),
		MySQLDSN:  os.Getenv("MYSQL_DSN"),

		AdminUser:         envStr("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminJWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
		AdminTokenTTLMin:  envInt("ADMIN_TOKEN_TTL_MIN", 60),
		BcryptCost:        envInt("BCRYPT_COST", utils.DefaultBcryptCost),
	}
	if cfg.DefaultRole == "-" {
		cfg.DefaultRole = ""
	}
	cfg.DefaultRole = strings.ToLower(strings.TrimSpace(cfg.DefaultRole))
	if cfg.AdminTokenTTLMin <= 0 {
		cfg.AdminTokenTTLMin = 60
	}

	if cfg.Production() {
		var missing []string
		for k, v := range map[string]string{
			"STRIPE_SECRET_KEY": cfg.StripeSecretKey,
			"STRIPE_PRICE_ID":   cfg.StripePriceID,
			"GRQ_COOKIE_SECRET": cfg.CookieSecret,
		} {
			if v == "" {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return cfg, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
		}
	}
	return cfg, nil
}

// Production reports whether the app runs in production; it controls the
// Secure cookie attribute and the log encoder.
func (c Config) Production() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// AdminEnabled reports whether the admin API can authenticate anyone.
func (c Config) AdminEnabled() bool {
	return c.AdminPasswordHash != "" && c.AdminJWTSecret != ""
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

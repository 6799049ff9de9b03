package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	// Server
	Port        string
	Environment string
	BaseURL     string

	// CORS
	CORSOrigins []string

	// Mercado Pago
	MercadoPagoAccessToken string

	// PayPal
	PayPalClientID     string
	PayPalClientSecret string
	PayPalBaseURL      string

	// Google Sheets ledger
	GoogleSheetID      string
	GoogleClientEmail  string
	GooglePrivateKey   string
	OrdersSheetRange   string
	ProductsSheetRange string

	// Checkout
	DefaultCurrency string

	// Redis
	EnableRedis bool
	RedisURL    string

	// Email
	EnableEmail  bool
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AdminEmail   string

	// Rate Limiting
	RateLimitRequests int
	RateLimitWindow   int

	// Features
	EnableMetrics bool
}

func New() *Config {
	c := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),

		// CORS
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		// Mercado Pago
		MercadoPagoAccessToken: getEnv("MERCADO_PAGO_ACCESS_TOKEN", ""),

		// PayPal
		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalBaseURL:      getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),

		// Google Sheets ledger
		GoogleSheetID:      getEnv("GOOGLE_SHEET_ID", ""),
		GoogleClientEmail:  getEnv("GOOGLE_CLIENT_EMAIL", ""),
		GooglePrivateKey:   normalizePrivateKey(getEnv("GOOGLE_PRIVATE_KEY", "")),
		OrdersSheetRange:   getEnv("ORDERS_SHEET_RANGE", "Orders!A:M"),
		ProductsSheetRange: getEnv("PRODUCTS_SHEET_RANGE", "Productos!A2:F"),

		// Checkout
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "ARS"),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", false),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		// Email
		EnableEmail:  getEnvAsBool("ENABLE_EMAIL", false),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		AdminEmail:   getEnv("ADMIN_EMAIL", ""),

		// Rate Limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),

		// Features
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}

	return c
}

// MercadoPagoEnabled reports whether Mercado Pago credentials are present.
func (c *Config) MercadoPagoEnabled() bool {
	return c.MercadoPagoAccessToken != ""
}

// PayPalEnabled reports whether PayPal credentials are present.
func (c *Config) PayPalEnabled() bool {
	return c.PayPalClientID != "" && c.PayPalClientSecret != ""
}

// SheetsEnabled reports whether the spreadsheet ledger is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSheetID != "" && c.GoogleClientEmail != "" && c.GooglePrivateKey != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// normalizePrivateKey restores newlines in a PEM key that was stored in an
// environment variable with literal "\n" escapes.
func normalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Server configuration
	Environment string

	// Paystack configuration
	PaystackSecretKey string
	PaystackBaseURL   string
	GatewayTimeout    time.Duration

	// Revenue split
	FeePercent decimal.Decimal

	// Redis configuration
	RedisURL       string
	WebhookLockTTL time.Duration

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Ticket QR signing
	TicketSecret string

	// Notification configuration
	SenderName    string
	SenderAddress string
	NotifyQueue   int

	// Withdrawal rate limiting
	WithdrawalLimit  int
	WithdrawalWindow time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		// Paystack
		PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		GatewayTimeout:    getEnvAsDuration("GATEWAY_TIMEOUT", "10s"),

		// Platform fee taken from every ticket sale, in percent.
		FeePercent: getEnvAsDecimal("PLATFORM_FEE_PERCENT", "8"),

		// Redis
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		WebhookLockTTL: getEnvAsDuration("WEBHOOK_LOCK_TTL", "30s"),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Tickets
		TicketSecret: getEnv("TICKET_SECRET", ""),

		// Notifications
		SenderName:    getEnv("MAIL_SENDER_NAME", "Tick"),
		SenderAddress: getEnv("MAIL_SENDER_ADDRESS", "tickets@tick.local"),
		NotifyQueue:   getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),

		// Withdrawals
		WithdrawalLimit:  getEnvAsInt("WITHDRAWAL_RATE_LIMIT", 5),
		WithdrawalWindow: getEnvAsDuration("WITHDRAWAL_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsDecimal(key string, defaultValue string) decimal.Decimal {
	valueStr := getEnv(key, defaultValue)
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	value, _ := decimal.NewFromString(defaultValue)
	return value
}

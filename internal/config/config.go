package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey string

	// RequestTTLSeconds bounds the verification request lifecycle; expiry
	// is checked lazily against created_at + TTL.
	RequestTTLSeconds int
	QRScheme          string

	IssuerSeedHex string

	PredicatePolicyBundle string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitMaxKeys       int
	RateLimitFailClosed    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		RequestTTLSeconds:      envIntDefault("REQUEST_TTL_SECONDS", 600),
		QRScheme:               envDefault("QR_SCHEME", "privaseal"),
		IssuerSeedHex:          os.Getenv("ISSUER_SEED_HEX"),
		PredicatePolicyBundle:  os.Getenv("PREDICATE_POLICY_BUNDLE"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		AMQPURL:                os.Getenv("AMQP_URL"),
		AMQPExchange:           envDefault("AMQP_EXCHANGE", "privaseal.audit"),
		AMQPQueue:              envDefault("AMQP_QUEUE", "privaseal.audit.events"),
		AMQPRoutingKey:         envDefault("AMQP_ROUTING_KEY", "audit.event"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) RequestTTL() time.Duration {
	if c.RequestTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.RequestTTLSeconds) * time.Second
}

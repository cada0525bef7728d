package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify customer JWTs
	AMQPURL   string // RabbitMQ connection string; empty disables publishing
	Booking   BookingConfig
}

// BookingConfig tunes the reservation machine and its persistence.
//
// Fields:
//
//	HoldTTL            – how long a selected seat stays held.
//	SweepInterval      – how often lapsed holds are released.
//	SessionIdleTTL     – inactivity after which an open session is evicted from memory.
//	ConfirmationPrefix – prefix of locally generated confirmation ids.
//	FeePolicy          – "card" charges the fee on cards only, "all" on every method.
//	DraftBackend       – where drafts are persisted: memory, redis or mysql.
//	DraftTTL           – lifetime of a persisted draft in redis.
//	DraftSecret        – optional key sealing persisted drafts.
//	LogDir             – directory of booking.log written by the event consumer.
type BookingConfig struct {
	HoldTTL            time.Duration
	SweepInterval      time.Duration
	SessionIdleTTL     time.Duration
	ConfirmationPrefix string
	FeePolicy          string
	DraftBackend       string
	DraftTTL           time.Duration
	DraftSecret        string
	LogDir             string
}

// Load reads a .env file when present, then builds a Config from the
// environment.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	LoadDotEnv()
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),
		AMQPURL:   os.Getenv("AMQP_URL"),
		Booking:   LoadBookingConfig(),
	}
}

// AccessTTL returns ACCESS_TOKEN_TTL_MIN, the lifetime in minutes of
// development tokens.
func AccessTTL() int { return envInt("ACCESS_TOKEN_TTL_MIN", 60) }

// LoadDotEnv loads variables from .env without overriding ones already set.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
}

// LoadBookingConfig reads the BOOKING_* variables.
func LoadBookingConfig() BookingConfig {
	c := BookingConfig{
		HoldTTL:            envDur("BOOKING_HOLD_TTL", 5*time.Minute),
		SweepInterval:      envDur("BOOKING_SWEEP_INTERVAL", 15*time.Second),
		SessionIdleTTL:     envDur("BOOKING_SESSION_IDLE_TTL", 30*time.Minute),
		ConfirmationPrefix: strings.ToUpper(envStr("BOOKING_CONFIRMATION_PREFIX", "BK")),
		FeePolicy:          strings.ToLower(envStr("BOOKING_FEE_POLICY", "card")),
		DraftBackend:       strings.ToLower(envStr("BOOKING_DRAFT_BACKEND", "redis")),
		DraftTTL:           envDur("BOOKING_DRAFT_TTL", 24*time.Hour),
		DraftSecret:        os.Getenv("BOOKING_DRAFT_SECRET"),
		LogDir:             envStr("BOOKING_LOG_DIR", "logs"),
	}
	if c.HoldTTL <= 0 {
		c.HoldTTL = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 15 * time.Second
	}
	if c.SessionIdleTTL < c.HoldTTL {
		c.SessionIdleTTL = c.HoldTTL
	}
	switch c.DraftBackend {
	case "memory", "redis", "mysql":
	default:
		log.Printf("config: unknown BOOKING_DRAFT_BACKEND %q, using memory", c.DraftBackend)
		c.DraftBackend = "memory"
	}
	return c
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ProcessorBackend = "backend"
	ProcessorMock    = "mock"
)

// Config holds application configuration from environment variables
type Config struct {
	// Application
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	UserID             int64
	CartKey            string

	// Remote commerce API
	APIBaseURL         string
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// Key-value store
	StoreBackend  string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	MongoURI      string
	MongoDatabase string

	// Checkout
	PaymentProcessor string
	KafkaBrokers     []string
	KafkaTopic       string

	// Logging
	LogLevel  string
	LogFormat string

	// OpenTelemetry
	OTELExporterOTLPEndpoint string
	OTELExporterOTLPHeaders  string
	OTELExporterOTLPInsecure bool
	OTELServiceName          string
	OTELServiceVersion       string
}

// LoadConfig loads configuration from .env file and environment variables with defaults
func LoadConfig() *Config {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "3000"),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		UserID:             int64(getEnvInt("STOREFRONT_USER_ID", 1)),
		CartKey:            getEnv("CART_STORAGE_KEY", "cart"),

		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8080/api"),
		BreakerMaxFailures: uint32(getEnvInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: getEnvDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreSQLite)),
		SQLitePath:    getEnv("SQLITE_PATH", "storefront.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTTL:      getEnvDuration("REDIS_TTL", 0),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "storefront"),

		PaymentProcessor: strings.ToLower(getEnv("PAYMENT_PROCESSOR", ProcessorBackend)),
		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "storefront-orders"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELExporterOTLPHeaders:  getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "storefront"),
		OTELServiceVersion:       getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL %q is not an absolute URL", c.APIBaseURL))
	}

	switch c.StoreBackend {
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch c.PaymentProcessor {
	case ProcessorBackend, ProcessorMock:
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_PROCESSOR %q", c.PaymentProcessor))
	}

	if c.UserID <= 0 {
		errs = append(errs, errors.New("STOREFRONT_USER_ID must be positive"))
	}
	if c.CartKey == "" {
		errs = append(errs, errors.New("CART_STORAGE_KEY must not be empty"))
	}

	return errors.Join(errs...)
}

// MetricsEnabled reports whether an OTLP endpoint was configured.
func (c *Config) MetricsEnabled() bool {
	return c.OTELExporterOTLPEndpoint != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		return false
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Warning: %s=%q is not an integer, using %d", key, value, defaultValue)
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("Warning: %s=%q is not a duration, using %s", key, value, defaultValue)
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

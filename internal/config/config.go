package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Features      FeatureFlags
	StorageDriver string
	LogLevel      string

	// CatalogLookupConcurrency bounds parallel price/stock lookups during
	// cart-to-order conversion.
	CatalogLookupConcurrency int
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	RunMigrations bool
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers            []string
	OrdersTopic        string
	PaymentStatusTopic string
	PaymentsTopic      string
	ConsumerGroup      string
}

type FeatureFlags struct {
	EnableOrderCaching    bool
	EnableOrderEvents     bool
	EnablePaymentConsumer bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:          getEnvString("DB_HOST", "localhost"),
			Port:          getEnvInt("DB_PORT", 5432),
			User:          getEnvString("DB_USER", "acme"),
			Password:      getEnvString("DB_PASSWORD", "acme"),
			Name:          getEnvString("DB_NAME", "acme_fulfillment"),
			SSLMode:       getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:   getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			RunMigrations: getEnvBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("REDIS_ORDER_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:            getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:        getEnvString("KAFKA_ORDERS_TOPIC", "orders"),
			PaymentStatusTopic: getEnvString("KAFKA_PAYMENT_STATUS_TOPIC", "payment-status"),
			PaymentsTopic:      getEnvString("KAFKA_PAYMENTS_TOPIC", "payments"),
			ConsumerGroup:      getEnvString("KAFKA_CONSUMER_GROUP", "fulfillment-service"),
		},
		Features: FeatureFlags{
			EnableOrderCaching:    getEnvBool("ENABLE_ORDER_CACHING", true),
			EnableOrderEvents:     getEnvBool("ENABLE_ORDER_EVENTS", true),
			EnablePaymentConsumer: getEnvBool("ENABLE_PAYMENT_CONSUMER", true),
		},
		StorageDriver:            getEnvString("STORAGE_DRIVER", StorageDriverPostgres),
		LogLevel:                 getEnvString("LOG_LEVEL", "info"),
		CatalogLookupConcurrency: getEnvInt("CATALOG_LOOKUP_CONCURRENCY", 8),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

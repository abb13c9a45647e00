package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Portfolio PortfolioConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka/Redpanda configuration
type KafkaConfig struct {
	Brokers       []string
	TradesTopic   string
	QuotesTopic   string
	ConsumerGroup string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PortfolioConfig holds the computation and caching tunables.
type PortfolioConfig struct {
	// MarginProfit is the display-only target margin (0.20 = 20%).
	MarginProfit float64
	// SnapshotTTL bounds how long a computed portfolio stays cached.
	SnapshotTTL time.Duration
	// PriceTTL bounds how long a cached market price is trusted.
	PriceTTL time.Duration
}

// Load reads configuration from the environment, with a .env file as
// fallback for local development.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8082"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "postgres"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "finstat"),
			Password: getEnv("DB_PASSWORD", "finstat"),
			DBName:   getEnv("DB_NAME", "finstat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       parseBrokers(getEnv("KAFKA_BROKERS", "localhost:19092")),
			TradesTopic:   getEnv("KAFKA_TRADES_TOPIC", "finstat.trades"),
			QuotesTopic:   getEnv("KAFKA_QUOTES_TOPIC", "finstat.quotes"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "finstat-service"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		Portfolio: PortfolioConfig{
			MarginProfit: getEnvFloat("MARGIN_PROFIT", 0.20),
			SnapshotTTL:  getEnvDuration("PORTFOLIO_CACHE_TTL", 30*time.Second),
			PriceTTL:     getEnvDuration("PRICE_CACHE_TTL", 5*time.Minute),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the Redis address in host:port format
func (r *RedisConfig) Address() string {
	return r.Host + ":" + r.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

// parseBrokers splits a comma-separated broker list
func parseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

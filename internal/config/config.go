// internal/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingDatabaseURI is returned by Validate when no connection string is set.
var ErrMissingDatabaseURI = errors.New("DATABASE_URI (or MONGODB_URI) environment variable is not set")

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	AMQP     AMQPConfig
	Seeder   SeederConfig
}

type ServerConfig struct {
	AppEnv          string
	Port            string
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	URI            string
	Name           string
	Collection     string
	ConnectTimeout time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

type SeederConfig struct {
	File string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "dev"),
			Port:            getEnv("PORT", "10000"),
			ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT", 10)) * time.Second,
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			URI:            getEnv("DATABASE_URI", getEnv("MONGODB_URI", "")),
			Name:           getEnv("DB_NAME", "crm-database"),
			Collection:     getEnv("DB_COLLECTION", "customers"),
			ConnectTimeout: time.Duration(getEnvInt("DB_CONNECT_TIMEOUT", 3)) * time.Second,
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "customer_events"),
			Queue:    getEnv("AMQP_QUEUE", "customer_events_log"),
		},
		Seeder: SeederConfig{
			File: getEnv("SEED_FILE", "seed/customers.json"),
		},
	}
}

// Validate reports configuration the process cannot start without.
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return ErrMissingDatabaseURI
	}
	return nil
}

// IsDevelopment is true for local runs, where logs go to the console at debug level.
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "dev" || c.Server.AppEnv == "development"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

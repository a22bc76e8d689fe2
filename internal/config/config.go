// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config carries every setting the services need. It is built once in main
// and passed down at construction; nothing reads the environment after Load.
type Config struct {
	Port string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	AMQPURL string // empty means dispatch in-process

	MailFrom string
	SiteURL  string

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string

	RetentionDays int
	SweepInterval string // cron spec for the scheduled-send sweep
}

func Load() *Config {
	return &Config{
		Port: getenv("PORT", "8080"),

		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", ""),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBName:     getenv("DB_NAME", "newsboard"),

		AMQPURL: os.Getenv("AMQP_URL"),

		MailFrom: getenv("MAIL_FROM", "noreply@newsboard.local"),
		SiteURL:  getenv("SITE_URL", "http://localhost:8080"),

		AWSRegion:    getenv("AWS_REGION", "us-east-1"),
		AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		RetentionDays: getenvInt("NEWSLETTER_RETENTION_DAYS", 30),
		SweepInterval: getenv("SCHEDULER_SWEEP_INTERVAL", "@every 1m"),
	}
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

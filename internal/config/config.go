// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Default values for auth configuration
const (
	DefaultTokenTTL = 15 * time.Minute
	DefaultIssuer   = "operia-chat"
)

// DefaultAllowedEmailDomains is the registration email domain allow-list
// used when ALLOWED_EMAIL_DOMAINS is not set.
var DefaultAllowedEmailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com", "outlook.com"}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Chat     ChatConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AuthConfig holds token signing and registration policy configuration
type AuthConfig struct {
	// SecretKey signs bearer tokens. Required: the server refuses to start
	// without it.
	SecretKey string
	// TokenTTL is the lifetime of an issued bearer token.
	TokenTTL time.Duration
	// Issuer is the iss claim stamped on issued tokens.
	Issuer string
	// AllowedEmailDomains is the set of email domains accepted at registration.
	AllowedEmailDomains []string
}

// ChatConfig holds reply generation configuration
type ChatConfig struct {
	// ReplyMode selects the reply generator: "echo" or "canned".
	ReplyMode string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "operia_chat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			SecretKey:           getEnv("SECRET_KEY", ""),
			TokenTTL:            getDurationEnv("TOKEN_TTL", DefaultTokenTTL),
			Issuer:              getEnv("TOKEN_ISSUER", DefaultIssuer),
			AllowedEmailDomains: getListEnv("ALLOWED_EMAIL_DOMAINS", DefaultAllowedEmailDomains),
		},
		Chat: ChatConfig{
			ReplyMode: getEnv("CHAT_REPLY_MODE", "echo"),
		},
	}
}

// Validate checks that required configuration is present. The signing secret
// has no fallback: an unset SECRET_KEY is a startup error, never an implicit
// default.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return errors.New("SECRET_KEY environment variable is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if len(c.Auth.AllowedEmailDomains) == 0 {
		return errors.New("at least one allowed email domain is required")
	}
	switch c.Chat.ReplyMode {
	case "echo", "canned":
	default:
		return fmt.Errorf("unknown CHAT_REPLY_MODE %q (expected echo or canned)", c.Chat.ReplyMode)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// URL returns the PostgreSQL connection URL used by the migration tool
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns duration from environment variable or default.
// Accepts Go duration syntax ("15m", "1h30m").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv returns a comma-separated list from an environment variable or default
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const devSecret = "dev-secret-change-me"

type Config struct {
	Env          string
	HTTPAddr     string
	DatabaseURL  string
	UsersPath    string
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	CORSOrigins  []string
	AMQPURL      string
	AMQPExchange string
	LogLevel     string
	LogFormat    string
}

func (c Config) Development() bool {
	return c.Env == "development"
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	addr := getenv("SPENDWISE_HTTP_ADDR", "")
	if addr == "" {
		addr = ":" + getenv("PORT", "5000")
	}

	cfg := Config{
		Env:          getenv("SPENDWISE_ENV", "production"),
		HTTPAddr:     addr,
		DatabaseURL:  getenv("SPENDWISE_DATABASE_URL", "sqlite://spendwise.db"),
		UsersPath:    os.Getenv("SPENDWISE_USERS_PATH"),
		JWTSecret:    os.Getenv("SPENDWISE_JWT_SECRET"),
		TokenTTL:     getenvDuration("SPENDWISE_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:   getenvInt("SPENDWISE_BCRYPT_COST", 12),
		CORSOrigins:  splitList(getenv("SPENDWISE_CORS_ORIGINS", "http://localhost:3000")),
		AMQPURL:      os.Getenv("SPENDWISE_AMQP_URL"),
		AMQPExchange: getenv("SPENDWISE_AMQP_EXCHANGE", "spendwise.events"),
		LogLevel:     getenv("SPENDWISE_LOG_LEVEL", "info"),
		LogFormat:    getenv("SPENDWISE_LOG_FORMAT", "json"),
	}
	if cfg.JWTSecret == "" && cfg.Development() {
		cfg.JWTSecret = devSecret
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var problems []string

	if c.HTTPAddr == "" {
		problems = append(problems, "http address cannot be empty")
	}
	if c.DatabaseURL == "" {
		problems = append(problems, "SPENDWISE_DATABASE_URL cannot be empty")
	} else {
		scheme, _, _ := strings.Cut(c.DatabaseURL, "://")
		switch scheme {
		case "postgres", "postgresql", "sqlite":
		default:
			problems = append(problems, fmt.Sprintf("unsupported database scheme %q: must be postgres, postgresql or sqlite", scheme))
		}
	}
	if c.JWTSecret == "" {
		problems = append(problems, "SPENDWISE_JWT_SECRET is required outside development")
	} else if c.JWTSecret == devSecret && !c.Development() {
		problems = append(problems, "SPENDWISE_JWT_SECRET must not use the development default")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid token ttl %v: must be positive", c.TokenTTL))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, "SPENDWISE_AMQP_URL is not a valid url")
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be amqp or amqps", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange cannot be empty when SPENDWISE_AMQP_URL is set")
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be json or text", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

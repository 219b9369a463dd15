package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	ExecutionBaseURL        string
	ExecutionAuthToken      string
	ExecutionRequestTimeout time.Duration
	ExecutionPollInterval   time.Duration
	ExecutionMaxPollRetries int

	QueueConcurrency   int
	QueueMaxAttempts   int
	QueueBackoffBase   time.Duration
	QueueRatePerSecond float64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("JUDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "AtalJudge API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("execution.request_timeout", "30s")
	v.SetDefault("execution.poll_interval", "1s")
	v.SetDefault("execution.max_poll_retries", 60)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.backoff_base", "2s")
	v.SetDefault("queue.rate_per_second", 5.0)

	requestTimeout, err := parseDuration(v.GetString("execution.request_timeout"), "execution request timeout")
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := parseDuration(v.GetString("execution.poll_interval"), "execution poll interval")
	if err != nil {
		return Config{}, err
	}
	backoffBase, err := parseDuration(v.GetString("queue.backoff_base"), "queue backoff base")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		RedisURL:                v.GetString("redis.url"),
		NATSURL:                 v.GetString("nats.url"),
		JWTSecret:               v.GetString("jwt.secret"),
		ExecutionBaseURL:        v.GetString("execution.base_url"),
		ExecutionAuthToken:      v.GetString("execution.auth_token"),
		ExecutionRequestTimeout: requestTimeout,
		ExecutionPollInterval:   pollInterval,
		ExecutionMaxPollRetries: v.GetInt("execution.max_poll_retries"),
		QueueConcurrency:        v.GetInt("queue.concurrency"),
		QueueMaxAttempts:        v.GetInt("queue.max_attempts"),
		QueueBackoffBase:        backoffBase,
		QueueRatePerSecond:      v.GetFloat64("queue.rate_per_second"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ExecutionBaseURL == "" {
		return Config{}, fmt.Errorf("execution base url must be provided")
	}

	if cfg.QueueConcurrency <= 0 {
		cfg.QueueConcurrency = 4
	}

	if cfg.QueueMaxAttempts <= 0 {
		cfg.QueueMaxAttempts = 3
	}

	return cfg, nil
}

func parseDuration(value, label string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("invalid %s: empty", label)
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", label, err)
	}
	return duration, nil
}

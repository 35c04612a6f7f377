package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port" envconfig:"SERVER_PORT"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds" envconfig:"SERVER_TIMEOUT_SECONDS"`
	RateLimitRPS   int `mapstructure:"rateLimitRps" envconfig:"SERVER_RATE_LIMIT_RPS"`
	RateLimitBurst int `mapstructure:"rateLimitBurst" envconfig:"SERVER_RATE_LIMIT_BURST"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"DB_HOST"`
	Port         int    `mapstructure:"port" envconfig:"DB_PORT"`
	User         string `mapstructure:"user" envconfig:"DB_USER"`
	Password     string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name         string `mapstructure:"name" envconfig:"DB_NAME"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
	MaxOpenConns int    `mapstructure:"maxOpenConns" envconfig:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"maxIdleConns" envconfig:"DB_MAX_IDLE_CONNS"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" envconfig:"JWT_SECRET"`
	ExpiryHours int    `mapstructure:"expiry_hours" envconfig:"JWT_EXPIRY_HOURS"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url" envconfig:"REDIS_URL"`
	PoolSize     int    `mapstructure:"poolSize" envconfig:"REDIS_POOL_SIZE"`
	MinIdleConns int    `mapstructure:"minIdleConns" envconfig:"REDIS_MIN_IDLE_CONNS"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"SMTP_HOST"`
	Port     int    `mapstructure:"port" envconfig:"SMTP_PORT"`
	Username string `mapstructure:"username" envconfig:"SMTP_USERNAME"`
	Password string `mapstructure:"password" envconfig:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" envconfig:"SMTP_FROM"`
}

type WorkerConfig struct {
	BatchSize     int           `mapstructure:"batchSize" envconfig:"WORKER_BATCH_SIZE"`
	PollInterval  time.Duration `mapstructure:"pollInterval" envconfig:"WORKER_POLL_INTERVAL"`
	RetryAttempts int           `mapstructure:"retryAttempts" envconfig:"WORKER_RETRY_ATTEMPTS"`
	RetryDelay    time.Duration `mapstructure:"retryDelay" envconfig:"WORKER_RETRY_DELAY"`
	MaxRetries    int           `mapstructure:"maxRetries" envconfig:"WORKER_MAX_RETRIES"`
}

// LoadConfig reads config.yaml and overlays environment variables so camp
// deployments can tune a single container image without editing files.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process env overrides: %w", err)
	}

	return &config, nil
}

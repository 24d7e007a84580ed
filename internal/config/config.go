// Package config loads the immutable process configuration from the
// environment, with an optional local .env file for development.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	Server   ServerConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Lockout  LockoutConfig
	SMTP     SMTPConfig
	Frontend FrontendConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int           `env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type MongoConfig struct {
	URI    string `env:"MONGODB_URI" env-default:"mongodb://localhost:27017"`
	DBName string `env:"MONGODB_DB" env-default:"reshmacrochets"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type JWTConfig struct {
	Secret       string        `env:"JWT_SECRET" env-required:"true"`
	SessionTTL   time.Duration `env:"JWT_EXPIRE" env-default:"168h"`
	CookieMaxAge time.Duration `env:"JWT_COOKIE_EXPIRE" env-default:"720h"`
	Issuer       string        `env:"JWT_ISSUER" env-default:"reshmacrochets"`
}

type PasswordConfig struct {
	Memory      uint32 `env:"ARGON2_MEMORY_KB" env-default:"65536"`
	Time        uint32 `env:"ARGON2_TIME" env-default:"2"`
	Parallelism uint8  `env:"ARGON2_PARALLELISM" env-default:"2"`
	SaltLength  uint32 `env:"ARGON2_SALT_LENGTH" env-default:"16"`
	KeyLength   uint32 `env:"ARGON2_KEY_LENGTH" env-default:"32"`
}

type LockoutConfig struct {
	Threshold     int           `env:"LOCKOUT_THRESHOLD" env-default:"5"`
	LockDuration  time.Duration `env:"LOCKOUT_DURATION" env-default:"2h"`
	CounterWindow time.Duration `env:"LOCKOUT_COUNTER_WINDOW" env-default:"2h"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `env:"SMTP_PORT" env-default:"465"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:"noreply@reshmacrochets.com"`
}

type FrontendConfig struct {
	BaseURL string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`
}

type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

// IsProduction gates production-only behavior such as the Secure cookie flag.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads a local .env when present, then the environment. Missing
// required variables fail startup rather than later at first use.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

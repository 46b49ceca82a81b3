package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string `env:"DATABASE_URL"`
	JWTSecretKey string `env:"JWT_SECRET_KEY"`
	ServerPort   int    `env:"SERVER_PORT" envDefault:"8080"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Bracket progression
	AdvancesPerRoom   int  `env:"ADVANCES_PER_ROOM" envDefault:"1"`
	SimulationEnabled bool `env:"SIMULATION_ENABLED" envDefault:"false"`

	// Stalled-tournament sweep
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	SweepGracePeriod      time.Duration `env:"SWEEP_GRACE_PERIOD" envDefault:"1h"`
	CancelOnPartialRefund bool          `env:"CANCEL_ON_PARTIAL_REFUND" envDefault:"true"`

	// Почта
	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	// Cloudflare R2, архив квитанций. Пустой бакет отключает архивирование.
	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicBaseURL   string `env:"R2_PUBLIC_BASE_URL"`
}

// MailEnabled reports whether SMTP delivery is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// ArchiveEnabled reports whether refund receipts should be uploaded to R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2BucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.JWTSecretKey == "" {
		return errors.New("JWT_SECRET_KEY environment variable is not set")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.AdvancesPerRoom < 1 {
		return fmt.Errorf("ADVANCES_PER_ROOM must be at least 1, got %d", c.AdvancesPerRoom)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.SweepGracePeriod <= 0 {
		return fmt.Errorf("SWEEP_GRACE_PERIOD must be positive, got %s", c.SweepGracePeriod)
	}
	if c.ArchiveEnabled() && (c.R2AccountID == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "") {
		return errors.New("R2_BUCKET_NAME is set but R2 credentials are incomplete")
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type (
	// AppConfig holds environment driven configuration values. Sensitive
	// data has no defaults in code and must come from the environment.
	AppConfig struct {
		Auth AuthConfig `envPrefix:"AUTH_"`
		DB   DBConfig   `envPrefix:"DB_"`
		S3   S3Config   `envPrefix:"S3_"`
		Log  LogConfig  `envPrefix:"LOG_"`
	}

	// AuthConfig points at the hosted auth service.
	AuthConfig struct {
		URL         string `env:"URL" envDefault:"http://127.0.0.1:9999"`
		APIKey      string `env:"API_KEY"`
		SessionFile string `env:"SESSION_FILE" envDefault:".blog-session.json"`
	}

	// DBConfig points at the managed relational store. URI wins over the
	// individual fields when set.
	DBConfig struct {
		URI      string `env:"URI"`
		Host     string `env:"HOST" envDefault:"127.0.0.1"`
		Port     string `env:"PORT" envDefault:"3306"`
		User     string `env:"USER" envDefault:"root"`
		Password string `env:"PASSWORD"`
		Name     string `env:"NAME" envDefault:"blogsite"`
	}

	// S3Config points at the S3-compatible object store used for image
	// attachments.
	S3Config struct {
		Endpoint  string `env:"ENDPOINT" envDefault:"127.0.0.1:9000"`
		AccessKey string `env:"ACCESS_KEY"`
		SecretKey string `env:"SECRET_KEY"`
		Bucket    string `env:"BUCKET" envDefault:"blog-images"`
		UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	}

	// LogConfig drives the zap logger and its rolling file sink.
	LogConfig struct {
		Level      string `env:"LEVEL" envDefault:"info"`
		Path       string `env:"PATH"`
		MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"100"`
		MaxBackups int    `env:"MAX_BACKUPS" envDefault:"3"`
		MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"7"`
		Compress   bool   `env:"COMPRESS" envDefault:"false"`
	}
)

var (
	cfg    AppConfig
	loaded bool
)

// Load reads the application configuration from environment variables. It
// should be called once during boot.
func Load() (AppConfig, error) {
	if loaded {
		return cfg, nil
	}
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	loaded = true
	return cfg, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		c, err := Load()
		if err != nil {
			panic(err)
		}
		return c
	}
	return cfg
}

// DSN builds the MySQL connection string from the database section.
func (d DBConfig) DSN() string {
	if d.URI != "" {
		return d.URI
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

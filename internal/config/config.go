// Package config loads service settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "LMS"

// Config holds application configuration.
type Config struct {
	Env            string
	HTTPAddr       string
	GRPCAddr       string
	DatabaseURL    string
	AuthSecret     string
	TokenTTL       time.Duration
	CORSOrigins    []string
	BackupDir      string
	RequestTimeout time.Duration
	RateBurst      int
	RatePerSec     int
	LogMode        string
	MigrationsDir  string
	AutoMigrate    bool
}

// Load reads configuration. Values come from, in order of precedence: process
// environment (LMS_*), config/.env.<env> and .env in dir, then defaults.
// ENV selects the environment (dev by default).
func Load(dir string) (Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("token_ttl", 12*time.Hour)
	v.SetDefault("cors_origins", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("backup_dir", "var/backups")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("rate_burst", 40)
	v.SetDefault("rate_per_sec", 20)
	v.SetDefault("log_mode", "dev")
	v.SetDefault("migrations_dir", "")
	v.SetDefault("auto_migrate", false)

	env := strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))
	if env == "" {
		env = "dev"
	}
	if err := loadDotEnv(dir, env); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := Config{
		Env:            env,
		HTTPAddr:       v.GetString("http_addr"),
		GRPCAddr:       v.GetString("grpc_addr"),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		AuthSecret:     strings.TrimSpace(v.GetString("auth_secret")),
		TokenTTL:       v.GetDuration("token_ttl"),
		CORSOrigins:    splitList(v.GetString("cors_origins")),
		BackupDir:      v.GetString("backup_dir"),
		RequestTimeout: v.GetDuration("request_timeout"),
		RateBurst:      v.GetInt("rate_burst"),
		RatePerSec:     v.GetInt("rate_per_sec"),
		LogMode:        v.GetString("log_mode"),
		MigrationsDir:  strings.TrimSpace(v.GetString("migrations_dir")),
		AutoMigrate:    v.GetBool("auto_migrate"),
	}
	return cfg, cfg.Validate()
}

// Validate checks required values.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("LMS_DATABASE_URL is required"))
	}
	if len(c.AuthSecret) < 16 {
		errs = append(errs, errors.New("LMS_AUTH_SECRET must be at least 16 characters"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("LMS_TOKEN_TTL must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("LMS_REQUEST_TIMEOUT must be positive"))
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		errs = append(errs, errors.New("LMS_RATE_BURST and LMS_RATE_PER_SEC must be positive"))
	}
	return errors.Join(errs...)
}

// loadDotEnv loads config/.env.<env> then .env when present. Existing
// environment variables are never overridden.
func loadDotEnv(dir, env string) error {
	for _, p := range []string{
		filepath.Join(dir, "config", ".env."+env),
		filepath.Join(dir, ".env"),
	} {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("config: stat %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

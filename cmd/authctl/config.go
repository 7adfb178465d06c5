package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type cliConfig struct {
	Backend     string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string

	// AllowFallback lets the tiered backend degrade to SQLite when Redis is
	// unreachable.
	AllowFallback bool

	Production           bool
	CaseInsensitiveEmail bool
	LogLevel             string
	Environment          string

	SESRegion string
	SESFrom   string

	RequestTimeout time.Duration
}

// loadConfig reads .env (if present), then AUTHCTL_* variables, then the
// optional config file. Later sources win.
func loadConfig(path string) (cliConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cliConfig{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("AUTHCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", "sqlite")
	v.SetDefault("sqlite_path", "authctl.db")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_prefix", "studentopia")
	v.SetDefault("allow_fallback", false)
	v.SetDefault("production", true)
	v.SetDefault("case_insensitive_email", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("request_timeout", 30*time.Second)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cliConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := cliConfig{
		Backend:              strings.ToLower(v.GetString("backend")),
		SQLitePath:           v.GetString("sqlite_path"),
		RedisAddr:            v.GetString("redis_addr"),
		RedisPrefix:          v.GetString("redis_prefix"),
		AllowFallback:        v.GetBool("allow_fallback"),
		Production:           v.GetBool("production"),
		CaseInsensitiveEmail: v.GetBool("case_insensitive_email"),
		LogLevel:             v.GetString("log_level"),
		Environment:          v.GetString("environment"),
		SESRegion:            v.GetString("ses_region"),
		SESFrom:              v.GetString("ses_from"),
		RequestTimeout:       v.GetDuration("request_timeout"),
	}
	return cfg, cfg.validate()
}

func (c cliConfig) validate() error {
	switch c.Backend {
	case backendSQLite, backendRedis, backendMiniredis, backendTiered:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if (c.Backend == backendSQLite || c.Backend == backendTiered) && c.SQLitePath == "" {
		return errors.New("sqlite_path must be set")
	}
	if (c.Backend == backendRedis || c.Backend == backendTiered) && c.RedisAddr == "" {
		return errors.New("redis_addr must be set")
	}
	if (c.SESRegion == "") != (c.SESFrom == "") {
		return errors.New("ses_region and ses_from must be set together")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be > 0")
	}
	return nil
}

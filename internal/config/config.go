package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"hms-service/internal/domain/heritage"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type SearchConfig struct {
	ResultCap int
}

type ReindexConfig struct {
	Schedule string
}

type AccessConfig struct {
	// RestrictedTypes lists the resource types hidden from
	// anonymous-adjacent users; validated against the known types
	// at startup.
	RestrictedTypes []string
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Search      SearchConfig
	Reindex     ReindexConfig
	Access      AccessConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Search: SearchConfig{
			ResultCap: v.GetInt("SEARCH_RESULT_CAP"),
		},
		Reindex: ReindexConfig{
			Schedule: v.GetString("REINDEX_SCHEDULE"),
		},
		Access: AccessConfig{
			RestrictedTypes: v.GetStringSlice("ACCESS_RESTRICTED_TYPES"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Search.ResultCap == 0 {
		cfg.Search.ResultCap = 10000
	}
	if cfg.Reindex.Schedule == "" {
		cfg.Reindex.Schedule = "@every 30s"
	}
	if len(cfg.Access.RestrictedTypes) == 0 {
		cfg.Access.RestrictedTypes = []string{
			string(heritage.ArchaeologicalSite),
			string(heritage.ScoutReport),
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Search.ResultCap < 0 {
		return fmt.Errorf("SEARCH_RESULT_CAP must be positive")
	}
	return nil
}

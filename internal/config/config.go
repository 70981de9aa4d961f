package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Password   string        `yaml:"password"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConns       int    `yaml:"max_conns"`
	MigrationsPath string `yaml:"migrations_path"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	StashTTL time.Duration `yaml:"stash_ttl"` // checkout token stash lifetime
}

type GatewayConfig struct {
	Name          string        `yaml:"name"` // provider label for logs/metrics
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	VerifyTimeout time.Duration `yaml:"verify_timeout"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

type URLConfig struct {
	Purchases string `yaml:"purchases"` // success redirect destination
	Checkout  string `yaml:"checkout"`  // failure redirect destination
}

type SweeperConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type I18NConfig struct {
	Locale string `yaml:"locale"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	URLs     URLConfig      `yaml:"urls"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	I18N     I18NConfig     `yaml:"i18n"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
	}
	if cfg.Redis.StashTTL <= 0 {
		cfg.Redis.StashTTL = 30 * time.Minute
	}
	if cfg.Gateway.VerifyTimeout <= 0 {
		cfg.Gateway.VerifyTimeout = 15 * time.Second
	}
	if cfg.URLs.Purchases == "" {
		cfg.URLs.Purchases = "/my-purchases"
	}
	if cfg.URLs.Checkout == "" {
		cfg.URLs.Checkout = "/checkout"
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Minute
	}
	if cfg.Sweeper.StaleAfter <= 0 {
		cfg.Sweeper.StaleAfter = 10 * time.Minute
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.I18N.Locale == "" {
		cfg.I18N.Locale = "en"
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Admin.JWTSecret == "" && !dev {
		return nil, errors.New("admin.jwt_secret is required outside dev")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

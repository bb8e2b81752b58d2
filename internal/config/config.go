package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr       string          `yaml:"addr"`
	JWTSecret  string          `yaml:"jwt_secret"`
	APITimeout time.Duration   `yaml:"timeout"`
	Database   DatabaseConfig  `yaml:"database"`
	Credits    CreditsConfig   `yaml:"credits"`
	Lifecycle  LifecycleConfig `yaml:"lifecycle"`
	Notify     NotifyConfig    `yaml:"notify"`
	Matching   MatchingConfig  `yaml:"matching"`
	Mail       MailConfig      `yaml:"mail"`
	Workers    WorkersConfig   `yaml:"workers"`

	MigrateOnStart bool `yaml:"migrate_on_start"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" (modernc) or "pgx".
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type CreditsConfig struct {
	// RefillMode is "reset" (balance becomes the plan amount) or "additive".
	RefillMode string         `yaml:"refill_mode"`
	Plans      map[string]int `yaml:"plans"`
}

type LifecycleConfig struct {
	TxTimeout              time.Duration `yaml:"tx_timeout"`
	RejectSiblingsOnAccept *bool         `yaml:"reject_siblings_on_accept"`
	NotifyNewOpportunity   bool          `yaml:"notify_new_opportunity"`
}

// RejectSiblings reports the effective sibling policy; unset means true.
func (c LifecycleConfig) RejectSiblings() bool {
	return c.RejectSiblingsOnAccept == nil || *c.RejectSiblingsOnAccept
}

type NotifyConfig struct {
	FeedCap int `yaml:"feed_cap"`
}

type MatchingConfig struct {
	CategoryWeight int `yaml:"category_weight"`
	LocationWeight int `yaml:"location_weight"`
	BaseWeight     int `yaml:"base_weight"`
}

type MailConfig struct {
	// Driver is "log" or "smtp".
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type WorkersConfig struct {
	Count       int `yaml:"count"`
	MaxAttempts int `yaml:"max_attempts"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:       getEnv("MARKET_ADDR", ":8080"),
		JWTSecret:  getEnv("MARKET_JWT_SECRET", insecureJWTSecret),
		APITimeout: 15 * time.Second,
		Database: DatabaseConfig{
			Driver: getEnv("MARKET_DB_DRIVER", "sqlite"),
			DSN:    getEnv("MARKET_DB_DSN", "marketplace.db"),
		},
		Mail: MailConfig{
			Driver: getEnv("MARKET_MAIL_DRIVER", "log"),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate fills defaults and rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && getEnv("MARKET_ENV", "") != "development" {
		return errors.New("insecure jwt_secret; set MARKET_JWT_SECRET or MARKET_ENV=development")
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}

	switch c.Database.Driver {
	case "":
		c.Database.Driver = "sqlite"
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.Credits.RefillMode {
	case "":
		c.Credits.RefillMode = "reset"
	case "reset", "additive":
	default:
		return fmt.Errorf("unsupported credits.refill_mode %q", c.Credits.RefillMode)
	}
	if c.Credits.Plans == nil {
		c.Credits.Plans = map[string]int{}
	}
	for plan, amount := range map[string]int{"FREE": 3, "PRO": 20, "AGENCY": 1_000_000} {
		if _, ok := c.Credits.Plans[plan]; !ok {
			c.Credits.Plans[plan] = amount
		}
	}
	for plan, amount := range c.Credits.Plans {
		if amount < 0 {
			return fmt.Errorf("credits.plans.%s must not be negative", plan)
		}
	}

	if c.Lifecycle.TxTimeout <= 0 {
		c.Lifecycle.TxTimeout = 5 * time.Second
	}
	if c.Notify.FeedCap <= 0 {
		c.Notify.FeedCap = 8
	}
	if c.Matching == (MatchingConfig{}) {
		c.Matching = MatchingConfig{CategoryWeight: 60, LocationWeight: 30, BaseWeight: 10}
	}

	switch c.Mail.Driver {
	case "":
		c.Mail.Driver = "log"
	case "log":
	case "smtp":
		if c.Mail.Host == "" || c.Mail.From == "" {
			return errors.New("mail.host and mail.from are required for the smtp driver")
		}
		if c.Mail.Port == 0 {
			c.Mail.Port = 587
		}
	default:
		return fmt.Errorf("unsupported mail.driver %q", c.Mail.Driver)
	}

	if c.Workers.Count <= 0 {
		c.Workers.Count = 2
	}
	if c.Workers.MaxAttempts <= 0 {
		c.Workers.MaxAttempts = 5
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/garnizeh/marketplace/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Addr:       ":8080",
		JWTSecret:  "strongsecret",
		APITimeout: 5 * time.Second,
		Database:   config.DatabaseConfig{Driver: "sqlite", DSN: "market.db"},
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	t.Setenv("MARKET_ENV", "production")

	cfg := validConfig()
	cfg.JWTSecret = "supersecretkey"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	t.Setenv("MARKET_ENV", "development")

	cfg := validConfig()
	cfg.JWTSecret = "supersecretkey"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_DefaultsPopulated(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}

	if cfg.Credits.RefillMode != "reset" {
		t.Fatalf("expected reset refill mode, got %q", cfg.Credits.RefillMode)
	}
	want := map[string]int{"FREE": 3, "PRO": 20, "AGENCY": 1_000_000}
	for plan, amount := range want {
		if cfg.Credits.Plans[plan] != amount {
			t.Fatalf("plan %s: got %d want %d", plan, cfg.Credits.Plans[plan], amount)
		}
	}
	if cfg.Notify.FeedCap != 8 {
		t.Fatalf("expected feed cap 8, got %d", cfg.Notify.FeedCap)
	}
	if cfg.Lifecycle.TxTimeout <= 0 {
		t.Fatalf("expected tx timeout default")
	}
	if !cfg.Lifecycle.RejectSiblings() {
		t.Fatalf("expected sibling rejection on by default")
	}
	if cfg.Matching.CategoryWeight != 60 || cfg.Matching.LocationWeight != 30 || cfg.Matching.BaseWeight != 10 {
		t.Fatalf("unexpected matching weights: %+v", cfg.Matching)
	}
	if cfg.Mail.Driver != "log" {
		t.Fatalf("expected log mail driver, got %q", cfg.Mail.Driver)
	}
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"driver":      func(c *config.Config) { c.Database.Driver = "mysql" },
		"refill mode": func(c *config.Config) { c.Credits.RefillMode = "double" },
		"mail driver": func(c *config.Config) { c.Mail.Driver = "carrier-pigeon" },
		"smtp host":   func(c *config.Config) { c.Mail.Driver = "smtp" },
		"negative":    func(c *config.Config) { c.Credits.Plans = map[string]int{"PRO": -1} },
		"empty dsn":   func(c *config.Config) { c.Database.DSN = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MARKET_ADDR", "")
	t.Setenv("MARKET_JWT_SECRET", "")
	t.Setenv("MARKET_DB_DSN", "")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q want %q", cfg.Addr, ":8080")
	}
	if cfg.Database.DSN != "marketplace.db" {
		t.Fatalf("unexpected DSN: got %q", cfg.Database.DSN)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Fatalf("unexpected APITimeout: got %v want %v", cfg.APITimeout, 15*time.Second)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	content := []byte(`addr: ":9090"
jwt_secret: "filekey"
timeout: "30s"
database:
  driver: pgx
  dsn: "postgres://market@localhost/market"
credits:
  refill_mode: additive
  plans:
    PRO: 50
lifecycle:
  tx_timeout: "2s"
  reject_siblings_on_accept: false
notify:
  feed_cap: 5
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Addr != ":9090" || cfg.JWTSecret != "filekey" {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.APITimeout != 30*time.Second {
		t.Fatalf("unexpected APITimeout: got %v", cfg.APITimeout)
	}
	if cfg.Database.Driver != "pgx" {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.Credits.RefillMode != "additive" || cfg.Credits.Plans["PRO"] != 50 || cfg.Credits.Plans["FREE"] != 3 {
		t.Fatalf("unexpected credits config: %+v", cfg.Credits)
	}
	if cfg.Lifecycle.TxTimeout != 2*time.Second || cfg.Lifecycle.RejectSiblings() {
		t.Fatalf("unexpected lifecycle config: %+v", cfg.Lifecycle)
	}
	if cfg.Notify.FeedCap != 5 {
		t.Fatalf("unexpected feed cap %d", cfg.Notify.FeedCap)
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := t.TempDir() + "/bad.yaml"
	if err := os.WriteFile(path, []byte("::: not yaml :::"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}

	if _, err := config.LoadConfig(path); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/tradermood/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
input:
  trades: "data/historical_data.csv"

columns:
  trade:
    timestamp: "Timestamp"

analysis:
  top_n: 10
  missing_side_policy: zero

storage:
  type: localfs
  path: "/tmp/tradermood"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Input.Trades != "data/historical_data.csv" {
		t.Errorf("expected trades path override, got %s", cfg.Input.Trades)
	}
	if cfg.Input.Sentiment != "fear_greed_index.csv" {
		t.Errorf("expected default sentiment path, got %s", cfg.Input.Sentiment)
	}
	if cfg.Columns.Trade.Timestamp != "Timestamp" {
		t.Errorf("expected timestamp column override, got %s", cfg.Columns.Trade.Timestamp)
	}
	if cfg.Columns.Trade.ClosedPnL != "Closed PnL" {
		t.Errorf("expected default pnl column, got %s", cfg.Columns.Trade.ClosedPnL)
	}
	if cfg.Analysis.TopN != 10 {
		t.Errorf("expected top_n 10, got %d", cfg.Analysis.TopN)
	}
	if cfg.Analysis.MissingSidePolicy != PolicyZero {
		t.Errorf("expected zero policy, got %s", cfg.Analysis.MissingSidePolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TRADERMOOD_TEST_BUCKET", "analytics")
	content := []byte(`
storage:
  type: s3
  s3:
    bucket: "${TRADERMOOD_TEST_BUCKET}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.S3.Bucket != "analytics" {
		t.Errorf("expected expanded bucket, got %q", cfg.Storage.S3.Bucket)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Analysis.TopN != 5 {
		t.Errorf("expected default top_n 5, got %d", cfg.Analysis.TopN)
	}
	if cfg.Analysis.MissingSidePolicy != PolicyExclude {
		t.Errorf("expected default policy exclude, got %s", cfg.Analysis.MissingSidePolicy)
	}
	if cfg.Columns.Trade.Timestamp != "Timestamp IST" {
		t.Errorf("unexpected default timestamp column %q", cfg.Columns.Trade.Timestamp)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{"valid defaults", func(c *Config) {}, nil},
		{"zero top_n", func(c *Config) { c.Analysis.TopN = 0 }, core.ErrConfigInvalid},
		{"unknown policy", func(c *Config) { c.Analysis.MissingSidePolicy = "guess" }, core.ErrConfigInvalid},
		{"missing pnl column", func(c *Config) { c.Columns.Trade.ClosedPnL = "" }, core.ErrConfigMissing},
		{"missing sentiment date column", func(c *Config) { c.Columns.Sentiment.Date = "" }, core.ErrConfigMissing},
		{"unknown storage", func(c *Config) { c.Storage.Type = "ftp" }, core.ErrConfigInvalid},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, core.ErrConfigMissing},
		{"unknown report format", func(c *Config) { c.Report.Format = "xml" }, core.ErrConfigInvalid},
		{"negative retain", func(c *Config) { c.Report.Retain = -1 }, core.ErrConfigInvalid},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"claude without key", func(c *Config) { c.LLM.Provider = "claude" }, core.ErrConfigMissing},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "bard" }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %s", err, tt.wantErr.Code)
			}
		})
	}
}

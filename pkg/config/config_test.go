package config

import (
	"testing"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if !cfg.App.IsProd() {
		t.Fatal("expected IsProd to be true")
	}
	if cfg.Ledger.DataFile != "/var/lib/craftledger/ledger.json" {
		t.Fatalf("unexpected data file: %q", cfg.Ledger.DataFile)
	}
	if cfg.Notify.Transport != "log" {
		t.Fatalf("expected default notify transport log, got %q", cfg.Notify.Transport)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("CRAFTLEDGER_APP_ENV", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when CRAFTLEDGER_APP_ENV missing")
	}
}

func TestValidate_WebhookRequiresURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("CRAFTLEDGER_NOTIFY_TRANSPORT", "webhook")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for webhook transport without URL")
	}

	t.Setenv("CRAFTLEDGER_NOTIFY_WEBHOOK_URL", "https://example.test/hook")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CRAFTLEDGER_APP_ENV", "production")
	t.Setenv("CRAFTLEDGER_DATA_FILE", "/var/lib/craftledger/ledger.json")
	t.Setenv("CRAFTLEDGER_CATALOG_FILE", "/etc/craftledger/catalog.json")
}

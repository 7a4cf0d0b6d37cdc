package infra

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LIBRARY_PATH", t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("QUEUE_DB_PATH", "")
	t.Setenv("AIRTABLE_PAT", "")
	t.Setenv("AIRTABLE_BASE_ID", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Fatalf("Port mismatch: got %q want %q", cfg.Port, "8000")
	}
	if cfg.PublicURL != "http://localhost:8000" {
		t.Fatalf("PublicURL mismatch: got %q", cfg.PublicURL)
	}
	if cfg.PipelineInterval != 5*time.Minute {
		t.Fatalf("PipelineInterval mismatch: got %v", cfg.PipelineInterval)
	}
	expected := filepath.Join(cfg.LibraryPath, "queue.db")
	if cfg.QueueDBPath != expected {
		t.Fatalf("QueueDBPath mismatch: got %q want %q", cfg.QueueDBPath, expected)
	}
	if cfg.AirtableConfigured() {
		t.Fatalf("AirtableConfigured should be false without credentials")
	}
}

func TestLoadConfigRequiresBaseIDWithPAT(t *testing.T) {
	t.Setenv("LIBRARY_PATH", t.TempDir())
	t.Setenv("AIRTABLE_PAT", "pat-123")
	t.Setenv("AIRTABLE_BASE_ID", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when AIRTABLE_PAT is set without AIRTABLE_BASE_ID")
	}
}

func TestLoadConfigTrimsPublicURL(t *testing.T) {
	t.Setenv("LIBRARY_PATH", t.TempDir())
	t.Setenv("PUBLIC_URL", "https://studio.example.com/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicURL != "https://studio.example.com" {
		t.Fatalf("PublicURL mismatch: got %q", cfg.PublicURL)
	}
}

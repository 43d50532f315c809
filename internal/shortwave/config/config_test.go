package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"bind": ":8080"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdvertiseTTLSeconds != defaultAdvertiseTTLSeconds {
		t.Fatalf("expected default ttl, got %d", cfg.AdvertiseTTLSeconds)
	}
	if cfg.MaxFrequenciesPerOwner != defaultMaxFrequenciesPerOwner {
		t.Fatalf("expected default max frequencies, got %d", cfg.MaxFrequenciesPerOwner)
	}
	if cfg.NodeID == "" {
		t.Fatalf("expected generated node_id")
	}
}

func TestLoadRejectsMissingBind(t *testing.T) {
	path := writeConfig(t, `{}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing bind address")
	}
}

func TestLoadRejectsTTLBelowMinimum(t *testing.T) {
	path := writeConfig(t, `{"bind": ":8080", "advertise_ttl_secs": 5}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for ttl below minimum")
	}
}

func TestLoadRejectsBlocklistRefreshBelowMinimum(t *testing.T) {
	path := writeConfig(t, `{"bind": ":8080", "blocklist_url": "https://example.com/list", "blocklist_refresh_secs": 5}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for blocklist refresh below minimum")
	}
}

func TestLoadRejectsIncompleteStation(t *testing.T) {
	path := writeConfig(t, `{"bind": ":8080", "station": {"name": "Test"}}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for station missing frequency/station_id")
	}
}

func TestLoadAcceptsCompleteStation(t *testing.T) {
	path := writeConfig(t, `{"bind": ":8080", "station": {"name": "Test", "frequency": "100.5", "station_id": "550e8400-e29b-41d4-a716-446655440000"}}`)
	if _, err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

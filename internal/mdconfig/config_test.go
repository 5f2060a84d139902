package mdconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, File{
		Application: ApplicationConfig{ModuleName: "runner"},
		Connections: []ConnectionConfig{
			{Exchange: "binance", MdSize: 1024},
		},
	})
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Application.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.Application.LogLevel)
	}
	c := cfg.Connections[0]
	if c.Redundancy != 1 {
		t.Fatalf("expected default redundancy 1, got %d", c.Redundancy)
	}
	if c.RotationWindowSeconds != DefaultRotationWindowSeconds {
		t.Fatalf("expected default rotation window, got %d", c.RotationWindowSeconds)
	}
}

func TestLoadRejectsBadMdSize(t *testing.T) {
	path := writeTempConfig(t, File{
		Connections: []ConnectionConfig{{Exchange: "binance", MdSize: 3}},
	})
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-power-of-two md_size")
	}
}

func TestLoadRejectsUnknownExchange(t *testing.T) {
	path := writeTempConfig(t, File{
		Connections: []ConnectionConfig{{Exchange: "huobi", MdSize: 1024}},
	})
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown exchange")
	}
}

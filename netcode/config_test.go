package netcode

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigSuccess(t *testing.T) {
	path := writeTempConfig(t, `{
		"field_width": 8,
		"rate": 5,
		"max_rate": 10,
		"window_size": 256,
		"code_type": "systematic",
		"adaptive": true,
		"in_order": true,
		"ack_frequency_ms": 100,
		"ack_nb_packets": 32
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.FieldWidth != 8 || cfg.Rate != 5 || cfg.MaxRate != 10 {
		t.Fatalf("unexpected numeric fields: %+v", cfg)
	}
	if cfg.ParseCodeType() != Systematic {
		t.Fatalf("ParseCodeType() = %v, want Systematic", cfg.ParseCodeType())
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	if _, err := LoadConfig(missing); err == nil {
		t.Fatalf("LoadConfig expected an error for a missing file")
	}
}

func TestConfigValidateRejectsBadFieldWidth(t *testing.T) {
	cfg := &Config{FieldWidth: 12, Rate: 1, MaxRate: 1, CodeType: "systematic"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate expected an error for field_width=12")
	}
}

func TestConfigValidateRejectsRateAboveMaxRate(t *testing.T) {
	cfg := &Config{FieldWidth: 8, Rate: 10, MaxRate: 5, CodeType: "systematic"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate expected an error when rate > max_rate")
	}
}

func TestConfigValidateRejectsUnknownCodeType(t *testing.T) {
	cfg := &Config{FieldWidth: 8, Rate: 1, MaxRate: 1, CodeType: "bogus"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate expected an error for an unknown code_type")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"seatcast/internal/apperr"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Policy.MaxCapacity != 45 || cfg.Policy.TargetUtilization != 0.9 {
		t.Errorf("unexpected default policy: %+v", cfg.Policy)
	}
	if cfg.Training.Trees != 100 || cfg.Training.Seed != 42 {
		t.Errorf("unexpected default training: %+v", cfg.Training)
	}
	if cfg.DatasetPath != filepath.Join(dir, "denemedata2.csv") {
		t.Errorf("unexpected dataset path %q", cfg.DatasetPath)
	}
	if cfg.ResultTTL != time.Hour {
		t.Errorf("unexpected result TTL %v", cfg.ResultTTL)
	}
	if !cfg.EnableMermaidCharts {
		t.Error("charts should be enabled by default")
	}
	if _, err := os.Stat(cfg.LogDir); err != nil {
		t.Errorf("log dir not created: %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"NonNumericCapacity", "MAX_CAPACITY", "lots"},
		{"ZeroCapacity", "MAX_CAPACITY", "0"},
		{"TargetAboveOne", "TARGET_UTILIZATION", "1.5"},
		{"NonNumericTrees", "FOREST_TREES", "many"},
		{"ZeroTrees", "FOREST_TREES", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATA_PATH", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if !apperr.IsKind(err, apperr.KindConfig) {
				t.Errorf("expected ConfigError for %s=%s, got %v", tt.key, tt.value, err)
			}
		})
	}
}

func TestHolidayProvider_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	if err := os.WriteFile(path, []byte("add:\n  - date: 2024-12-31\n    name: Kurum tatili\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &AppConfig{HolidayCountry: "TR", HolidayOverrides: path}
	provider, err := cfg.HolidayProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set, err := provider.Holidays(t.Context(), "TR", []int{2024})
	if err != nil {
		t.Fatal(err)
	}
	if !set.Contains(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Error("override holiday missing")
	}
	if !set.Contains(time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC)) {
		t.Error("built-in holiday missing")
	}

	cfg.HolidayOverrides = filepath.Join(dir, "missing.yaml")
	if _, err := cfg.HolidayProvider(); !apperr.IsKind(err, apperr.KindConfig) {
		t.Errorf("expected ConfigError for missing override file, got %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"mogura/server/application"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.Tier != application.TierMedium {
		t.Errorf("tier = %s, want medium", s.Tier)
	}
	if len(s.RewardItems) != 5 || len(s.OtherItems) != 5 {
		t.Errorf("items = %d/%d, want 5/5", len(s.RewardItems), len(s.OtherItems))
	}
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tier != "medium" || cfg.DurationSeconds != 30 {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EntityCount != 9 {
		t.Errorf("entityCount = %d, want default 9", cfg.EntityCount)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	body := `
tier: fast
duration_seconds: 45
reward_category: multiples_of_3
categories:
  - name: multiples_of_3
    items: ["3", "6", "9"]
  - name: others
    items: ["2", "5", "7"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tier != "fast" || cfg.DurationSeconds != 45 {
		t.Errorf("cfg = %+v", cfg)
	}
	// 省略されたキーはデフォルトのまま
	if cfg.EntityCount != 9 || cfg.AnimMillis != 400 {
		t.Errorf("unset keys should keep defaults: %+v", cfg)
	}

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if len(s.RewardItems) != 3 || s.RewardItems[0] != "3" {
		t.Errorf("reward items = %v", s.RewardItems)
	}
	if len(s.OtherItems) != 3 {
		t.Errorf("other items = %v", s.OtherItems)
	}
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"bad tier":       "tier: turbo\n",
		"zero duration":  "duration_seconds: 0\n",
		"too many slots": "entity_count: 64\n",
		"bad ratio":      "reward_ratio: 1.5\n",
		"empty reward":   "reward_category: missing\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: Load accepted invalid config", name)
		}
	}
}

func TestValidate_NegativeCountdown(t *testing.T) {
	cfg := Default()
	cfg.CountdownSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative countdown should be rejected")
	}
}

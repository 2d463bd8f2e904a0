package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mogura/server/application"
)

// Config はゲームのチューニング設定です。YAMLファイルから読み込みます。
// ファイルが存在しない場合はデフォルト値で動作します。
// セッション構築後は不変として扱われます。
type Config struct {
	DurationSeconds  int     `yaml:"duration_seconds"`
	Tier             string  `yaml:"tier"`
	EntityCount      int     `yaml:"entity_count"`
	AnimMillis       int     `yaml:"anim_millis"`
	HoldMillis       int     `yaml:"hold_millis"`
	CountdownSeconds int     `yaml:"countdown_seconds"`
	RewardRatio      float64 `yaml:"reward_ratio"`

	// RewardCategory は正解として扱うカテゴリ名。残りのカテゴリが不正解側になる
	RewardCategory string     `yaml:"reward_category"`
	Categories     []Category `yaml:"categories"`
}

// Category は出題内容のカテゴリです。
type Category struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

// Default は「偶数を叩く」デフォルトラウンドの設定を返します。
func Default() Config {
	return Config{
		DurationSeconds:  30,
		Tier:             "medium",
		EntityCount:      9,
		AnimMillis:       400,
		HoldMillis:       1500,
		CountdownSeconds: 3,
		RewardRatio:      application.DefaultRewardRatio,
		RewardCategory:   "even",
		Categories: []Category{
			{Name: "even", Items: []string{"2", "4", "6", "8", "10"}},
			{Name: "odd", Items: []string{"1", "3", "5", "7", "9"}},
		},
	}
}

// Load はYAMLファイルを読み込みます。path が空またはファイルが存在しない場合は
// デフォルト設定を返します。ファイル内で省略されたキーはデフォルト値のままです。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検査します。
func (c Config) Validate() error {
	if c.DurationSeconds <= 0 {
		return fmt.Errorf("duration_seconds must be positive: %d", c.DurationSeconds)
	}
	if c.EntityCount < 1 || c.EntityCount > 32 {
		return fmt.Errorf("entity_count must be in [1, 32]: %d", c.EntityCount)
	}
	if c.AnimMillis <= 0 || c.HoldMillis <= 0 {
		return fmt.Errorf("anim_millis and hold_millis must be positive")
	}
	if c.CountdownSeconds < 0 {
		return fmt.Errorf("countdown_seconds must not be negative: %d", c.CountdownSeconds)
	}
	if c.RewardRatio < 0 || c.RewardRatio > 1 {
		return fmt.Errorf("reward_ratio must be in [0, 1]: %f", c.RewardRatio)
	}
	if _, err := application.ParseSpeedTier(c.Tier); err != nil {
		return err
	}
	reward, _ := c.splitItems()
	if len(reward) == 0 {
		return fmt.Errorf("reward category %q has no items", c.RewardCategory)
	}
	return nil
}

// Settings は設定をコアのSettingsに変換します。
func (c Config) Settings() (application.Settings, error) {
	tier, err := application.ParseSpeedTier(c.Tier)
	if err != nil {
		return application.Settings{}, err
	}
	reward, others := c.splitItems()
	if len(reward) == 0 {
		return application.Settings{}, fmt.Errorf("reward category %q has no items", c.RewardCategory)
	}
	return application.Settings{
		DurationSeconds:  c.DurationSeconds,
		Tier:             tier,
		EntityCount:      c.EntityCount,
		AnimMillis:       c.AnimMillis,
		HoldMillis:       c.HoldMillis,
		CountdownSeconds: c.CountdownSeconds,
		RewardRatio:      c.RewardRatio,
		RewardItems:      reward,
		OtherItems:       others,
	}, nil
}

// splitItems はカテゴリを報酬側とそれ以外に振り分けます。
func (c Config) splitItems() (reward, others []string) {
	for _, cat := range c.Categories {
		if cat.Name == c.RewardCategory {
			reward = append(reward, cat.Items...)
			continue
		}
		others = append(others, cat.Items...)
	}
	return reward, others
}

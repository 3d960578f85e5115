// Package config loads run settings from an optional JSON file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultModel       = "gpt-4o-2024-05-13"
	DefaultVisionModel = "gpt-4o-2024-05-13"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.75
	DefaultServerAddr  = ":8080"
	envPrefix          = "LABNOTEBOOK"
)

// Config holds the model and service settings.
type Config struct {
	LLM        LLMConfig     `mapstructure:"llm"`
	VLM        LLMConfig     `mapstructure:"vlm"`
	ServerAddr string        `mapstructure:"server_addr"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

// LLMConfig 描述一个模型端点；provider 为空时根据 model 名推断。
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		VLM: LLMConfig{
			Model:       DefaultVisionModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		ServerAddr: DefaultServerAddr,
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads the JSON config at path (optional) and applies LABNOTEBOOK_* env overrides,
// e.g. LABNOTEBOOK_LLM_API_KEY or LABNOTEBOOK_VLM_MODEL.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	for prefix, m := range map[string]LLMConfig{"llm": d.LLM, "vlm": d.VLM} {
		v.SetDefault(prefix+".provider", m.Provider)
		v.SetDefault(prefix+".model", m.Model)
		v.SetDefault(prefix+".api_key", m.APIKey)
		v.SetDefault(prefix+".base_url", m.BaseURL)
		v.SetDefault(prefix+".max_tokens", m.MaxTokens)
		v.SetDefault(prefix+".temperature", m.Temperature)
	}
	v.SetDefault("server_addr", d.ServerAddr)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", d.Logging.Pretty)
	v.SetDefault("logging.file", d.Logging.File)
}

// Validate checks values that would only fail later at request time.
func (c Config) Validate() error {
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.VLM.Model == "" {
		return errors.New("vlm.model is required")
	}
	if c.LLM.MaxTokens < 0 || c.VLM.MaxTokens < 0 {
		return errors.New("max_tokens must not be negative")
	}
	return nil
}

// providerKeyEnv lists the conventional API key variables per provider.
var providerKeyEnv = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"deepseek":  {"DEEPSEEK_API_KEY"},
}

// ResolveAPIKey returns the configured key, falling back to the provider's usual env var.
func (c LLMConfig) ResolveAPIKey(provider string) string {
	if c.APIKey != "" {
		return c.APIKey
	}
	for _, name := range providerKeyEnv[provider] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}

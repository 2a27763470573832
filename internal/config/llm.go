package config

import (
	"strings"
	"time"
)

// LLMConfig configures the decision engine.
type LLMConfig struct {
	Provider     string `yaml:"provider"` // gemini
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	Timeout      string `yaml:"timeout"`
	GoogleSearch bool   `yaml:"google_search"` // ground answers with Google Search
}

// GetLLMTimeout returns the per-decision timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// HasUsableAPIKey reports whether the key looks like a Google API key.
func (c *LLMConfig) HasUsableAPIKey() bool {
	return strings.HasPrefix(c.APIKey, "AIza")
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

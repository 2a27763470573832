package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "AUTOCRAFT_MODEL", "AUTOCRAFT_BRIDGE_URL", "AUTOCRAFT_USERNAME", "AUTOCRAFT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 30*time.Second, cfg.GetIdleDelay())
	assert.Equal(t, time.Second, cfg.GetFollowInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.GetAttackInterval())
	assert.Equal(t, 250*time.Millisecond, cfg.GetGatherStepDelay())
	assert.Equal(t, time.Second, cfg.GetGatherRetryDelay())
	assert.Equal(t, 3, cfg.Supervisor.GatherMaxFailures)
	assert.Equal(t, 16.0, cfg.Agent.DetectionRadius)
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "autocraft.yaml")

	cfg := DefaultConfig()
	cfg.Server.Username = "Digger"
	cfg.Supervisor.GatherMaxFailures = 5
	cfg.Agent.IdleDelay = "2m"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Digger", loaded.Server.Username)
	assert.Equal(t, 5, loaded.Supervisor.GatherMaxFailures)
	assert.Equal(t, 2*time.Minute, loaded.GetIdleDelay())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "autocraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte("supervisor:\n  strike_range: 3\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Supervisor.StrikeRange)
	assert.Equal(t, 16.0, cfg.Supervisor.EngagementRadius)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autocraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "AIzaTest")
	t.Setenv("AUTOCRAFT_BRIDGE_URL", "ws://example:1/bot")
	t.Setenv("AUTOCRAFT_USERNAME", "Scout")

	cfg := &Config{}
	cfg.applyEnvOverrides()

	assert.Equal(t, "AIzaTest", cfg.LLM.APIKey)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "ws://example:1/bot", cfg.Bridge.URL)
	assert.Equal(t, "Scout", cfg.Server.Username)
	assert.True(t, cfg.LLM.HasUsableAPIKey())
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agent.IdleDelay = "soon"
	cfg.LLM.Timeout = ""
	cfg.Bridge.RequestTimeout = "-5s"
	assert.Equal(t, 30*time.Second, cfg.GetIdleDelay())
	assert.Equal(t, 60*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetBridgeTimeout())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.LLM.Provider = "mystery" }},
		{"username", func(c *Config) { c.Server.Username = " " }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"failures", func(c *Config) { c.Supervisor.GatherMaxFailures = 0 }},
		{"strike range", func(c *Config) { c.Supervisor.StrikeRange = 20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{Categories: map[string]bool{"bridge": false}}
	assert.False(t, lc.IsCategoryEnabled("bridge"))
	assert.True(t, lc.IsCategoryEnabled("agent"))
	assert.Equal(t, lc.Categories, lc.Options().Categories)
}

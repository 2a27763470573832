package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "autocraft.yaml"

// Config holds all autocraft configuration.
type Config struct {
	Name string `yaml:"name"`

	// Decision engine
	LLM LLMConfig `yaml:"llm"`

	// Game server the sidecar connects to
	Server ServerConfig `yaml:"server"`

	// Websocket bridge to the game-client sidecar
	Bridge BridgeConfig `yaml:"bridge"`

	// Interrupt arbiter: idle trigger, reflexes
	Agent AgentConfig `yaml:"agent"`

	// Persistent task tuning
	Supervisor SupervisorConfig `yaml:"supervisor"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "autocraft",

		LLM: LLMConfig{
			Provider:     "gemini",
			Model:        "gemini-2.5-flash",
			Timeout:      "60s",
			GoogleSearch: true,
		},

		Server: ServerConfig{
			Host:     "localhost",
			Port:     25565,
			Username: "GeminiBot",
			Version:  "1.21",
		},

		Bridge: BridgeConfig{
			URL:            "ws://localhost:8765/bot",
			RequestTimeout: "30s",
			ChatPerSecond:  2,
			ChatBurst:      4,
		},

		Agent: AgentConfig{
			IdleDelay:       "30s",
			DetectionRadius: 16,
		},

		Supervisor: SupervisorConfig{
			FollowInterval:     "1s",
			FollowRange:        2,
			AttackInterval:     "500ms",
			EngagementRadius:   16,
			StrikeRange:        3.5,
			GatherSearchRadius: 48,
			GatherStepDelay:    "250ms",
			GatherRetryDelay:   "1s",
			GatherMaxFailures:  3,
			RelocateDistance:   32,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if model := os.Getenv("AUTOCRAFT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("AUTOCRAFT_BRIDGE_URL"); url != "" {
		c.Bridge.URL = url
	}
	if name := os.Getenv("AUTOCRAFT_USERNAME"); name != "" {
		c.Server.Username = name
	}
	if lvl := os.Getenv("AUTOCRAFT_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
}

// ValidProviders lists all supported decision engine providers.
var ValidProviders = []string{"gemini"}

// Validate validates the configuration. A missing API key is not an error:
// the agent still runs and answers every command with an apology.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if strings.TrimSpace(c.Server.Username) == "" {
		return fmt.Errorf("server.username must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Supervisor.GatherMaxFailures <= 0 {
		return fmt.Errorf("supervisor.gather_max_failures must be positive")
	}
	if c.Supervisor.StrikeRange > c.Supervisor.EngagementRadius {
		return fmt.Errorf("supervisor.strike_range (%.1f) exceeds engagement_radius (%.1f)",
			c.Supervisor.StrikeRange, c.Supervisor.EngagementRadius)
	}

	return nil
}

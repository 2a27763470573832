package config

import (
	"fmt"
	"time"
)

// ServerConfig identifies the game server the sidecar joins.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Version  string `yaml:"version"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BridgeConfig configures the websocket bridge to the game-client sidecar.
type BridgeConfig struct {
	URL            string  `yaml:"url"`
	RequestTimeout string  `yaml:"request_timeout"`
	ChatPerSecond  float64 `yaml:"chat_per_second"` // outbound chat throttle
	ChatBurst      int     `yaml:"chat_burst"`
}

// GetBridgeTimeout returns the per-request bridge timeout.
func (c *Config) GetBridgeTimeout() time.Duration {
	return parseDuration(c.Bridge.RequestTimeout, 30*time.Second)
}

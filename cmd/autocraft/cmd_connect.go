package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autocraft/internal/decision"
	"autocraft/internal/world"
	"autocraft/internal/world/bridge"
)

var (
	connectHost     string
	connectPort     int
	connectUsername string
	connectVersion  string
	connectURL      string
)

// connectCmd joins a real server through the game-client sidecar
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a game server through the bridge sidecar",
	Long: `Connects to the bridge sidecar over a websocket and asks it to join the
configured game server. Players can then talk to the agent in game chat, and
lines typed here are sent as terminal commands.

Example:
  autocraft connect --host play.example.net --username GeminiBot`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&connectHost, "host", "", "Game server host (overrides config)")
	connectCmd.Flags().IntVar(&connectPort, "port", 0, "Game server port (overrides config)")
	connectCmd.Flags().StringVar(&connectUsername, "username", "", "Agent username (overrides config)")
	connectCmd.Flags().StringVar(&connectVersion, "version", "", "Game version (overrides config)")
	connectCmd.Flags().StringVar(&connectURL, "url", "", "Bridge sidecar websocket URL (overrides config)")
}

// applyConnectFlags copies explicitly set flags over the loaded config.
func applyConnectFlags() {
	if connectHost != "" {
		cfg.Server.Host = connectHost
	}
	if connectPort != 0 {
		cfg.Server.Port = connectPort
	}
	if connectUsername != "" {
		cfg.Server.Username = connectUsername
	}
	if connectVersion != "" {
		cfg.Server.Version = connectVersion
	}
	if connectURL != "" {
		cfg.Bridge.URL = connectURL
	}
}

func runConnect(cmd *cobra.Command, args []string) error {
	applyConnectFlags()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	console := NewConsole(cmd.OutOrStdout())

	engine, err := decision.NewGeminiEngine(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create decision engine: %w", err)
	}
	if !engine.Configured() {
		console.Error("No usable Gemini API key. Set GEMINI_API_KEY or llm.api_key; every command will be answered with an apology.")
	}

	console.System("Connecting to %s as %s...", cfg.Server.Address(), cfg.Server.Username)
	client, err := bridge.Dial(ctx, bridge.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	defer client.Close()

	s := &session{
		gw:      &echoGateway{Gateway: client, console: console},
		engine:  engine,
		console: console,
		in:      os.Stdin,
	}
	return s.run(ctx)
}

// echoGateway mirrors the agent's own chat into the transcript.
type echoGateway struct {
	world.Gateway
	console *Console
}

func (g *echoGateway) Chat(text string) {
	g.console.Bot("%s", text)
	g.Gateway.Chat(text)
}

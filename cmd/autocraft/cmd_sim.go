package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"autocraft/internal/agent"
	"autocraft/internal/decision"
	"autocraft/internal/world"
	"autocraft/internal/world/sim"
)

var (
	simSeed       uint64
	simRadius     int
	simTravelTime time.Duration
	simDigTime    time.Duration
)

// simCmd runs the agent against the in-memory world
var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Run the agent in a simulated world",
	Long: `Runs the full agent stack against a small generated world with one player,
Steve. Plain lines are terminal commands for the agent. Lines starting with
a slash script the world:

  /say <player> <text>   chat as a player
  /hurt <amount>         take damage
  /zombie [distance]     spawn a zombie next to the agent
  /status                show health, position and the active task`,
	RunE: runSim,
}

func init() {
	simCmd.Flags().Uint64Var(&simSeed, "seed", 1, "Terrain seed")
	simCmd.Flags().IntVar(&simRadius, "radius", 24, "Terrain radius in blocks")
	simCmd.Flags().DurationVar(&simTravelTime, "travel-time", 300*time.Millisecond, "Simulated time per navigation")
	simCmd.Flags().DurationVar(&simDigTime, "dig-time", 400*time.Millisecond, "Simulated time per dug block")
}

func runSim(cmd *cobra.Command, args []string) error {
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

	w := sim.New(cfg.Server.Username,
		sim.WithTravelTime(simTravelTime),
		sim.WithDigTime(simDigTime),
		sim.WithChatHook(func(text string) { console.Bot("%s", text) }),
	)
	defer w.Close()
	generateTerrain(w, simSeed, simRadius)
	w.AddPlayer("Steve", world.Vec3{X: 4, Z: 4})

	console.System("Simulated world ready (seed %d). Type /status for a look around.", simSeed)
	w.Spawn(20)

	s := &session{
		gw:      w,
		engine:  engine,
		console: console,
		in:      os.Stdin,
		command: func(a *agent.Agent, line string) {
			if strings.HasPrefix(line, "/") {
				simCommand(console, w, a, line)
				return
			}
			submit(console, a, line)
		},
	}
	return s.run(ctx)
}

// generateTerrain lays a flat grass floor at y=-1 with stone and ore patches
// and single-log stumps, and registers the usual early-game recipes.
func generateTerrain(w *sim.World, seed uint64, radius int) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			floor := "grass_block"
			switch r := rng.IntN(100); {
			case r < 8:
				floor = "stone"
			case r < 10:
				floor = "cobblestone"
			case r < 11:
				floor = "coal_ore"
			case r < 14:
				floor = "dirt"
			}
			w.SetBlock(world.Vec3{X: float64(x), Y: -1, Z: float64(z)}, floor)

			// Keep the spawn point clear.
			if abs(x) > 2 && abs(z) > 2 && rng.IntN(100) < 2 {
				w.SetBlock(world.Vec3{X: float64(x), Y: 0, Z: float64(z)}, "oak_log")
			}
		}
	}
	w.RegisterBlocks("sand", "gravel", "iron_ore")
	w.RegisterItems("stick", "oak_planks", "torch")
	for _, item := range []string{"oak_planks", "stick", "crafting_table", "wooden_pickaxe", "stone_pickaxe", "torch"} {
		w.AddRecipe(item)
	}
	w.Give("bread", 3)
}

func simCommand(console *Console, w *sim.World, a *agent.Agent, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/say":
		if len(fields) < 3 {
			console.Error("usage: /say <player> <text>")
			return
		}
		text := strings.Join(fields[2:], " ")
		console.User("<%s> %s", fields[1], text)
		w.Say(fields[1], text)

	case "/hurt":
		amount := 2.0
		if len(fields) > 1 {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil || v <= 0 {
				console.Error("usage: /hurt <amount>")
				return
			}
			amount = v
		}
		h := w.Health() - amount
		if h < 0 {
			h = 0
		}
		w.SetHealth(h)

	case "/zombie":
		dist := 2.0
		if len(fields) > 1 {
			if v, err := strconv.ParseFloat(fields[1], 64); err == nil && v > 0 {
				dist = v
			}
		}
		pos := w.SelfPosition().Offset(dist, 0, 0)
		id := w.AddEntity(world.Entity{Name: "zombie", DisplayName: "Zombie", Kind: world.KindHostile, Position: pos, Height: 1.95})
		console.System("Zombie #%d appears at %s.", id, pos)

	case "/status":
		console.System("Health %.1f/20 at %s", w.Health(), w.SelfPosition())
		if st, ok := a.Supervisor().Status(); ok {
			console.System("Active task: %s %s (%d/%d collected, %d failures)", st.Kind, st.Target, st.Collected, st.Amount, st.Failures)
		} else {
			console.System("No active task.")
		}
		var inv []string
		for _, it := range w.Inventory() {
			inv = append(inv, it.String())
		}
		if len(inv) == 0 {
			inv = []string{"empty"}
		}
		console.System("Inventory: %s", strings.Join(inv, ", "))

	default:
		console.Error("unknown world command %s", fields[0])
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

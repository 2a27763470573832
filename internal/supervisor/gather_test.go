package supervisor

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocraft/internal/config"
	"autocraft/internal/world"
	"autocraft/internal/world/sim"
)

func placeRow(w *sim.World, name string, n int) {
	for i := 1; i <= n; i++ {
		w.SetBlock(world.Vec3{X: float64(i), Y: -1}, name)
	}
}

func TestGatherCollectsExactAmount(t *testing.T) {
	w := newWorld(t)
	placeRow(w, "cobblestone", 10)
	s, rec := newSupervisor(t, w)

	s.Gather("cobblestone", 5)
	require.Eventually(t, func() bool {
		return w.SaidContaining("I've finished gathering 5 cobblestone.")
	}, waitFor, time.Millisecond)

	assert.Len(t, w.Digs(), 5)
	assert.Equal(t, 5, w.Count("cobblestone"))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, w.Digs(), 5, "no dig after completion")

	steps := rec.ofType(EventStep)
	require.Len(t, steps, 5)
	for i, ev := range steps {
		assert.Equal(t, OutcomeCollected, ev.Outcome)
		assert.Equal(t, i+1, ev.Collected)
	}
	_, ok := s.Active()
	assert.False(t, ok)
}

func TestGatherSkipsBuriedBlocks(t *testing.T) {
	w := newWorld(t)
	buried := world.Vec3{X: 1, Y: -1}
	w.SetBlock(buried, "iron_ore")
	w.SetBlock(buried.Offset(0, 1, 0), "stone")
	w.SetBlock(world.Vec3{X: 5, Y: -1}, "iron_ore")
	s, _ := newSupervisor(t, w)

	s.Gather("iron_ore", 1)
	require.Eventually(t, func() bool {
		return w.SaidContaining("I've finished gathering 1 iron_ore.")
	}, waitFor, time.Millisecond)
	require.Len(t, w.Digs(), 1)
	assert.Equal(t, world.Vec3{X: 5, Y: -1}, w.Digs()[0].Position)
}

func TestGatherRelocatesAfterRepeatedNavFailures(t *testing.T) {
	w := newWorld(t)
	placeRow(w, "stone", 3)
	w.SetNavigator(func(g world.Goal) error {
		if g.Kind == world.GoalGetToBlock {
			return world.ErrNoPath
		}
		return nil
	})
	s, rec := newSupervisor(t, w)

	relocation := world.At(world.Vec3{X: 32})
	s.Gather("stone", 2)
	require.Eventually(t, func() bool {
		for _, g := range w.Gotos() {
			if g == relocation {
				return true
			}
		}
		return false
	}, waitFor, time.Millisecond, "relocation goal is 32 blocks along the bearing")
	s.StopAll()

	var seq []Event
	for _, ev := range rec.all() {
		if ev.Type == EventStep || ev.Type == EventRelocate {
			seq = append(seq, ev)
		}
	}
	require.GreaterOrEqual(t, len(seq), 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, EventStep, seq[i].Type)
		assert.Equal(t, OutcomeNavFailed, seq[i].Outcome)
		assert.Equal(t, i+1, seq[i].Failures)
	}
	assert.Equal(t, EventRelocate, seq[3].Type)
	assert.Zero(t, seq[3].Failures, "counter resets when relocating")
	assert.True(t, w.SaidContaining("I'm having trouble reaching blocks here. I'll try a different spot."))
}

func TestGatherAbandonsWhenRelocationFails(t *testing.T) {
	w := newWorld(t)
	placeRow(w, "stone", 3)
	w.SetNavigator(func(world.Goal) error { return world.ErrNoPath })
	s, _ := newSupervisor(t, w)

	s.Gather("stone", 1)
	require.Eventually(t, func() bool {
		return w.SaidContaining("I got stuck trying to find a new spot. I'll stop this task for now.")
	}, waitFor, time.Millisecond)
	_, ok := s.Active()
	assert.False(t, ok)
	assert.Len(t, w.Gotos(), 4)
}

func TestGatherSearchesNewAreaWhenNothingFound(t *testing.T) {
	w := newWorld(t)
	var relocations atomic.Int32
	w.SetNavigator(func(g world.Goal) error {
		if g.Kind == world.GoalBlock && relocations.Add(1) == 1 {
			// the new area has what we are looking for
			w.SetBlock(world.Vec3{X: 33, Y: -1}, "sand")
		}
		return nil
	})
	s, rec := newSupervisor(t, w)

	s.Gather("sand", 1)
	require.Eventually(t, func() bool {
		return w.SaidContaining("I've finished gathering 1 sand.")
	}, waitFor, time.Millisecond)
	assert.True(t, w.SaidContaining("I can't find any reachable sand nearby. I'm going to search a new area."))
	assert.Len(t, rec.ofType(EventRelocate), 1)
}

func TestGatherSearchingNewAreaResetsFailures(t *testing.T) {
	w := newWorld(t)
	w.SetBlock(world.Vec3{X: 2, Y: -1}, "clay")
	var relocations atomic.Int32
	w.SetNavigator(func(g world.Goal) error {
		switch g.Kind {
		case world.GoalGetToBlock:
			if relocations.Load() == 0 {
				w.SetBlock(world.Vec3{X: 2, Y: -1}, world.AirBlock)
				return world.ErrNoPath
			}
		case world.GoalBlock:
			if relocations.Add(1) == 1 {
				w.SetBlock(world.Vec3{X: 33, Y: -1}, "clay")
			}
		}
		return nil
	})
	s, rec := newSupervisor(t, w)

	s.Gather("clay", 1)
	require.Eventually(t, func() bool {
		return w.SaidContaining("I've finished gathering 1 clay.")
	}, waitFor, time.Millisecond)

	steps := rec.ofType(EventStep)
	require.NotEmpty(t, steps)
	assert.Equal(t, OutcomeNavFailed, steps[0].Outcome)
	assert.Equal(t, 1, steps[0].Failures)
	moves := rec.ofType(EventRelocate)
	require.Len(t, moves, 1)
	assert.Zero(t, moves[0].Failures)
}

func TestGatherVanishedBlockRetriesWithoutPenalty(t *testing.T) {
	w := newWorld(t)
	placeRow(w, "oak_log", 2)
	var first atomic.Bool
	w.SetNavigator(func(g world.Goal) error {
		if first.CompareAndSwap(false, true) {
			w.SetBlock(g.Pos, world.AirBlock)
		}
		return nil
	})
	s, rec := newSupervisor(t, w)

	s.Gather("oak_log", 1)
	require.Eventually(t, func() bool {
		return w.SaidContaining("I've finished gathering 1 oak_log.")
	}, waitFor, time.Millisecond)

	steps := rec.ofType(EventStep)
	require.Len(t, steps, 2)
	assert.Equal(t, OutcomeVanished, steps[0].Outcome)
	assert.Zero(t, steps[0].Failures)
	assert.Equal(t, OutcomeCollected, steps[1].Outcome)
}

func TestGatherDigFailureCountsAsFailure(t *testing.T) {
	w := newWorld(t)
	placeRow(w, "stone", 2)
	var digs atomic.Int32
	w.SetDigHook(func(world.Block) error {
		if digs.Add(1) <= 2 {
			return fmt.Errorf("tool broke: %w", world.ErrDigFailed)
		}
		return nil
	})
	s, rec := newSupervisor(t, w)

	s.Gather("stone", 1)
	require.Eventually(t, func() bool {
		return w.SaidContaining("I've finished gathering 1 stone.")
	}, waitFor, time.Millisecond)

	steps := rec.ofType(EventStep)
	require.Len(t, steps, 3)
	assert.Equal(t, OutcomeDigFailed, steps[0].Outcome)
	assert.Equal(t, 1, steps[0].Failures)
	assert.Equal(t, 2, steps[1].Failures)
	assert.Equal(t, OutcomeCollected, steps[2].Outcome)
	assert.Zero(t, steps[2].Failures)
}

func TestGatherCancelledDuringTravel(t *testing.T) {
	w := newWorld(t, sim.WithTravelTime(time.Hour))
	placeRow(w, "stone", 3)
	w.AddPlayer("Steve", world.Vec3{X: 3})
	s, rec := newSupervisor(t, w)

	s.Gather("stone", 3)
	require.Eventually(t, func() bool { return len(w.Gotos()) == 1 }, waitFor, time.Millisecond)

	s.Follow("Steve")
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, w.Digs())
	assert.Empty(t, rec.ofType(EventStep), "cancelled step must not report")
	assert.Len(t, w.Gotos(), 1, "cancelled step must not retry")
	for _, c := range w.Chats() {
		assert.NotContains(t, c, "stone")
	}
	kind, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, KindFollow, kind)
}

func TestGatherStatus(t *testing.T) {
	w := newWorld(t, sim.WithTravelTime(time.Hour))
	placeRow(w, "dirt", 1)
	s, _ := newSupervisor(t, w)

	id := s.Gather("dirt", 0)
	st, ok := s.Status()
	require.True(t, ok)
	assert.Equal(t, Status{ID: id, Kind: KindGather, Target: "dirt", Amount: 1}, st)
}

func TestSettingsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultSettings(), SettingsFromConfig(nil))
	assert.Equal(t, DefaultSettings(), SettingsFromConfig(config.DefaultConfig()))

	cfg := config.DefaultConfig()
	cfg.Supervisor.AttackInterval = "50ms"
	cfg.Supervisor.GatherMaxFailures = 5
	got := SettingsFromConfig(cfg)
	assert.Equal(t, 50*time.Millisecond, got.AttackInterval)
	assert.Equal(t, 5, got.GatherMaxFailures)
}

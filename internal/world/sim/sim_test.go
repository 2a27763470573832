package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocraft/internal/world"
)

func spawned(t *testing.T, opts ...Option) *World {
	t.Helper()
	w := New("Bot", opts...)
	w.Spawn(20)
	ev := <-w.Events()
	require.Equal(t, world.EventSpawn, ev.Type)
	return w
}

func TestSnapshotRequiresSpawn(t *testing.T) {
	w := New("Bot")
	_, ok := w.Snapshot()
	assert.False(t, ok)
	_, ok = w.Self()
	assert.False(t, ok)

	w.Spawn(20)
	snap, ok := w.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "Bot", snap.Username)
	assert.Equal(t, "empty hand", snap.HeldItem)
}

func TestSnapshotListsPlayersAndInventory(t *testing.T) {
	w := spawned(t)
	w.AddPlayer("Steve", world.Vec3{X: 4, Y: 64})
	w.Give("oak_log", 3)
	require.NoError(t, w.Equip(context.Background(), "oak_log", "hand"))

	snap, ok := w.Snapshot()
	require.True(t, ok)
	require.Len(t, snap.NearbyPlayers, 1)
	assert.Equal(t, "Steve", snap.NearbyPlayers[0].Username)
	assert.Equal(t, []string{"3x oak_log"}, snap.Inventory)
	assert.Equal(t, "3x oak_log", snap.HeldItem)
	require.Len(t, snap.NearbyEntities, 1)
}

func TestPlayerLookupIsCaseInsensitive(t *testing.T) {
	w := spawned(t)
	id := w.AddPlayer("Steve", world.Vec3{X: 1})
	e, ok := w.Player("steve")
	require.True(t, ok)
	assert.Equal(t, id, e.ID)

	w.RemoveEntity(id)
	_, ok = w.Player("Steve")
	assert.False(t, ok)
}

func TestFindBlockNearestWithMatch(t *testing.T) {
	w := spawned(t)
	w.SetBlock(world.Vec3{X: 2}, "stone")
	w.SetBlock(world.Vec3{X: 5}, "stone")
	w.SetBlock(world.Vec3{X: 60}, "stone")

	b, ok := w.FindBlock(world.BlockQuery{Name: "stone", MaxDistance: 48})
	require.True(t, ok)
	assert.Equal(t, world.Vec3{X: 2}, b.Position)

	b, ok = w.FindBlock(world.BlockQuery{Name: "stone", MaxDistance: 48, Match: func(b world.Block) bool {
		return b.Position.X > 3
	}})
	require.True(t, ok)
	assert.Equal(t, world.Vec3{X: 5}, b.Position)

	_, ok = w.FindBlock(world.BlockQuery{Name: "stone", MaxDistance: 48, Match: func(b world.Block) bool {
		above, _ := w.BlockAt(b.Position.Offset(0, 1, 0))
		return !above.IsAir()
	}})
	assert.False(t, ok)
}

func TestGotoMovesAndHonorsNavigator(t *testing.T) {
	w := spawned(t)
	ctx := context.Background()
	require.NoError(t, w.Goto(ctx, world.Adjacent(world.Vec3{X: 3, Y: 63})))
	assert.Equal(t, world.Vec3{X: 3, Y: 64}, w.SelfPosition())

	w.SetNavigator(func(world.Goal) error { return world.ErrNoPath })
	err := w.Goto(ctx, world.At(world.Vec3{X: 10}))
	assert.True(t, errors.Is(err, world.ErrNoPath))
	assert.Len(t, w.Gotos(), 2)
}

func TestGotoCancelled(t *testing.T) {
	w := spawned(t, WithTravelTime(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Goto(ctx, world.At(world.Vec3{X: 10})) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("goto did not return after cancel")
	}
	assert.Equal(t, world.Vec3{}, w.SelfPosition())
}

func TestDigCollects(t *testing.T) {
	w := spawned(t)
	pos := world.Vec3{X: 1, Y: 63}
	w.SetBlock(pos, "cobblestone")

	require.NoError(t, w.Dig(context.Background(), world.Block{Name: "cobblestone", Position: pos}))
	assert.Equal(t, 1, w.Count("cobblestone"))
	b, _ := w.BlockAt(pos)
	assert.True(t, b.IsAir())

	err := w.Dig(context.Background(), world.Block{Name: "cobblestone", Position: pos})
	assert.ErrorIs(t, err, world.ErrDigFailed)
}

func TestCraftEquipToss(t *testing.T) {
	w := spawned(t)
	ctx := context.Background()

	assert.ErrorIs(t, w.Craft(ctx, "unobtainium", 1), world.ErrUnknownItem)
	w.RegisterItems("diamond_sword")
	assert.ErrorIs(t, w.Craft(ctx, "diamond_sword", 1), world.ErrNoRecipe)
	w.AddRecipe("crafting_table")
	require.NoError(t, w.Craft(ctx, "crafting_table", 2))
	assert.Equal(t, 2, w.Count("crafting_table"))

	assert.ErrorIs(t, w.Equip(ctx, "torch", "hand"), world.ErrNotInInventory)
	require.NoError(t, w.Equip(ctx, "crafting_table", "hand"))
	require.NoError(t, w.ActivateItem())
	assert.Equal(t, 1, w.Activations())

	require.NoError(t, w.Toss(ctx, "crafting_table", 99))
	assert.Zero(t, w.Count("crafting_table"))
	assert.Empty(t, w.Held())
	assert.Error(t, w.ActivateItem())
}

func TestEventsAndRecorders(t *testing.T) {
	var heard []string
	w := spawned(t, WithChatHook(func(s string) { heard = append(heard, s) }))

	w.SetHealth(15)
	w.Say("Steve", "hi")
	w.Disconnect("kicked")
	assert.Equal(t, world.EventHealth, (<-w.Events()).Type)
	chat := <-w.Events()
	assert.Equal(t, "Steve", chat.Username)
	assert.Equal(t, "kicked", (<-w.Events()).Reason)

	w.Chat("hello there")
	assert.True(t, w.SaidContaining("hello"))
	assert.Equal(t, []string{"hello there"}, heard)

	w.SetGoal(world.Near(world.Vec3{X: 1}, 2), true)
	g, dynamic, ok := w.CurrentGoal()
	require.True(t, ok)
	assert.True(t, dynamic)
	assert.Equal(t, world.GoalNear, g.Kind)
	w.StopMovement()
	_, _, ok = w.CurrentGoal()
	assert.False(t, ok)

	w.Close()
	w.Close()
	_, open := <-w.Events()
	assert.False(t, open)
}

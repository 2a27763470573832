package bridge

import (
	"context"
	"strings"

	"autocraft/internal/logging"
	"autocraft/internal/world"
)

// =============================================================================
// PERCEPTION
// =============================================================================

func (c *Client) Username() string { return c.opts.Server.Username }

func (c *Client) Events() <-chan world.Event { return c.events }

func (c *Client) Snapshot() (*world.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.state.Spawned {
		return nil, false
	}
	st := c.state
	return world.NewSnapshot(world.State{
		Username:  c.opts.Server.Username,
		Self:      st.Self,
		Health:    st.Health,
		Food:      st.Food,
		HeldItem:  st.HeldItem,
		Biome:     st.Biome,
		Inventory: st.Inventory,
		Players:   st.Players,
		Entities:  st.Entities,
		TimeOfDay: st.TimeOfDay,
	}), true
}

func (c *Client) Self() (world.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.state.Spawned {
		return world.Entity{}, false
	}
	return c.state.Self, true
}

func (c *Client) Entity(id int) (world.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.state.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return world.Entity{}, false
}

func (c *Client) Entities() []world.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]world.Entity(nil), c.state.Entities...)
}

func (c *Client) Player(name string) (world.Entity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for pname, e := range c.state.Players {
		if e != nil && strings.EqualFold(pname, name) {
			return *e, true
		}
	}
	return world.Entity{}, false
}

func (c *Client) BlockAt(pos world.Vec3) (world.Block, bool) {
	var b world.Block
	if err := c.call(c.ctx, opBlockAt, positionArgs{Position: pos.Floored()}, &b, true); err != nil {
		logging.BridgeDebug("block_at %s: %v", pos, err)
		return world.Block{}, false
	}
	return b, true
}

// FindBlock asks the sidecar for the nearest candidates, closest first, and
// applies Match locally.
func (c *Client) FindBlock(q world.BlockQuery) (world.Block, bool) {
	var found []world.Block
	args := findArgs{Name: q.Name, MaxDistance: q.MaxDistance, Count: findLimit}
	if err := c.call(c.ctx, opFindBlocks, args, &found, true); err != nil {
		logging.BridgeDebug("find_blocks %s: %v", q.Name, err)
		return world.Block{}, false
	}
	for _, b := range found {
		if q.Match == nil || q.Match(b) {
			return b, true
		}
	}
	return world.Block{}, false
}

func (c *Client) KnownBlock(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[name]
}

func (c *Client) KnownItem(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[name]
}

func (c *Client) Inventory() []world.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]world.Item(nil), c.state.Inventory...)
}

func (c *Client) IsUsingHeldItem() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.UsingHeldItem
}

// =============================================================================
// ACTIONS
// =============================================================================

func (c *Client) Goto(ctx context.Context, goal world.Goal) error {
	return c.call(ctx, opGoto, goalArgs{Goal: goal}, nil, false)
}

func (c *Client) SetGoal(goal world.Goal, dynamic bool) {
	c.fire(opSetGoal, goalArgs{Goal: goal, Dynamic: dynamic})
}

func (c *Client) StopMovement() { c.fire(opStopMovement, nil) }

func (c *Client) LookAt(ctx context.Context, point world.Vec3) error {
	return c.call(ctx, opLookAt, pointArgs{Point: point}, nil, true)
}

func (c *Client) Attack(entityID int) { c.fire(opAttack, entityArgs{EntityID: entityID}) }

func (c *Client) Dig(ctx context.Context, b world.Block) error {
	return c.call(ctx, opDig, blockArgs{Block: b}, nil, false)
}

func (c *Client) StopDigging() { c.fire(opStopDigging, nil) }

func (c *Client) Craft(ctx context.Context, item string, count int) error {
	return c.call(ctx, opCraft, itemArgs{Item: item, Count: count}, nil, true)
}

func (c *Client) Equip(ctx context.Context, item, slot string) error {
	return c.call(ctx, opEquip, itemArgs{Item: item, Slot: slot}, nil, true)
}

func (c *Client) Toss(ctx context.Context, item string, count int) error {
	return c.call(ctx, opToss, itemArgs{Item: item, Count: count}, nil, true)
}

func (c *Client) ActivateItem() error {
	return c.call(c.ctx, opActivateItem, nil, nil, true)
}

// Chat queues text for the throttled sender. Messages are dropped when the
// queue is full or the connection is gone.
func (c *Client) Chat(text string) {
	if c.closing.Load() || c.ctx.Err() != nil {
		return
	}
	select {
	case c.chatQueue <- text:
	default:
		logging.Get(logging.CategoryBridge).Warn("chat queue full, dropping %q", text)
	}
}

// Package dispatch maps decided actions onto the world gateway and the task
// supervisor.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"autocraft/internal/action"
	"autocraft/internal/logging"
	"autocraft/internal/world"
)

// Tasks is the part of the supervisor the dispatcher drives.
type Tasks interface {
	StopAll()
	Follow(player string) string
	Attack(target world.Entity) string
	Gather(block string, amount int) string
}

// Options tunes dispatching.
type Options struct {
	// EngageRadius bounds the search for a named attack target.
	EngageRadius float64
	// ApproachRange is how close a move brings the agent to a player.
	ApproachRange float64
	// DropSpacing separates stacks when dropping the whole inventory.
	DropSpacing time.Duration
}

// DefaultOptions returns the stock dispatch tuning.
func DefaultOptions() Options {
	return Options{
		EngageRadius:  16,
		ApproachRange: 2,
		DropSpacing:   50 * time.Millisecond,
	}
}

// Dispatcher executes one action at a time on behalf of the decision gate.
type Dispatcher struct {
	gw    world.Gateway
	tasks Tasks
	opts  Options
	drops *rate.Limiter
}

// New creates a Dispatcher.
func New(gw world.Gateway, tasks Tasks, opts Options) *Dispatcher {
	if opts.EngageRadius <= 0 {
		opts.EngageRadius = DefaultOptions().EngageRadius
	}
	if opts.ApproachRange <= 0 {
		opts.ApproachRange = DefaultOptions().ApproachRange
	}
	limit := rate.Inf
	if opts.DropSpacing > 0 {
		limit = rate.Every(opts.DropSpacing)
	}
	return &Dispatcher{
		gw:    gw,
		tasks: tasks,
		opts:  opts,
		drops: rate.NewLimiter(limit, 1),
	}
}

// Dispatch executes a. Every kind except chat and none stops the active task
// first. Failures are reported in chat and never escape.
func (d *Dispatcher) Dispatch(ctx context.Context, a action.Action, requester string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryDispatch).Error("dispatch %s panicked: %v\n%s", a.Kind, r, debug.Stack())
		}
	}()

	if a.Kind.Supersedes() {
		d.tasks.StopAll()
	}
	logging.DispatchDebug("dispatching %s for %s", a, requester)

	switch a.Kind {
	case action.KindChat, action.KindNone:
		if a.Message != "" {
			d.gw.Chat(a.Message)
		}
	case action.KindError:
		d.gw.Chat(orDefault(a.Message, "I've encountered an error."))
	case action.KindMove:
		d.move(a, requester)
	case action.KindFollow:
		d.follow(a, requester)
	case action.KindGoto:
		d.gotoCoordinates(a)
	case action.KindGather:
		d.gather(a)
	case action.KindAttack:
		d.attack(a)
	case action.KindCraft:
		d.craft(ctx, a)
	case action.KindEquip:
		d.equip(ctx, a)
	case action.KindUseItem:
		if err := d.gw.ActivateItem(); err != nil {
			d.gw.Chat(fmt.Sprintf("Couldn't use the item. Maybe there's nothing to do with it. Error: %v", err))
		}
	case action.KindExecuteCommand:
		if a.Command == "" {
			d.gw.Chat("I received an execute_command action without a command.")
			return
		}
		d.gw.Chat(a.Command)
	case action.KindDrop:
		d.drop(ctx, a)
	case action.KindLookAt:
		d.lookAt(ctx, a)
	case action.KindStop:
		d.tasks.StopAll()
		d.gw.Chat(orDefault(a.Message, "Okay, I'm stopping my current action."))
	default:
		d.gw.Chat(fmt.Sprintf("I received an unhandled action '%s'. I'm not sure what to do.", a.Kind))
	}
}

// AttackEntity engages target directly. The self-defense reflex uses it to
// skip the decision cycle.
func (d *Dispatcher) AttackEntity(target world.Entity) {
	d.gw.Chat(fmt.Sprintf("Engaging %s!", target.Label()))
	d.tasks.Attack(target)
}

// playerTarget resolves the action's target, defaulting to the requester.
func (d *Dispatcher) playerTarget(a action.Action, requester string) (world.Entity, string, bool) {
	name := strings.ToLower(orDefault(a.Target, requester))
	e, ok := d.gw.Player(name)
	return e, orDefault(a.Target, name), ok
}

func (d *Dispatcher) move(a action.Action, requester string) {
	p, asked, ok := d.playerTarget(a, requester)
	if !ok {
		d.gw.Chat(fmt.Sprintf("I can't see a player named %q.", asked))
		return
	}
	d.gw.Chat(fmt.Sprintf("On my way to %s.", p.Name))
	d.gw.SetGoal(world.Near(p.Position, d.opts.ApproachRange), false)
}

func (d *Dispatcher) follow(a action.Action, requester string) {
	p, asked, ok := d.playerTarget(a, requester)
	if !ok {
		d.gw.Chat(fmt.Sprintf("I can't see a player named %q to follow.", asked))
		return
	}
	d.gw.Chat(fmt.Sprintf("Okay, I will follow %s.", p.Name))
	d.tasks.Follow(p.Name)
}

func (d *Dispatcher) gotoCoordinates(a action.Action) {
	if a.Coordinates == nil {
		d.gw.Chat("I received a goto command without coordinates.")
		return
	}
	d.gw.Chat(fmt.Sprintf("Moving to coordinates: %s.", a.Coordinates))
	d.gw.SetGoal(world.At(a.Coordinates.Vec()), false)
}

func (d *Dispatcher) gather(a action.Action) {
	block := action.NormalizeBlockName(a.Target)
	amount := a.Amount
	if amount <= 0 {
		amount = 1
	}
	if block == "" || !d.gw.KnownBlock(block) {
		d.gw.Chat(fmt.Sprintf("I don't know what a %q is.", block))
		return
	}
	d.gw.Chat(fmt.Sprintf("Okay, I'll start looking for %d %s. This might take a moment.", amount, block))
	d.tasks.Gather(block, amount)
}

func (d *Dispatcher) attack(a action.Action) {
	target, ok := d.findEntity(a.Target)
	if !ok {
		d.gw.Chat(fmt.Sprintf("I can't find %s nearby to attack.", a.Target))
		return
	}
	d.AttackEntity(target)
}

// findEntity returns the nearest valid entity called name within the
// engagement radius.
func (d *Dispatcher) findEntity(name string) (world.Entity, bool) {
	self, ok := d.gw.Self()
	if !ok || name == "" {
		return world.Entity{}, false
	}
	var best world.Entity
	bestDist := -1.0
	for _, e := range d.gw.Entities() {
		if e.ID == self.ID || !e.Valid || !e.Matches(name) {
			continue
		}
		dist := self.Position.DistanceTo(e.Position)
		if dist >= d.opts.EngageRadius {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = e, dist
		}
	}
	return best, bestDist >= 0
}

func (d *Dispatcher) craft(ctx context.Context, a action.Action) {
	item := action.NormalizeItemName(a.Item)
	if item == "" {
		d.gw.Chat("I received a craft command without an item name.")
		return
	}
	if !d.gw.KnownItem(item) {
		d.gw.Chat(fmt.Sprintf("I don't know how to craft a %q.", item))
		return
	}

	d.gw.Chat(fmt.Sprintf("Attempting to craft a %s...", item))
	err := d.gw.Craft(ctx, item, 1)
	switch {
	case errors.Is(err, world.ErrNoRecipe):
		d.gw.Chat(fmt.Sprintf("I don't have a recipe for %s.", item))
	case err != nil:
		d.gw.Chat(fmt.Sprintf("I failed to craft %s. Error: %v", item, err))
	default:
		d.gw.Chat(fmt.Sprintf("Successfully crafted a %s!", item))
	}
}

func (d *Dispatcher) equip(ctx context.Context, a action.Action) {
	item := action.NormalizeItemName(a.Item)
	if _, ok := d.stack(item); !ok {
		d.gw.Chat(fmt.Sprintf("I don't have a %s to equip.", item))
		return
	}
	if err := d.gw.Equip(ctx, item, "hand"); err != nil {
		d.gw.Chat(fmt.Sprintf("I couldn't equip the %s. Error: %v", item, err))
		return
	}
	d.gw.Chat(fmt.Sprintf("Equipped %s.", item))
}

func (d *Dispatcher) drop(ctx context.Context, a action.Action) {
	target := strings.ToLower(orDefault(a.Target, a.Item))
	if target == "" {
		d.gw.Chat("You need to tell me what to drop.")
		return
	}

	if target == "all" {
		d.gw.Chat("Okay, dropping my entire inventory.")
		for _, it := range d.gw.Inventory() {
			if err := d.drops.Wait(ctx); err != nil {
				return
			}
			if err := d.gw.Toss(ctx, it.Name, it.Count); err != nil {
				logging.Get(logging.CategoryDispatch).Error("could not drop %s: %v", it.Name, err)
				d.gw.Chat(fmt.Sprintf("I had some trouble dropping my %s.", it.Name))
				return
			}
		}
		return
	}

	item := action.NormalizeItemName(target)
	st, ok := d.stack(item)
	if !ok {
		d.gw.Chat(fmt.Sprintf("I don't have any %s to drop.", item))
		return
	}
	count := st.Count
	if a.Amount > 0 && a.Amount < count {
		count = a.Amount
	}
	d.gw.Chat(fmt.Sprintf("Dropping %d %s.", count, item))
	if err := d.gw.Toss(ctx, item, count); err != nil {
		logging.Get(logging.CategoryDispatch).Error("drop error: %v", err)
		d.gw.Chat(fmt.Sprintf("I had trouble dropping the %s.", item))
	}
}

func (d *Dispatcher) lookAt(ctx context.Context, a action.Action) {
	var point world.Vec3
	switch {
	case a.Coordinates != nil:
		point = a.Coordinates.Vec()
	case a.Target != "":
		p, ok := d.gw.Player(a.Target)
		if !ok {
			return
		}
		point = p.EyePosition()
	default:
		return
	}
	if err := d.gw.LookAt(ctx, point); err != nil {
		logging.Get(logging.CategoryDispatch).Warn("look at %s: %v", point, err)
	}
}

func (d *Dispatcher) stack(item string) (world.Item, bool) {
	if item == "" {
		return world.Item{}, false
	}
	for _, it := range d.gw.Inventory() {
		if it.Name == item {
			return it, true
		}
	}
	return world.Item{}, false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

package decision

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"autocraft/internal/action"
	"autocraft/internal/logging"
	"autocraft/internal/world"
)

// Source identifies who issued a command. User commands carry the username.
type Source string

const (
	SourceTerminal    Source = "Terminal"
	SourceIdle        Source = "BotIdleAction"
	SourceSelfDefense Source = "BotSelfDefense"
)

// Preempts reports whether commands from s stop the active task before the
// decision is made. Idle and self-defense prompts leave it running.
func (s Source) Preempts() bool {
	return s != SourceIdle && s != SourceSelfDefense
}

// Command is one decision request.
type Command struct {
	Text   string
	Source Source
}

// Dispatcher executes a decided action.
type Dispatcher interface {
	Dispatch(ctx context.Context, a action.Action, requester string)
}

// GateConfig wires a Gate to its collaborators.
type GateConfig struct {
	Engine     Engine
	Dispatcher Dispatcher
	// Snapshot captures the world; false means not spawned.
	Snapshot func() (*world.Snapshot, bool)
	// Preempt stops the active persistent task.
	Preempt func()
	// Rearm restarts the idle countdown.
	Rearm func()
	// Ready, if set, is checked once the engine answers; false drops the
	// decision instead of dispatching it.
	Ready func() bool
	// OnDecision, if set, observes every decided action before dispatch.
	OnDecision func(cmd Command, a action.Action)
	Timeout    time.Duration
}

// Gate allows at most one decision cycle in flight. Requests arriving while
// busy are dropped, not queued.
type Gate struct {
	cfg  GateConfig
	ctx  context.Context
	sem  *semaphore.Weighted
	busy atomic.Bool
	wg   sync.WaitGroup
}

// NewGate creates a gate. Decision cycles run under ctx.
func NewGate(ctx context.Context, cfg GateConfig) *Gate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Preempt == nil {
		cfg.Preempt = func() {}
	}
	if cfg.Rearm == nil {
		cfg.Rearm = func() {}
	}
	return &Gate{
		cfg: cfg,
		ctx: ctx,
		sem: semaphore.NewWeighted(1),
	}
}

// Busy reports whether a decision is in flight.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}

// Request starts a decision cycle for cmd. It returns false when a cycle is
// already in flight. Preempting sources stop the active task even then.
func (g *Gate) Request(cmd Command) bool {
	if cmd.Source.Preempts() {
		g.cfg.Preempt()
	}

	if !g.sem.TryAcquire(1) {
		logging.Decision("already thinking, ignoring %q from %s", cmd.Text, cmd.Source)
		return false
	}
	g.busy.Store(true)
	g.wg.Add(1)

	if cmd.Source.Preempts() {
		logging.Decision("thinking about %q from %s", cmd.Text, cmd.Source)
	}
	g.cfg.Rearm()

	snap, ok := g.cfg.Snapshot()
	go g.cycle(cmd, snap, ok)
	return true
}

func (g *Gate) cycle(cmd Command, snap *world.Snapshot, ok bool) {
	defer g.wg.Done()
	defer func() {
		g.busy.Store(false)
		g.sem.Release(1)
		g.cfg.Rearm()
	}()
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryDecision).Error("decision cycle panicked: %v\n%s", r, debug.Stack())
		}
	}()

	if !ok {
		logging.DecisionDebug("no world snapshot, dropping %q", cmd.Text)
		return
	}

	ctx, cancel := context.WithTimeout(g.ctx, g.cfg.Timeout)
	timer := logging.StartTimer(logging.CategoryDecision, "decide")
	a, err := g.cfg.Engine.Decide(ctx, cmd.Text, string(cmd.Source), snap)
	timer.Stop()
	cancel()
	if err != nil {
		logging.Get(logging.CategoryDecision).Error("Failed to get a decision: %v", err)
		return
	}

	thought := a.Thought
	if thought == "" {
		thought = "No thought provided by AI."
	}
	logging.Decision("thought: %s", thought)
	logging.Decision("action: %s", a)
	if g.cfg.OnDecision != nil {
		g.cfg.OnDecision(cmd, a)
	}

	if g.cfg.Ready != nil && !g.cfg.Ready() {
		logging.Decision("no longer connected, dropping %s for %q", a.Kind, cmd.Text)
		return
	}
	g.cfg.Dispatcher.Dispatch(g.ctx, a, string(cmd.Source))
}

// Wait blocks until the in-flight cycle, if any, has finished.
func (g *Gate) Wait() {
	g.wg.Wait()
}

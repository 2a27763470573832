// Package agent is the interrupt arbiter. It consumes gateway events on a
// single goroutine and routes user commands, idle self-prompts and damage
// reflexes into the decision gate, or straight into the supervisor when the
// gate is busy and there is no time to think.
package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"autocraft/internal/action"
	"autocraft/internal/config"
	"autocraft/internal/decision"
	"autocraft/internal/dispatch"
	"autocraft/internal/logging"
	"autocraft/internal/schedule"
	"autocraft/internal/supervisor"
	"autocraft/internal/world"
)

const (
	idleCommand = "What should I do now? I am idle."
	resetWait   = 10 * time.Second
)

// Options configures an Agent.
type Options struct {
	IdleDelay       time.Duration
	DetectionRadius float64
	DecisionTimeout time.Duration
	Supervisor      supervisor.Settings
	Dispatch        dispatch.Options
	// SupervisorOptions are passed through to supervisor.New.
	SupervisorOptions []supervisor.Option
	// OnDecision observes every decided action, for transcripts.
	OnDecision func(decision.Command, action.Action)
}

// DefaultOptions returns the stock agent tuning.
func DefaultOptions() Options {
	return Options{
		IdleDelay:       30 * time.Second,
		DetectionRadius: 16,
		DecisionTimeout: 60 * time.Second,
		Supervisor:      supervisor.DefaultSettings(),
		Dispatch:        dispatch.DefaultOptions(),
	}
}

// OptionsFromConfig builds Options from a loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.IdleDelay = cfg.GetIdleDelay()
	if cfg.Agent.DetectionRadius > 0 {
		opts.DetectionRadius = cfg.Agent.DetectionRadius
	}
	opts.DecisionTimeout = cfg.GetLLMTimeout()
	opts.Supervisor = supervisor.SettingsFromConfig(cfg)
	opts.Dispatch.EngageRadius = opts.Supervisor.EngagementRadius
	opts.Dispatch.ApproachRange = opts.Supervisor.FollowRange
	return opts
}

// Agent ties the gateway, decision gate, dispatcher and supervisor together.
type Agent struct {
	gw     world.Gateway
	engine decision.Engine
	opts   Options

	sup        *supervisor.Supervisor
	dispatcher *dispatch.Dispatcher
	gate       *decision.Gate
	idle       *schedule.Rearmable

	ctx    context.Context
	cancel context.CancelFunc

	idleCh   chan struct{}
	submitCh chan string

	ready atomic.Bool
	// health is only touched by the event loop goroutine.
	health HealthSample
}

// New wires an agent over gw and engine. Call Run to start it.
func New(gw world.Gateway, engine decision.Engine, opts Options) *Agent {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		gw:       gw,
		engine:   engine,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		idleCh:   make(chan struct{}, 1),
		submitCh: make(chan string, 16),
	}
	a.sup = supervisor.New(gw, opts.Supervisor, opts.SupervisorOptions...)
	a.dispatcher = dispatch.New(gw, a.sup, opts.Dispatch)
	a.idle = schedule.NewRearmable(opts.IdleDelay, a.postIdle)
	a.gate = decision.NewGate(ctx, decision.GateConfig{
		Engine:     engine,
		Dispatcher: a.dispatcher,
		Snapshot:   gw.Snapshot,
		Preempt:    a.sup.StopAll,
		Rearm:      a.idle.Arm,
		Ready:      a.ready.Load,
		OnDecision: opts.OnDecision,
		Timeout:    opts.DecisionTimeout,
	})
	return a
}

// Supervisor exposes the task supervisor.
func (a *Agent) Supervisor() *supervisor.Supervisor { return a.sup }

// Gate exposes the decision gate.
func (a *Agent) Gate() *decision.Gate { return a.gate }

// Ready reports whether the agent has spawned and accepts commands.
func (a *Agent) Ready() bool { return a.ready.Load() }

// SetIdleDelay changes the idle delay for subsequent countdowns.
func (a *Agent) SetIdleDelay(d time.Duration) { a.idle.SetDelay(d) }

// Submit queues a terminal command. It returns false if the queue is full.
func (a *Agent) Submit(text string) bool {
	select {
	case a.submitCh <- text:
		return true
	default:
		logging.Agent("command queue full, dropping %q", text)
		return false
	}
}

// Run consumes gateway events until ctx is cancelled or the event stream
// closes.
func (a *Agent) Run(ctx context.Context) error {
	logging.Agent("agent loop started for %s", a.gw.Username())
	defer logging.Agent("agent loop stopped")

	events := a.gw.Events()
	for {
		done, err := a.step(ctx, events)
		if done {
			return err
		}
	}
}

// step handles one input. Pending gateway events are drained before an
// idle firing is considered, so damage always outranks idleness.
func (a *Agent) step(ctx context.Context, events <-chan world.Event) (bool, error) {
	select {
	case <-ctx.Done():
		return true, nil
	case ev, ok := <-events:
		if !ok {
			return true, a.streamClosed()
		}
		a.handle(ev)
	case text := <-a.submitCh:
		a.onTerminal(text)
	case <-a.idleCh:
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return true, a.streamClosed()
				}
				a.handle(ev)
				continue
			default:
			}
			break
		}
		a.onIdle()
	}
	return false, nil
}

func (a *Agent) streamClosed() error {
	a.ready.Store(false)
	a.sup.StopAll()
	a.idle.Cancel()
	return fmt.Errorf("event stream closed: %w", world.ErrDisconnected)
}

func (a *Agent) handle(ev world.Event) {
	switch ev.Type {
	case world.EventSpawn:
		a.onSpawn(ev)
	case world.EventHealth:
		a.onHealth(ev)
	case world.EventChat:
		a.onChat(ev)
	case world.EventDisconnect:
		a.onDisconnect(ev)
	default:
		logging.AgentDebug("ignoring event %s", ev.Type)
	}
}

func (a *Agent) onSpawn(ev world.Event) {
	a.health.Reset(ev.Health)
	if r, ok := a.engine.(decision.Resetter); ok {
		ctx, cancel := context.WithTimeout(a.ctx, resetWait)
		if err := r.Reset(ctx); err != nil {
			logging.Get(logging.CategoryAgent).Error("failed to start a new decision session: %v", err)
		}
		cancel()
	}
	a.idle.Arm()
	a.ready.Store(true)
	logging.Agent("spawned successfully, ready for commands")
}

func (a *Agent) onChat(ev world.Event) {
	if ev.Username == a.gw.Username() || !a.ready.Load() {
		return
	}
	logging.Agent("<%s> %s", ev.Username, ev.Message)
	a.gate.Request(decision.Command{Text: ev.Message, Source: decision.Source(ev.Username)})
}

func (a *Agent) onTerminal(text string) {
	if !a.ready.Load() {
		logging.Agent("not connected yet, ignoring %q", text)
		return
	}
	a.gate.Request(decision.Command{Text: text, Source: decision.SourceTerminal})
}

func (a *Agent) onDisconnect(ev world.Event) {
	logging.Get(logging.CategoryAgent).Warn("disconnected: %s", ev.Reason)
	a.ready.Store(false)
	a.sup.StopAll()
	a.idle.Cancel()
}

// postIdle runs on the timer goroutine and hands the firing to the loop.
func (a *Agent) postIdle() {
	select {
	case a.idleCh <- struct{}{}:
	default:
	}
}

func (a *Agent) onIdle() {
	if _, spawned := a.gw.Self(); !spawned || a.gate.Busy() || !a.ready.Load() {
		logging.AgentDebug("idle timer fired but agent is busy or not ready")
		return
	}
	a.gate.Request(decision.Command{Text: idleCommand, Source: decision.SourceIdle})
}

// Close stops the idle timer and any task, then waits for an in-flight
// decision. Call it after Run has returned.
func (a *Agent) Close() {
	a.idle.Cancel()
	a.sup.StopAll()
	a.cancel()
	a.gate.Wait()
	a.idle.Cancel()
}

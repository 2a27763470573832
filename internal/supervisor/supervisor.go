// Package supervisor owns the agent's single persistent task slot.
//
// A persistent task (follow, attack, gather) runs as a cancellable schedule
// against the world gateway until it finishes, fails or is superseded.
// Starting a task always tears down the previous one first: its context is
// cancelled, its schedule stopped, and movement and digging halted. Step code
// checks ownership of the slot after every suspending call, so a superseded
// task never chats, reschedules, or touches shared state.
package supervisor

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"autocraft/internal/logging"
	"autocraft/internal/schedule"
	"autocraft/internal/world"
)

// Kind identifies a persistent task type.
type Kind string

const (
	KindNone   Kind = "none"
	KindFollow Kind = "follow"
	KindAttack Kind = "attack"
	KindGather Kind = "gather"
)

// Status is a point-in-time view of the active task.
type Status struct {
	ID        string
	Kind      Kind
	Target    string
	Collected int
	Amount    int
	Failures  int
}

// task is one persistent task record. Mutable fields are guarded by the
// owning Supervisor's mutex.
type task struct {
	id     string
	kind   Kind
	ctx    context.Context
	cancel context.CancelFunc
	sched  schedule.Cancellable
	log    *logging.Logger

	// follow
	player string

	// attack
	entityID int
	label    string
	lastPos  world.Vec3

	// gather
	block     string
	amount    int
	collected int
	failures  int
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(s *Supervisor) { s.observer = o }
}

// WithBearing overrides the random source for relocation bearings. fn
// returns a value in [0, 1).
func WithBearing(fn func() float64) Option {
	return func(s *Supervisor) { s.bearing = fn }
}

// Supervisor runs at most one persistent task at a time.
type Supervisor struct {
	gw       world.Gateway
	settings Settings
	observer Observer
	bearing  func() float64

	mu     sync.Mutex
	active *task

	// steerMu orders movement and combat commands against halt, so nothing a
	// superseded task sends lands after the slot was cleared.
	steerMu sync.Mutex
}

// New creates a Supervisor over gw.
func New(gw world.Gateway, settings Settings, opts ...Option) *Supervisor {
	s := &Supervisor{
		gw:       gw,
		settings: settings,
		bearing:  rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) newTask(kind Kind) *task {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &task{
		id:     id,
		kind:   kind,
		ctx:    ctx,
		cancel: cancel,
		log:    logging.Get(logging.CategorySupervisor).With("task", id, "kind", string(kind)),
	}
}

// start installs t as the active task, tearing down whatever held the slot.
// The previous task is fully stopped before start returns, so t's first step
// can only run after that.
func (s *Supervisor) start(t *task) {
	s.mu.Lock()
	prev := s.active
	s.active = t
	s.mu.Unlock()

	if prev != nil {
		s.teardown(prev)
		s.emit(Event{Type: EventStopped, TaskID: prev.id, Kind: prev.kind})
	}
	s.halt()
	t.log.Info("started %s", s.describe(t))
	s.emit(Event{Type: EventStarted, TaskID: t.id, Kind: t.kind})
}

// StopAll cancels the active task, if any, and halts movement and digging.
// It is idempotent.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	prev := s.active
	s.active = nil
	s.mu.Unlock()

	if prev != nil {
		s.teardown(prev)
		prev.log.Info("stopped")
		s.emit(Event{Type: EventStopped, TaskID: prev.id, Kind: prev.kind})
	}
	s.halt()
}

// finish ends t on its own terms. It does nothing if t no longer owns the
// slot; msg is chatted only when it does.
func (s *Supervisor) finish(t *task, msg string) {
	s.mu.Lock()
	if s.active != t {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.mu.Unlock()

	if msg != "" {
		s.gw.Chat(msg)
	}
	s.teardown(t)
	s.halt()
	t.log.Info("finished: %s", msg)
	s.emit(Event{Type: EventStopped, TaskID: t.id, Kind: t.kind})
}

func (s *Supervisor) teardown(t *task) {
	t.cancel()
	s.mu.Lock()
	sched := t.sched
	t.sched = nil
	s.mu.Unlock()
	if sched != nil {
		sched.Cancel()
	}
}

func (s *Supervisor) halt() {
	s.steerMu.Lock()
	defer s.steerMu.Unlock()
	s.gw.StopMovement()
	s.gw.StopDigging()
}

// arm starts t's next schedule and records it, unless t lost the slot
// meanwhile. The slot lock is held while the schedule starts, so a step
// cannot observe the task before its schedule is recorded.
func (s *Supervisor) arm(t *task, start func() schedule.Cancellable) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != t || t.ctx.Err() != nil {
		return false
	}
	t.sched = start()
	return true
}

// alive reports whether t still owns the slot.
func (s *Supervisor) alive(t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active == t && t.ctx.Err() == nil
}

// whileActive runs fn under the slot lock if t still owns it. fn must not
// suspend or call back into the Supervisor; gateway commands go through steer.
func (s *Supervisor) whileActive(t *task, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != t || t.ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

// steer runs fn if t owns the slot. The slot lock is not held, so fn may
// block on the gateway; halt waits for it.
func (s *Supervisor) steer(t *task, fn func()) bool {
	s.steerMu.Lock()
	defer s.steerMu.Unlock()
	if !s.alive(t) {
		return false
	}
	fn()
	return true
}

// say chats msg only while t owns the slot.
func (s *Supervisor) say(t *task, msg string) {
	s.whileActive(t, func() { s.gw.Chat(msg) })
}

// Active returns the kind of the active task.
func (s *Supervisor) Active() (Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return KindNone, false
	}
	return s.active.kind, true
}

// Status returns a snapshot of the active task.
func (s *Supervisor) Status() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.active
	if t == nil {
		return Status{Kind: KindNone}, false
	}
	st := Status{ID: t.id, Kind: t.kind}
	switch t.kind {
	case KindFollow:
		st.Target = t.player
	case KindAttack:
		st.Target = t.label
	case KindGather:
		st.Target = t.block
		st.Collected = t.collected
		st.Amount = t.amount
		st.Failures = t.failures
	}
	return st, true
}

func (s *Supervisor) describe(t *task) string {
	switch t.kind {
	case KindFollow:
		return "follow " + t.player
	case KindAttack:
		return "attack " + t.label
	case KindGather:
		return "gather " + t.block
	}
	return string(t.kind)
}

func (s *Supervisor) emit(ev Event) {
	if s.observer != nil {
		s.observer(ev)
	}
}

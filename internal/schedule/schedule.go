// Package schedule provides the cancellable timers every persistent task and
// the idle trigger run on. Cancel is idempotent everywhere and safe to call
// from inside the scheduled function.
package schedule

import (
	"runtime/debug"
	"sync"
	"time"

	"autocraft/internal/logging"
)

// Cancellable is anything that can be stopped.
type Cancellable interface {
	Cancel()
}

// Timer runs fn once after a delay.
type Timer struct {
	mu        sync.Mutex
	t         *time.Timer
	fn        func()
	cancelled bool
}

// After schedules fn to run once after d.
func After(d time.Duration, fn func()) *Timer {
	t := &Timer{fn: fn}
	t.t = time.AfterFunc(d, t.fire)
	return t
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	run("timer", t.fn)
}

// Reset re-arms the timer for d. It returns false once cancelled.
func (t *Timer) Reset(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return false
	}
	t.t.Stop()
	t.t.Reset(d)
	return true
}

// Cancel prevents any pending run.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	t.t.Stop()
}

// Ticker runs fn repeatedly on a single goroutine. A slow fn delays the
// next run rather than overlapping it.
type Ticker struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Every starts running fn every d, first after one interval.
func Every(d time.Duration, fn func()) *Ticker {
	tk := &Ticker{stop: make(chan struct{}), done: make(chan struct{})}
	go tk.loop(d, fn)
	return tk
}

func (tk *Ticker) loop(d time.Duration, fn func()) {
	defer close(tk.done)
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-tk.stop:
			return
		case <-ticker.C:
		}
		select {
		case <-tk.stop:
			return
		default:
		}
		run("ticker", fn)
	}
}

// Cancel stops future runs. It does not wait for a run in progress.
func (tk *Ticker) Cancel() {
	tk.once.Do(func() { close(tk.stop) })
}

// Done is closed once the ticker goroutine has exited.
func (tk *Ticker) Done() <-chan struct{} {
	return tk.done
}

// Rearmable holds at most one pending one-shot. Arm replaces whatever was
// pending.
type Rearmable struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *Timer
}

// NewRearmable creates an unarmed Rearmable.
func NewRearmable(delay time.Duration, fn func()) *Rearmable {
	return &Rearmable{delay: delay, fn: fn}
}

// Arm (re)starts the countdown.
func (r *Rearmable) Arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Cancel()
	}
	r.timer = After(r.delay, r.fn)
}

// Cancel drops any pending countdown.
func (r *Rearmable) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Cancel()
		r.timer = nil
	}
}

// Armed reports whether a countdown has been started and not cancelled.
func (r *Rearmable) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// SetDelay changes the delay used by subsequent Arm calls.
func (r *Rearmable) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

func run(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryAgent).Error("scheduled %s panicked: %v\n%s", kind, r, debug.Stack())
		}
	}()
	fn()
}

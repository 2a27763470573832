package supervisor

import (
	"fmt"
	"math"
	"time"

	"autocraft/internal/schedule"
	"autocraft/internal/world"
)

// Outcome is the result of one gather step.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCollected
	OutcomeVanished
	OutcomeNavFailed
	OutcomeDigFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCollected:
		return "collected"
	case OutcomeVanished:
		return "vanished"
	case OutcomeNavFailed:
		return "nav_failed"
	case OutcomeDigFailed:
		return "dig_failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// IsFailure reports whether the outcome counts toward relocation.
func (o Outcome) IsFailure() bool {
	return o == OutcomeNavFailed || o == OutcomeDigFailed
}

const relocateStuckMessage = "I got stuck trying to find a new spot. I'll stop this task for now."

// Gather collects amount blocks of the named kind, one block per step. The
// next step is scheduled only after the current one finishes.
func (s *Supervisor) Gather(block string, amount int) string {
	if amount < 1 {
		amount = 1
	}
	t := s.newTask(KindGather)
	t.block = block
	t.amount = amount
	s.start(t)
	s.scheduleGather(t, 0)
	return t.id
}

func (s *Supervisor) scheduleGather(t *task, d time.Duration) {
	s.arm(t, func() schedule.Cancellable {
		return schedule.After(d, func() { s.gatherStep(t) })
	})
}

func (s *Supervisor) gatherStep(t *task) {
	if !s.alive(t) {
		return
	}

	// 1. Done?
	var done bool
	s.whileActive(t, func() { done = t.collected >= t.amount })
	if done {
		s.finish(t, fmt.Sprintf("I've finished gathering %d %s.", t.amount, t.block))
		return
	}

	// 2. Find the nearest exposed block
	blk, found := s.gw.FindBlock(world.BlockQuery{
		Name:        t.block,
		MaxDistance: s.settings.GatherSearchRadius,
		Match:       s.exposed,
	})
	if !found {
		if !s.whileActive(t, func() { t.failures = 0 }) {
			return
		}
		s.say(t, fmt.Sprintf("I can't find any reachable %s nearby. I'm going to search a new area.", t.block))
		s.relocate(t)
		return
	}

	// 3. Travel and dig, then decide what comes next from the outcome
	outcome := s.collect(t, blk)
	s.afterStep(t, outcome)
}

// exposed accepts blocks with open space directly above, which filters out
// most candidates buried in walls or underground.
func (s *Supervisor) exposed(b world.Block) bool {
	above, ok := s.gw.BlockAt(b.Position.Offset(0, 1, 0))
	return ok && above.IsAir()
}

func (s *Supervisor) collect(t *task, blk world.Block) Outcome {
	if err := s.gw.Goto(t.ctx, world.Adjacent(blk.Position)); err != nil {
		if t.ctx.Err() != nil {
			return OutcomeCancelled
		}
		t.log.Warn("could not get to %s at %s: %v", t.block, blk.Position, err)
		return OutcomeNavFailed
	}
	if !s.alive(t) {
		return OutcomeCancelled
	}

	current, ok := s.gw.BlockAt(blk.Position)
	if !ok || current.Name != blk.Name {
		t.log.Debug("%s at %s disappeared before I could get it", t.block, blk.Position)
		return OutcomeVanished
	}

	if err := s.gw.Dig(t.ctx, current); err != nil {
		if t.ctx.Err() != nil {
			return OutcomeCancelled
		}
		t.log.Warn("dig %s at %s failed: %v", t.block, blk.Position, err)
		return OutcomeDigFailed
	}
	if !s.alive(t) {
		return OutcomeCancelled
	}
	return OutcomeCollected
}

func (s *Supervisor) afterStep(t *task, outcome Outcome) {
	if outcome == OutcomeCancelled {
		return
	}

	var failures, collected int
	escalate := false
	ok := s.whileActive(t, func() {
		switch {
		case outcome == OutcomeCollected:
			t.collected++
			t.failures = 0
		case outcome.IsFailure():
			t.failures++
		}
		failures, collected = t.failures, t.collected
		if t.failures >= s.settings.GatherMaxFailures {
			t.failures = 0
			escalate = true
		}
	})
	if !ok {
		return
	}
	s.emit(Event{Type: EventStep, TaskID: t.id, Kind: t.kind, Outcome: outcome, Failures: failures, Collected: collected})

	switch {
	case escalate:
		s.say(t, "I'm having trouble reaching blocks here. I'll try a different spot.")
		s.relocate(t)
	case outcome.IsFailure():
		t.log.Debug("having trouble reaching %s, retrying (%d/%d)", t.block, failures, s.settings.GatherMaxFailures)
		s.scheduleGather(t, s.settings.GatherRetryDelay)
	default:
		s.scheduleGather(t, s.settings.GatherStepDelay)
	}
}

// relocate moves a fixed distance at a random bearing, keeping height, and
// resumes searching. A failed relocation abandons the task.
func (s *Supervisor) relocate(t *task) {
	self, ok := s.gw.Self()
	if !ok {
		s.finish(t, relocateStuckMessage)
		return
	}
	angle := s.bearing() * 2 * math.Pi
	dest := world.Vec3{
		X: math.Floor(self.Position.X + s.settings.RelocateDistance*math.Cos(angle)),
		Y: self.Position.Y,
		Z: math.Floor(self.Position.Z + s.settings.RelocateDistance*math.Sin(angle)),
	}

	var failures int
	if !s.whileActive(t, func() { failures = t.failures }) {
		return
	}
	t.log.Info("relocating to %s", dest)
	s.emit(Event{Type: EventRelocate, TaskID: t.id, Kind: t.kind, Failures: failures})

	err := s.gw.Goto(t.ctx, world.At(dest))
	switch {
	case t.ctx.Err() != nil || !s.alive(t):
		return
	case err != nil:
		t.log.Warn("relocation to %s failed: %v", dest, err)
		s.finish(t, relocateStuckMessage)
	default:
		s.scheduleGather(t, s.settings.GatherStepDelay)
	}
}

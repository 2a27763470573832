package supervisor

import (
	"fmt"

	"autocraft/internal/schedule"
	"autocraft/internal/world"
)

// Attack pursues and strikes target until it is gone or out of range.
func (s *Supervisor) Attack(target world.Entity) string {
	t := s.newTask(KindAttack)
	t.entityID = target.ID
	t.label = target.Label()
	t.lastPos = target.Position
	s.start(t)
	s.arm(t, func() schedule.Cancellable {
		return schedule.Every(s.settings.AttackInterval, func() { s.attackStep(t) })
	})
	return t.id
}

func (s *Supervisor) attackStep(t *task) {
	if !s.alive(t) {
		return
	}
	target, ok := s.gw.Entity(t.entityID)
	if !ok || !target.Valid {
		s.finish(t, fmt.Sprintf("%s is defeated or has disappeared.", t.label))
		return
	}
	self, ok := s.gw.Self()
	if !ok {
		return
	}

	dist := self.Position.DistanceTo(target.Position)
	if dist > s.settings.EngagementRadius {
		s.finish(t, fmt.Sprintf("%s is too far away. Disengaging.", t.label))
		return
	}

	if !s.whileActive(t, func() { t.lastPos = target.Position }) {
		return
	}
	struck := false
	s.steer(t, func() {
		s.gw.SetGoal(world.Near(target.Position, s.settings.ChaseRange), false)
		if dist < s.settings.StrikeRange && !s.gw.IsUsingHeldItem() {
			s.gw.Attack(target.ID)
			struck = true
		}
	})
	if struck {
		s.emit(Event{Type: EventStrike, TaskID: t.id, Kind: t.kind, EntityID: target.ID})
	}
}

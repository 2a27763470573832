package supervisor

import (
	"fmt"

	"autocraft/internal/schedule"
	"autocraft/internal/world"
)

// Follow keeps moving near player until stopped or the player is lost.
func (s *Supervisor) Follow(player string) string {
	t := s.newTask(KindFollow)
	t.player = player
	s.start(t)
	s.arm(t, func() schedule.Cancellable {
		return schedule.Every(s.settings.FollowInterval, func() { s.followStep(t) })
	})
	return t.id
}

func (s *Supervisor) followStep(t *task) {
	if !s.alive(t) {
		return
	}
	e, ok := s.gw.Player(t.player)
	if !ok {
		s.finish(t, fmt.Sprintf("I lost sight of %s.", t.player))
		return
	}
	s.steer(t, func() {
		s.gw.SetGoal(world.Near(e.Position, s.settings.FollowRange), true)
	})
}

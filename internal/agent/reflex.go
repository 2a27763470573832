package agent

import (
	"fmt"

	"autocraft/internal/decision"
	"autocraft/internal/logging"
	"autocraft/internal/world"
)

func (a *Agent) onHealth(ev world.Event) {
	if !a.ready.Load() {
		return
	}
	if _, spawned := a.gw.Self(); !spawned {
		return
	}
	if !a.health.Observe(ev.Health) {
		return
	}

	logging.Get(logging.CategoryAgent).Warn("health dropped to %.1f", ev.Health)
	attacker, found := a.findAttacker()

	if a.gate.Busy() {
		// No time to think: fight back with what we know.
		logging.Agent("reacting instinctively to attack while thinking")
		a.sup.StopAll()
		if found {
			a.dispatcher.AttackEntity(attacker)
		} else {
			logging.Agent("no attacker in sight")
		}
		return
	}

	text := "I've taken damage from an unknown source!"
	if found {
		text = fmt.Sprintf("I am being attacked by a %s! I must defend myself.", attacker.Label())
	}
	a.gate.Request(decision.Command{Text: text, Source: decision.SourceSelfDefense})
}

// findAttacker returns the nearest valid hostile or player within the
// detection radius, excluding the agent itself.
func (a *Agent) findAttacker() (world.Entity, bool) {
	self, ok := a.gw.Self()
	if !ok {
		return world.Entity{}, false
	}
	var best world.Entity
	bestDist := -1.0
	for _, e := range a.gw.Entities() {
		if !e.Valid || e.ID == self.ID {
			continue
		}
		if e.Kind != world.KindHostile && e.Kind != world.KindPlayer {
			continue
		}
		d := self.Position.DistanceTo(e.Position)
		if d >= a.opts.DetectionRadius {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist >= 0
}

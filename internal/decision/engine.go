// Package decision turns a command plus a world snapshot into one structured
// action, and gates those decisions so at most one is in flight.
package decision

import (
	"context"
	"errors"

	"autocraft/internal/action"
	"autocraft/internal/world"
)

// ErrDecision wraps transport failures from an engine.
var ErrDecision = errors.New("decision engine failed")

// Engine maps (command, requester, snapshot) to a single action. Malformed
// model output is not an error: it comes back as an Error action.
type Engine interface {
	Decide(ctx context.Context, command, requester string, snap *world.Snapshot) (action.Action, error)
}

// Resetter is implemented by engines holding conversational state. The agent
// resets it on every spawn.
type Resetter interface {
	Reset(ctx context.Context) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, command, requester string, snap *world.Snapshot) (action.Action, error)

// Decide calls f.
func (f EngineFunc) Decide(ctx context.Context, command, requester string, snap *world.Snapshot) (action.Action, error) {
	return f(ctx, command, requester, snap)
}

// Package action defines the structured action a decision cycle produces and
// the dispatcher consumes.
package action

import (
	"fmt"

	"autocraft/internal/world"
)

// Kind tags an Action. Unknown kinds decoded from the engine are kept as-is
// so the dispatcher can report them.
type Kind string

const (
	KindChat           Kind = "chat"
	KindMove           Kind = "move"
	KindFollow         Kind = "follow"
	KindGoto           Kind = "goto"
	KindGather         Kind = "gather"
	KindAttack         Kind = "attack"
	KindCraft          Kind = "craft"
	KindEquip          Kind = "equip"
	KindUseItem        Kind = "use_item"
	KindExecuteCommand Kind = "execute_command"
	KindDrop           Kind = "drop"
	KindLookAt         Kind = "look_at"
	KindStop           Kind = "stop_action"
	KindNone           Kind = "none"
	KindError          Kind = "error"
)

var knownKinds = map[Kind]bool{
	KindChat: true, KindMove: true, KindFollow: true, KindGoto: true,
	KindGather: true, KindAttack: true, KindCraft: true, KindEquip: true,
	KindUseItem: true, KindExecuteCommand: true, KindDrop: true,
	KindLookAt: true, KindStop: true, KindNone: true, KindError: true,
}

// Known reports whether k is one of the kinds the dispatcher handles.
func (k Kind) Known() bool {
	return knownKinds[k]
}

// Supersedes reports whether dispatching k tears down the active task first.
// Only conversational kinds leave a running task alone.
func (k Kind) Supersedes() bool {
	return k != KindChat && k != KindNone
}

// Coordinates is an absolute target position.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec returns the coordinates as a world position.
func (c Coordinates) Vec() world.Vec3 {
	return world.Vec3{X: c.X, Y: c.Y, Z: c.Z}
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%g, %g, %g", c.X, c.Y, c.Z)
}

// Action is one decision. Fields not relevant to Kind are empty.
type Action struct {
	Thought     string       `json:"thought,omitempty"`
	Kind        Kind         `json:"action"`
	Message     string       `json:"message,omitempty"`
	Target      string       `json:"target,omitempty"`
	Item        string       `json:"item,omitempty"`
	Command     string       `json:"command,omitempty"`
	Amount      int          `json:"amount,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Chat builds a chat action.
func Chat(thought, message string) Action {
	return Action{Thought: thought, Kind: KindChat, Message: message}
}

// Error builds an error action carrying a user-visible message.
func Error(thought, message string) Action {
	return Action{Thought: thought, Kind: KindError, Message: message}
}

// Attack builds an attack action.
func Attack(thought, target string) Action {
	return Action{Thought: thought, Kind: KindAttack, Target: target}
}

func (a Action) String() string {
	s := string(a.Kind)
	switch {
	case a.Target != "":
		s += " " + a.Target
	case a.Item != "":
		s += " " + a.Item
	case a.Coordinates != nil:
		s += " " + a.Coordinates.String()
	}
	if a.Amount > 0 {
		s += fmt.Sprintf(" x%d", a.Amount)
	}
	return s
}

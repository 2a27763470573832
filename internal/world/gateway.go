package world

import "context"

// Perception answers questions about the current world state. Calls never
// block on the network for long; they return false when the answer is unknown.
type Perception interface {
	Username() string
	Snapshot() (*Snapshot, bool)
	Self() (Entity, bool)
	Entity(id int) (Entity, bool)
	Entities() []Entity
	// Player resolves a player's visible entity by username, case-insensitively.
	Player(name string) (Entity, bool)
	BlockAt(pos Vec3) (Block, bool)
	FindBlock(q BlockQuery) (Block, bool)
	KnownBlock(name string) bool
	KnownItem(name string) bool
	Inventory() []Item
	IsUsingHeldItem() bool
}

// Motion moves the agent. Goto suspends until arrival, failure or ctx cancel.
type Motion interface {
	Goto(ctx context.Context, goal Goal) error
	// SetGoal starts moving without waiting. A dynamic goal may be replaced
	// mid-path without resetting the planner.
	SetGoal(goal Goal, dynamic bool)
	StopMovement()
	LookAt(ctx context.Context, point Vec3) error
}

// Interaction covers combat, digging and inventory manipulation.
type Interaction interface {
	Attack(entityID int)
	Dig(ctx context.Context, b Block) error
	StopDigging()
	Craft(ctx context.Context, item string, count int) error
	Equip(ctx context.Context, item, slot string) error
	Toss(ctx context.Context, item string, count int) error
	ActivateItem() error
}

// Messenger sends chat.
type Messenger interface {
	Chat(text string)
}

// Notifier delivers world notifications.
type Notifier interface {
	Events() <-chan Event
}

// Gateway is everything the agent needs from a game connection.
type Gateway interface {
	Perception
	Motion
	Interaction
	Messenger
	Notifier
}

// EventType enumerates gateway notifications.
type EventType int

const (
	EventSpawn EventType = iota
	EventHealth
	EventChat
	EventDisconnect
)

func (t EventType) String() string {
	switch t {
	case EventSpawn:
		return "spawn"
	case EventHealth:
		return "health"
	case EventChat:
		return "chat"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is a gateway notification.
type Event struct {
	Type     EventType
	Health   float64 // spawn, health
	Username string  // chat
	Message  string  // chat
	Reason   string  // disconnect
}

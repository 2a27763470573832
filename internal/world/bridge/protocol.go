package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"autocraft/internal/world"
)

// Frame types exchanged with the sidecar.
const (
	frameRequest  = "request"  // client -> sidecar, expects a response
	frameCommand  = "command"  // client -> sidecar, fire-and-forget
	frameResponse = "response" // sidecar -> client, correlated by id
	frameState    = "state"    // sidecar -> client, full state push
	frameRegistry = "registry" // sidecar -> client, known block and item names
	frameEvent    = "event"    // sidecar -> client, world notification
)

// Operations understood by the sidecar.
const (
	opJoin         = "join"
	opCancel       = "cancel"
	opGoto         = "goto"
	opSetGoal      = "set_goal"
	opStopMovement = "stop_movement"
	opLookAt       = "look_at"
	opAttack       = "attack"
	opDig          = "dig"
	opStopDigging  = "stop_digging"
	opCraft        = "craft"
	opEquip        = "equip"
	opToss         = "toss"
	opActivateItem = "activate_item"
	opChat         = "chat"
	opBlockAt      = "block_at"
	opFindBlocks   = "find_blocks"
)

type envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Op      string          `json:"op,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a failure reported by the sidecar.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorCodes = map[string]error{
	"not_spawned":      world.ErrNotSpawned,
	"no_path":          world.ErrNoPath,
	"dig_failed":       world.ErrDigFailed,
	"unknown_item":     world.ErrUnknownItem,
	"no_recipe":        world.ErrNoRecipe,
	"not_in_inventory": world.ErrNotInInventory,
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap maps known codes onto the world sentinels.
func (e *RemoteError) Unwrap() error {
	return errorCodes[e.Code]
}

// ErrProtocol reports a frame the client could not interpret.
var ErrProtocol = errors.New("bridge protocol error")

type joinArgs struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Version  string `json:"version,omitempty"`
}

type goalArgs struct {
	Goal    world.Goal `json:"goal"`
	Dynamic bool       `json:"dynamic,omitempty"`
}

type cancelArgs struct {
	ID string `json:"id"`
}

type pointArgs struct {
	Point world.Vec3 `json:"point"`
}

type entityArgs struct {
	EntityID int `json:"entity_id"`
}

type blockArgs struct {
	Block world.Block `json:"block"`
}

type itemArgs struct {
	Item  string `json:"item"`
	Count int    `json:"count,omitempty"`
	Slot  string `json:"slot,omitempty"`
}

type chatArgs struct {
	Text string `json:"text"`
}

type positionArgs struct {
	Position world.Vec3 `json:"position"`
}

type findArgs struct {
	Name        string  `json:"name"`
	MaxDistance float64 `json:"max_distance"`
	Count       int     `json:"count"`
}

// stateFrame is the sidecar's full view of the agent and its surroundings.
type stateFrame struct {
	Spawned       bool                     `json:"spawned"`
	Self          world.Entity             `json:"self"`
	Health        float64                  `json:"health"`
	Food          float64                  `json:"food"`
	Biome         string                   `json:"biome"`
	TimeOfDay     int                      `json:"time_of_day"`
	HeldItem      *world.Item              `json:"held_item,omitempty"`
	UsingHeldItem bool                     `json:"using_held_item"`
	Inventory     []world.Item             `json:"inventory"`
	Entities      []world.Entity           `json:"entities"`
	Players       map[string]*world.Entity `json:"players"`
}

type registryFrame struct {
	Blocks []string `json:"blocks"`
	Items  []string `json:"items"`
}

type eventFrame struct {
	Kind     string  `json:"kind"`
	Health   float64 `json:"health,omitempty"`
	Username string  `json:"username,omitempty"`
	Message  string  `json:"message,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

func (f eventFrame) toEvent() (world.Event, bool) {
	switch f.Kind {
	case "spawn":
		return world.Event{Type: world.EventSpawn, Health: f.Health}, true
	case "health":
		return world.Event{Type: world.EventHealth, Health: f.Health}, true
	case "chat":
		return world.Event{Type: world.EventChat, Username: f.Username, Message: f.Message}, true
	case "disconnect", "kicked", "end":
		return world.Event{Type: world.EventDisconnect, Reason: f.Reason}, true
	default:
		return world.Event{}, false
	}
}

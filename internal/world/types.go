// Package world defines the gateway through which the agent observes and acts
// on the game world. The supervisory core only ever talks to a Gateway; the
// simulated world and the websocket bridge are interchangeable implementations.
package world

import (
	"fmt"
	"math"
	"strings"
)

// Vec3 is a world position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Offset returns v shifted by the given deltas.
func (v Vec3) Offset(dx, dy, dz float64) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

// Floored returns v with every component rounded down to a block coordinate.
func (v Vec3) Floored() Vec3 {
	return Vec3{X: math.Floor(v.X), Y: math.Floor(v.Y), Z: math.Floor(v.Z)}
}

// DistanceTo returns the euclidean distance between two points.
func (v Vec3) DistanceTo(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// EntityKind classifies entities for threat detection.
type EntityKind string

const (
	KindPlayer  EntityKind = "player"
	KindHostile EntityKind = "hostile"
	KindPassive EntityKind = "passive"
	KindObject  EntityKind = "object"
)

// Entity is a point-in-time view of a world entity.
type Entity struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name,omitempty"`
	Kind        EntityKind `json:"kind"`
	Position    Vec3       `json:"position"`
	Height      float64    `json:"height"`
	Valid       bool       `json:"valid"`
}

// Label returns the human facing name.
func (e Entity) Label() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}

// Matches reports whether name refers to this entity, case-insensitively.
func (e Entity) Matches(name string) bool {
	return strings.EqualFold(e.Label(), name) || strings.EqualFold(e.Name, name)
}

// EyePosition returns the point a look-at should aim for.
func (e Entity) EyePosition() Vec3 {
	return e.Position.Offset(0, e.Height, 0)
}

// AirBlock is the name of an empty block.
const AirBlock = "air"

// Block is a block at a position.
type Block struct {
	Name     string `json:"name"`
	Position Vec3   `json:"position"`
}

// IsAir reports whether the block is empty space.
func (b Block) IsAir() bool {
	return b.Name == AirBlock || b.Name == ""
}

// Item is an inventory stack.
type Item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (i Item) String() string {
	return fmt.Sprintf("%dx %s", i.Count, i.Name)
}

// BlockQuery describes a nearest-block search.
type BlockQuery struct {
	Name        string
	MaxDistance float64
	// Match further filters candidates; nil accepts every block of Name.
	Match func(Block) bool
}

// GoalKind selects a navigation goal shape.
type GoalKind string

const (
	GoalNear       GoalKind = "near"         // within Range of Pos
	GoalBlock      GoalKind = "block"        // stand exactly at Pos
	GoalGetToBlock GoalKind = "get_to_block" // adjacent to the block at Pos
)

// Goal is a navigation target.
type Goal struct {
	Kind  GoalKind `json:"kind"`
	Pos   Vec3     `json:"pos"`
	Range float64  `json:"range,omitempty"`
}

// Near builds a goal satisfied within r of pos.
func Near(pos Vec3, r float64) Goal {
	return Goal{Kind: GoalNear, Pos: pos, Range: r}
}

// At builds a goal satisfied at exactly pos.
func At(pos Vec3) Goal {
	return Goal{Kind: GoalBlock, Pos: pos}
}

// Adjacent builds a goal satisfied next to the block at pos.
func Adjacent(pos Vec3) Goal {
	return Goal{Kind: GoalGetToBlock, Pos: pos}
}

func (g Goal) String() string {
	if g.Kind == GoalNear {
		return fmt.Sprintf("%s%s±%g", g.Kind, g.Pos, g.Range)
	}
	return fmt.Sprintf("%s%s", g.Kind, g.Pos)
}

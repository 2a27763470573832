package world

import (
	"math"
	"sort"
	"strings"
)

const (
	nearbyEntityRadius = 100
	nearbyEntityLimit  = 20
)

// PlayerInfo is a player as presented to the decision engine.
type PlayerInfo struct {
	Username string `json:"username"`
	Position *Vec3  `json:"position,omitempty"`
}

// NearbyEntity is an entity as presented to the decision engine.
type NearbyEntity struct {
	Name     string     `json:"name"`
	Kind     EntityKind `json:"type"`
	Position Vec3       `json:"position"`
	Distance float64    `json:"distance"`
}

// Snapshot is the world state captured for one decision cycle.
type Snapshot struct {
	Username       string         `json:"username"`
	Health         float64        `json:"health"`
	Food           float64        `json:"hunger"`
	Position       Vec3           `json:"position"`
	HeldItem       string         `json:"held_item"`
	Biome          string         `json:"biome"`
	Inventory      []string       `json:"inventory"`
	NearbyPlayers  []PlayerInfo   `json:"nearby_players"`
	NearbyEntities []NearbyEntity `json:"nearby_entities"`
	TimeOfDay      int            `json:"time_of_day"`
}

// State is the raw material a gateway holds; NewSnapshot derives the
// decision-facing view from it.
type State struct {
	Username  string
	Self      Entity
	Health    float64
	Food      float64
	HeldItem  *Item
	Biome     string
	Inventory []Item
	Players   map[string]*Entity // username -> visible entity, nil when out of view
	Entities  []Entity
	TimeOfDay int
}

// NewSnapshot captures the closest entities, visible players and inventory.
func NewSnapshot(s State) *Snapshot {
	snap := &Snapshot{
		Username:  s.Username,
		Health:    s.Health,
		Food:      s.Food,
		Position:  s.Self.Position.Floored(),
		HeldItem:  "empty hand",
		Biome:     s.Biome,
		TimeOfDay: s.TimeOfDay,
	}
	if snap.Biome == "" {
		snap.Biome = "unknown"
	}
	if s.HeldItem != nil && s.HeldItem.Count > 0 {
		snap.HeldItem = s.HeldItem.String()
	}
	for _, it := range s.Inventory {
		snap.Inventory = append(snap.Inventory, it.String())
	}

	names := make([]string, 0, len(s.Players))
	for name := range s.Players {
		if !strings.EqualFold(name, s.Username) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		info := PlayerInfo{Username: name}
		if e := s.Players[name]; e != nil {
			pos := e.Position.Floored()
			info.Position = &pos
		}
		snap.NearbyPlayers = append(snap.NearbyPlayers, info)
	}

	var nearby []NearbyEntity
	for _, e := range s.Entities {
		if e.ID == s.Self.ID {
			continue
		}
		d := s.Self.Position.DistanceTo(e.Position)
		if d >= nearbyEntityRadius {
			continue
		}
		nearby = append(nearby, NearbyEntity{
			Name:     e.Label(),
			Kind:     e.Kind,
			Position: e.Position.Floored(),
			Distance: math.Round(d*10) / 10,
		})
	}
	sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].Distance < nearby[j].Distance })
	if len(nearby) > nearbyEntityLimit {
		nearby = nearby[:nearbyEntityLimit]
	}
	snap.NearbyEntities = nearby
	return snap
}

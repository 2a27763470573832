package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"autocraft/internal/world"
)

// SystemPrompt is the standing instruction for the chat session.
const SystemPrompt = "You control a Minecraft bot as a capable, proactive companion to the players around you. " +
	"You receive your current status and surroundings with every command and may use Google Search for facts you lack.\n\n" +
	"Reply with one natural-language sentence followed by exactly one JSON object inside a ```json fenced block.\n\n" +
	`Rules:
1. Carry out the command. Use the context to decide how, never to ignore it. If the command is ambiguous, pick one reading and say so in "thought".
2. When idle, look after yourself: hunger, nightfall, nearby hostiles.
3. When told you took damage, survival comes first: fight, flee or heal.
4. "thought" is mandatory and explains the choice.
5. Exactly one action per reply. Multi-step goals are reached one action at a time.
6. When unsure, or the request is impossible or purely conversational, use "chat".

Actions (field "action") and their fields:
- chat: message
- move: target (player username) - walk to the player once
- follow: target (player username) - keep following until stopped
- stop_action: message (optional) - stop following, attacking or gathering
- goto: coordinates {x, y, z}
- gather: target (exact block name such as oak_log or grass_block), amount (optional)
- attack: target (entity name or player username) - fight until it is gone
- craft: item
- equip: item
- use_item: use the item in hand
- drop: target (item name or "all"), amount (optional, defaults to the whole stack)
- execute_command: command (a slash command such as /time set day)
- look_at: target (player username) or coordinates {x, y, z}
- none: message (optional)
- error: message

Example:
Sure, I'll collect some logs first.
` + "```json" + `
{"thought": "A house needs plenty of wood, so I start with logs.", "action": "gather", "target": "oak_log", "amount": 30}
` + "```"

// RenderPrompt formats one user turn from the command and snapshot.
func RenderPrompt(command, requester string, snap *world.Snapshot) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- User giving command: %q\n", requester)
	fmt.Fprintf(&b, "- My Username: %q\n", snap.Username)
	fmt.Fprintf(&b, "- Health: %.1f/20\n", snap.Health)
	fmt.Fprintf(&b, "- Hunger: %.1f/20\n", snap.Food)
	fmt.Fprintf(&b, "- Position: %s\n", mustJSON(snap.Position))
	fmt.Fprintf(&b, "- Biome: %s\n", snap.Biome)
	fmt.Fprintf(&b, "- Item in hand: %s\n", snap.HeldItem)
	inventory := "empty"
	if len(snap.Inventory) > 0 {
		inventory = strings.Join(snap.Inventory, ", ")
	}
	fmt.Fprintf(&b, "- Inventory: %s\n", inventory)
	fmt.Fprintf(&b, "- Nearby Players: %s\n", mustJSON(nonNil(snap.NearbyPlayers)))
	fmt.Fprintf(&b, "- Nearby Entities (closest 20 in 100 block radius): %s\n", mustJSON(nonNil(snap.NearbyEntities)))
	fmt.Fprintf(&b, "- Time of Day: %d\n", snap.TimeOfDay)
	fmt.Fprintf(&b, "\nUser Command: %q\n\n", command)
	b.WriteString("Remember your instructions. Provide your response and then the JSON action block.\n")
	return b.String()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

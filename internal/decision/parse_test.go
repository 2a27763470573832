package decision

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"autocraft/internal/action"
	"autocraft/internal/world"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want action.Action
	}{
		{
			name: "fenced action",
			in:   "On it!\n```json\n{\"thought\": \"wood first\", \"action\": \"gather\", \"target\": \"oak_log\", \"amount\": 3}\n```",
			want: action.Action{Thought: "wood first", Kind: action.KindGather, Target: "oak_log", Amount: 3},
		},
		{
			name: "missing action",
			in:   "Hmm.\n```json\n{\"thought\": \"not sure\"}\n```",
			want: action.Error("Malformed response without an action.", ConfusedMessage),
		},
		{
			name: "invalid json",
			in:   "```json\n{\"action\": \"chat\", \n```",
			want: action.Error("Invalid JSON from the AI.", ConfusedMessage),
		},
		{
			name: "trailing commentary inside fence",
			in:   "```json\n{\"thought\": \"t\", \"action\": \"chat\", \"message\": \"a {brace}\"}\n(that's all)\n```",
			want: action.Action{Thought: "t", Kind: action.KindChat, Message: "a {brace}"},
		},
		{
			name: "prose only",
			in:   "I'm not sure what you mean, ```friend```.",
			want: action.Chat("No structured action, just a chat reply.", "I'm not sure what you mean, friend."),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseResponse(tt.in)); diff != "" {
				t.Errorf("ParseResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": {"b": "}"}}`, extractJSON(`noise {"a": {"b": "}"}} more`))
	assert.Equal(t, `{"q": "say \"{\""}`, extractJSON(`{"q": "say \"{\""} tail`))
	assert.Empty(t, extractJSON("no object"))
	assert.Empty(t, extractJSON("{ unterminated"))
}

func TestRenderPrompt(t *testing.T) {
	snap := &world.Snapshot{
		Username:  "Bot",
		Health:    17.5,
		Food:      20,
		Position:  world.Vec3{X: 1, Y: 64, Z: -2},
		HeldItem:  "empty hand",
		Biome:     "plains",
		TimeOfDay: 6000,
	}
	out := RenderPrompt("get wood", "Steve", snap)

	assert.Contains(t, out, `- User giving command: "Steve"`)
	assert.Contains(t, out, `- My Username: "Bot"`)
	assert.Contains(t, out, "- Health: 17.5/20")
	assert.Contains(t, out, `- Position: {"x":1,"y":64,"z":-2}`)
	assert.Contains(t, out, "- Inventory: empty")
	assert.Contains(t, out, "- Nearby Players: []")
	assert.Contains(t, out, "- Time of Day: 6000")
	assert.Contains(t, out, `User Command: "get wood"`)

	snap.Inventory = []string{"3x dirt", "1x torch"}
	snap.NearbyPlayers = []world.PlayerInfo{{Username: "Alex"}}
	out = RenderPrompt("hi", "Steve", snap)
	assert.Contains(t, out, "- Inventory: 3x dirt, 1x torch")
	assert.Contains(t, out, `- Nearby Players: [{"username":"Alex"}]`)
}

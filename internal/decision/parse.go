package decision

import (
	"errors"
	"regexp"
	"strings"

	"autocraft/internal/action"
	"autocraft/internal/logging"
)

// ConfusedMessage is chatted when the model's action block is unusable.
const ConfusedMessage = "Sorry, I got confused. Can you repeat that?"

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ParseResponse extracts the action from a model reply. Replies without a
// fenced json block are treated as plain chat.
func ParseResponse(text string) action.Action {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return action.Chat("No structured action, just a chat reply.", strings.TrimSpace(strings.ReplaceAll(text, "```", "")))
	}

	body := m[1]
	a, err := action.Decode([]byte(body))
	if err != nil && !errors.Is(err, action.ErrMissingKind) {
		// Models sometimes trail commentary after the object inside the fence.
		if obj := extractJSON(body); obj != "" && obj != body {
			a, err = action.Decode([]byte(obj))
		}
	}
	switch {
	case errors.Is(err, action.ErrMissingKind):
		logging.Get(logging.CategoryDecision).Warn("response missing 'action': %s", body)
		return action.Error("Malformed response without an action.", ConfusedMessage)
	case err != nil:
		logging.Get(logging.CategoryDecision).Warn("failed to parse response json: %v: %s", err, body)
		return action.Error("Invalid JSON from the AI.", ConfusedMessage)
	}
	return a
}

// extractJSON returns the first balanced {...} object in s.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

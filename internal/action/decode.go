package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingKind is returned when a decoded object has no action field.
var ErrMissingKind = errors.New("action field missing")

// wireAction mirrors Action with lenient numeric fields; engines emit
// amounts as numbers, numeric strings or floats.
type wireAction struct {
	Thought     string          `json:"thought"`
	Kind        string          `json:"action"`
	Message     string          `json:"message"`
	Target      string          `json:"target"`
	Item        string          `json:"item"`
	Command     string          `json:"command"`
	Amount      json.RawMessage `json:"amount"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Decode parses a JSON object into an Action. A missing thought is
// synthesized from the kind.
func Decode(data []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return Action{}, fmt.Errorf("invalid action json: %w", err)
	}
	if strings.TrimSpace(w.Kind) == "" {
		return Action{}, ErrMissingKind
	}

	a := Action{
		Thought: w.Thought,
		Kind:    Kind(strings.TrimSpace(w.Kind)),
		Message: w.Message,
		Target:  w.Target,
		Item:    w.Item,
		Command: w.Command,
		Amount:  decodeAmount(w.Amount),
	}
	if a.Thought == "" {
		a.Thought = fmt.Sprintf("AI chose action '%s' without providing a thought.", a.Kind)
	}
	if c, ok := decodeCoordinates(w.Coordinates); ok {
		a.Coordinates = &c
	}
	return a, nil
}

func decodeAmount(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return clampAmount(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return clampAmount(f)
		}
	}
	return 0
}

func clampAmount(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func decodeCoordinates(raw json.RawMessage) (Coordinates, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return Coordinates{}, false
	}
	var c Coordinates
	if err := json.Unmarshal(raw, &c); err == nil {
		return c, true
	}
	// [x, y, z] also shows up occasionally.
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 3 {
		return Coordinates{X: arr[0], Y: arr[1], Z: arr[2]}, true
	}
	return Coordinates{}, false
}

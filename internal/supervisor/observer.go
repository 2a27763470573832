package supervisor

// EventType enumerates supervisor lifecycle events.
type EventType int

const (
	EventStarted EventType = iota
	EventStopped
	EventStep
	EventRelocate
	EventStrike
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventStep:
		return "step"
	case EventRelocate:
		return "relocate"
	case EventStrike:
		return "strike"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle transition. Step events carry the gather
// outcome and the counters after it was applied.
type Event struct {
	Type      EventType
	TaskID    string
	Kind      Kind
	Outcome   Outcome
	Failures  int
	Collected int
	EntityID  int
}

// Observer receives events synchronously on the goroutine that produced
// them. It must not call back into the Supervisor.
type Observer func(Event)

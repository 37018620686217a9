package touch

import "time"

// Phase identifies the stage of a touch interaction. The host input source
// guarantees ordering: a start, zero or more moves, then an end.
type Phase uint8

const (
	PhaseStart Phase = iota
	PhaseMove
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseMove:
		return "move"
	case PhaseEnd:
		return "end"
	default:
		return "unknown"
	}
}

// EventType returns the routing key used on the event bus for this phase.
func (p Phase) EventType() string {
	switch p {
	case PhaseStart:
		return EventTypeStart
	case PhaseMove:
		return EventTypeMove
	case PhaseEnd:
		return EventTypeEnd
	default:
		return "touch.unknown"
	}
}

// Bus routing keys, one per phase.
const (
	EventTypeStart = "touch.start"
	EventTypeMove  = "touch.move"
	EventTypeEnd   = "touch.end"
)

// Point is the pixel position of a touch at a moment in time.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Event is a single touch interaction event delivered by an input source.
// It carries at least the first touch point's client coordinates; the
// detector does not validate beyond that, per the host platform contract.
type Event struct {
	Phase   Phase     `json:"phase" yaml:"phase"`
	Pointer string    `json:"pointer,omitempty" yaml:"pointer,omitempty"`
	Point   Point     `json:"point" yaml:"point"`
	Time    time.Time `json:"time,omitempty" yaml:"time,omitempty"`
}

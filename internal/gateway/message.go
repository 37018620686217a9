package gateway

import (
	"fmt"
	"time"

	"github.com/gesturesync/gesturesync/internal/core/gesture"
	"github.com/gesturesync/gesturesync/internal/core/touch"
)

// TouchFrame is the wire form of one touch event sent by a source.
type TouchFrame struct {
	Phase   string  `json:"phase"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Pointer string  `json:"pointer,omitempty"`
}

// Event converts the frame into a touch event stamped with the given time.
func (f TouchFrame) Event(now time.Time) (touch.Event, error) {
	var phase touch.Phase
	switch f.Phase {
	case "start":
		phase = touch.PhaseStart
	case "move":
		phase = touch.PhaseMove
	case "end":
		phase = touch.PhaseEnd
	default:
		return touch.Event{}, fmt.Errorf("%w: %q", ErrUnknownPhase, f.Phase)
	}
	return touch.Event{
		Phase:   phase,
		Pointer: f.Pointer,
		Point:   touch.Point{X: f.X, Y: f.Y},
		Time:    now,
	}, nil
}

// ResultFrame is pushed to consumers whenever a target's swipe state
// changes, and once on subscription as the initial snapshot.
type ResultFrame struct {
	Target  string `json:"target"`
	Left    bool   `json:"left"`
	Right   bool   `json:"right"`
	Up      bool   `json:"up"`
	Down    bool   `json:"down"`
	Version uint64 `json:"version"`
}

func newResultFrame(target string, r gesture.SwipeResult, version uint64) ResultFrame {
	return ResultFrame{
		Target:  target,
		Left:    r.Left,
		Right:   r.Right,
		Up:      r.Up,
		Down:    r.Down,
		Version: version,
	}
}

// HelloFrame opens a QUIC ingest stream and names the target the source
// feeds.
type HelloFrame struct {
	Target string `json:"target"`
}

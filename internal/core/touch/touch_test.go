package touch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhaseEventType(t *testing.T) {
	require.Equal(t, EventTypeStart, PhaseStart.EventType())
	require.Equal(t, EventTypeMove, PhaseMove.EventType())
	require.Equal(t, EventTypeEnd, PhaseEnd.EventType())
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "start", PhaseStart.String())
	require.Equal(t, "move", PhaseMove.String())
	require.Equal(t, "end", PhaseEnd.String())
	require.Equal(t, "unknown", Phase(99).String())
}

func TestEventJSONFields(t *testing.T) {
	raw, err := json.Marshal(Event{Phase: PhaseMove, Pointer: "p1", Point: Point{X: 1.5, Y: -2}})
	require.NoError(t, err)
	require.Contains(t, string(raw), `"x":1.5`)
	require.Contains(t, string(raw), `"pointer":"p1"`)
}

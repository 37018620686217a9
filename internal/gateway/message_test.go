package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gesturesync/gesturesync/internal/core/gesture"
	"github.com/gesturesync/gesturesync/internal/core/touch"
)

func TestTouchFrameEvent(t *testing.T) {
	now := time.Now()

	cases := []struct {
		wire string
		want touch.Phase
	}{
		{"start", touch.PhaseStart},
		{"move", touch.PhaseMove},
		{"end", touch.PhaseEnd},
	}
	for _, tc := range cases {
		t.Run(tc.wire, func(t *testing.T) {
			ev, err := TouchFrame{Phase: tc.wire, X: 1, Y: 2, Pointer: "p1"}.Event(now)
			require.NoError(t, err)
			require.Equal(t, tc.want, ev.Phase)
			require.Equal(t, touch.Point{X: 1, Y: 2}, ev.Point)
			require.Equal(t, "p1", ev.Pointer)
			require.Equal(t, now, ev.Time)
		})
	}
}

func TestTouchFrameUnknownPhase(t *testing.T) {
	_, err := TouchFrame{Phase: "hover"}.Event(time.Now())
	require.ErrorIs(t, err, ErrUnknownPhase)

	_, err = TouchFrame{}.Event(time.Now())
	require.ErrorIs(t, err, ErrUnknownPhase)
}

func TestNewResultFrame(t *testing.T) {
	frame := newResultFrame("pad-a", gesture.SwipeResult{Left: true, Down: true}, 3)
	require.Equal(t, ResultFrame{
		Target:  "pad-a",
		Left:    true,
		Down:    true,
		Version: 3,
	}, frame)
}

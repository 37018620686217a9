package gesture

import "errors"

// Detector-specific errors
var (
	ErrInvalidConfig  = errors.New("invalid detector configuration")
	ErrDetectorClosed = errors.New("detector is closed")
	ErrNilBus         = errors.New("detector requires an event bus")
)

package gateway

import "errors"

// Gateway-specific errors
var (
	ErrGatewayClosed         = errors.New("gateway is closed")
	ErrGatewayNotRunning     = errors.New("gateway is not running")
	ErrGatewayAlreadyRunning = errors.New("gateway is already running")
	ErrMaxClientsReached     = errors.New("maximum clients reached")
	ErrInvalidConfig         = errors.New("invalid gateway configuration")
	ErrUnknownPhase          = errors.New("unknown touch phase")
	ErrUnknownRole           = errors.New("unknown session role")
	ErrFrameTooLarge         = errors.New("frame exceeds maximum size")
)

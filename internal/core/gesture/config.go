package gesture

import (
	"fmt"
	"time"
)

// Default thresholds and delays. The two presets mirror the two recognized
// detector variants: a short-threshold immediate one and a long-threshold
// debounced one. The reset delay is shared.
const (
	DefaultMinSwipeDistance   = 50.0
	DebouncedMinSwipeDistance = 150.0
	DefaultEmitDebounce       = 200 * time.Millisecond
	DefaultResetDelay         = 100 * time.Millisecond
)

// Config holds detector configuration. It is immutable for the lifetime of
// one detector instance.
type Config struct {
	// MinSwipeDistance is the pixel threshold for classification. A delta
	// exactly equal to the threshold is not a swipe.
	MinSwipeDistance float64 `json:"min_swipe_distance" yaml:"min_swipe_distance"`

	// KeepUpdatedState suppresses the auto-reset pulse: the last computed
	// result persists until the next completed gesture overwrites it.
	KeepUpdatedState bool `json:"keep_updated_state" yaml:"keep_updated_state"`

	// UseDocument binds the detector to the document topic. It overrides
	// ExternalTarget.
	UseDocument bool `json:"use_document" yaml:"use_document"`

	// ExternalTarget binds the detector to a caller-supplied target. Empty
	// means the detector owns its target and generates an identifier.
	ExternalTarget string `json:"external_target,omitempty" yaml:"external_target,omitempty"`

	// EmitDebounce delays classification after touch-end, collapsing rapid
	// repeated gesture ends into one update carrying the last deltas. Zero
	// applies the classification immediately.
	EmitDebounce time.Duration `json:"emit_debounce" yaml:"emit_debounce"`

	// ResetDelay is how long a result stays set before the auto-reset pulse
	// reverts it to all-false. Ignored when KeepUpdatedState is set.
	ResetDelay time.Duration `json:"reset_delay" yaml:"reset_delay"`
}

// DefaultConfig returns the immediate-emission variant: 50px threshold, no
// debounce, 100ms reset pulse, owned target.
func DefaultConfig() Config {
	return Config{
		MinSwipeDistance: DefaultMinSwipeDistance,
		ResetDelay:       DefaultResetDelay,
	}
}

// DebouncedConfig returns the debounced variant: 150px threshold, 200ms
// debounced emission, 100ms reset pulse, owned target.
func DebouncedConfig() Config {
	return Config{
		MinSwipeDistance: DebouncedMinSwipeDistance,
		EmitDebounce:     DefaultEmitDebounce,
		ResetDelay:       DefaultResetDelay,
	}
}

// Validate checks the configuration for values a detector cannot run with.
func (c Config) Validate() error {
	if c.MinSwipeDistance <= 0 {
		return fmt.Errorf("%w: min_swipe_distance must be positive, got %v", ErrInvalidConfig, c.MinSwipeDistance)
	}
	if c.EmitDebounce < 0 {
		return fmt.Errorf("%w: emit_debounce must not be negative, got %v", ErrInvalidConfig, c.EmitDebounce)
	}
	if c.ResetDelay <= 0 && !c.KeepUpdatedState {
		return fmt.Errorf("%w: reset_delay must be positive unless keep_updated_state is set, got %v", ErrInvalidConfig, c.ResetDelay)
	}
	return nil
}

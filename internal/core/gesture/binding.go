package gesture

import (
	"github.com/google/uuid"
	"github.com/gesturesync/gesturesync/internal/core/events/bus"
)

// BindingKind tags where a detector's listeners live.
type BindingKind uint8

const (
	// BindingOwned means the detector generated its own target identifier.
	BindingOwned BindingKind = iota
	// BindingExternal means the caller supplied the target identifier.
	BindingExternal
	// BindingDocument means the detector listens on the document topic.
	BindingDocument
)

func (k BindingKind) String() string {
	switch k {
	case BindingOwned:
		return "owned"
	case BindingExternal:
		return "external"
	case BindingDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Binding is the resolved binding target: exactly one kind is active at a
// time, resolved once per configuration. Document takes precedence over an
// external target, an external target over an owned one.
type Binding struct {
	Kind   BindingKind
	Target string
}

// resolveBinding applies the precedence rules to a configuration.
func resolveBinding(cfg Config) Binding {
	switch {
	case cfg.UseDocument:
		return Binding{Kind: BindingDocument, Target: bus.DocumentTopic}
	case cfg.ExternalTarget != "":
		return Binding{Kind: BindingExternal, Target: cfg.ExternalTarget}
	default:
		return Binding{Kind: BindingOwned, Target: uuid.NewString()}
	}
}

// Topic returns the bus topic the binding listens on.
func (b Binding) Topic() string {
	return b.Target
}

// attachable reports whether the binding currently names a target the
// detector can listen on. An external binding without a target is skipped
// silently and recovers on Rebind.
func (b Binding) attachable() bool {
	return b.Kind != BindingExternal || b.Target != ""
}

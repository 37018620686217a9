package gesture

import (
	"sync"
	"time"

	"github.com/gesturesync/gesturesync/internal/core/events/bus"
	"github.com/gesturesync/gesturesync/internal/core/observability/log"
	"github.com/gesturesync/gesturesync/internal/core/state"
	"github.com/gesturesync/gesturesync/internal/core/touch"
)

// Detector classifies directional swipes from the touch events of one
// binding target and keeps an Observable SwipeResult up to date.
//
// Per gesture it runs a small state machine: touch-start begins tracking and
// discards any incomplete previous gesture, every touch-move overwrites the
// end point, and touch-end classifies start-minus-end deltas against the
// threshold. A start followed directly by an end never produces a result.
//
// The detector owns exactly the three bus subscriptions it installs and
// removes exactly those on Close or Rebind. Its two timers, the debounced
// emission and the auto-reset pulse, are cancelled on every teardown path so
// a stale callback can never mutate state after disposal.
type Detector struct {
	cfg     Config
	bus     bus.EventBus
	logger  log.Log
	result  *state.Observable[SwipeResult]
	binding Binding

	mu       sync.Mutex
	start    touch.Point
	end      touch.Point
	hasStart bool
	hasEnd   bool

	subs []bus.Subscription

	emitTimer  *time.Timer
	resetTimer *time.Timer
	pendingDX  float64
	pendingDY  float64

	closed bool
}

// New creates a Detector, resolves its binding target once from the
// configuration and attaches its listeners. The returned detector must be
// closed when no longer needed.
func New(cfg Config, b bus.EventBus, logger log.Log) (*Detector, error) {
	if b == nil {
		return nil, ErrNilBus
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Provide()
	}

	binding := resolveBinding(cfg)

	d := &Detector{
		cfg:     cfg,
		bus:     b,
		binding: binding,
		result:  state.NewObservable(SwipeResult{}),
		logger: logger.With(
			log.String("component", "detector"),
			log.String("binding", binding.Kind.String()),
			log.String("target", binding.Target)),
	}

	d.mu.Lock()
	d.attachLocked()
	d.mu.Unlock()

	d.logger.Debug("Detector created",
		log.Float64("min_swipe_distance", cfg.MinSwipeDistance),
		log.Duration("emit_debounce", cfg.EmitDebounce),
		log.Bool("keep_updated_state", cfg.KeepUpdatedState))

	return d, nil
}

// Target returns the identifier of the bound target, the handle a caller
// uses to publish touch events at this detector when it is not bound to the
// document.
func (d *Detector) Target() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.binding.Target
}

// Binding returns the resolved binding.
func (d *Detector) Binding() Binding {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.binding
}

// Result returns the observable swipe state consumers watch for changes.
func (d *Detector) Result() *state.Observable[SwipeResult] {
	return d.result
}

// Rebind moves an externally bound detector to a new target identity,
// detaching from the old one first. An empty target detaches and skips
// attachment silently; the detector recovers on the next Rebind. Rebinding
// a document-bound detector is a no-op since the document takes precedence
// over any target reference.
func (d *Detector) Rebind(target string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDetectorClosed
	}
	if d.binding.Kind == BindingDocument {
		d.logger.Debug("Rebind ignored for document binding")
		return nil
	}
	if d.binding.Target == target {
		return nil
	}

	d.detachLocked()
	// A pending debounced emission belongs to the old target's gesture.
	if d.emitTimer != nil {
		d.emitTimer.Stop()
		d.emitTimer = nil
	}
	d.hasStart = false
	d.hasEnd = false
	d.binding = Binding{Kind: BindingExternal, Target: target}
	d.attachLocked()
	return nil
}

// Close tears the detector down: cancels pending timers, removes the three
// listeners it owns and closes the result observable. Multiple calls are
// safe.
func (d *Detector) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.stopTimersLocked()
	subs := d.subs
	d.subs = nil
	d.mu.Unlock()

	for _, s := range subs {
		_ = d.bus.Unsubscribe(s)
	}
	d.logger.Debug("Detector closed")
	return d.result.Close()
}

// attachLocked installs the three touch listeners on the current binding
// topic. An unattachable binding is skipped without error.
func (d *Detector) attachLocked() {
	if !d.binding.attachable() {
		d.logger.Debug("No binding target, skipping listener attachment")
		return
	}

	topic := d.binding.Topic()
	phases := []struct {
		eventType string
		handler   bus.EventHandler
	}{
		{touch.EventTypeStart, d.onTouchStart},
		{touch.EventTypeMove, d.onTouchMove},
		{touch.EventTypeEnd, d.onTouchEnd},
	}

	d.subs = make([]bus.Subscription, 0, len(phases))
	for _, p := range phases {
		sub, err := d.bus.SubscribeTopic(topic, p.eventType, p.handler)
		if err != nil {
			d.logger.Error("Failed to subscribe", log.String("event_type", p.eventType), log.Error(err))
			continue
		}
		d.subs = append(d.subs, sub)
	}
}

// detachLocked removes exactly the subscriptions the detector installed.
func (d *Detector) detachLocked() {
	for _, s := range d.subs {
		_ = d.bus.Unsubscribe(s)
	}
	d.subs = nil
}

func (d *Detector) onTouchStart(e bus.Event) error {
	te, ok := e.Data().(touch.Event)
	if !ok {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	// A new start discards any incomplete previous gesture.
	d.start = te.Point
	d.hasStart = true
	d.hasEnd = false
	return nil
}

func (d *Detector) onTouchMove(e bus.Event) error {
	te, ok := e.Data().(touch.Event)
	if !ok {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	// Only the most recent move position matters.
	d.end = te.Point
	d.hasEnd = true
	return nil
}

func (d *Detector) onTouchEnd(bus.Event) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	if !d.hasStart || !d.hasEnd {
		// No move occurred, nothing to classify.
		d.hasStart = false
		d.hasEnd = false
		d.mu.Unlock()
		return nil
	}

	dx := d.start.X - d.end.X
	dy := d.start.Y - d.end.Y
	d.hasStart = false
	d.hasEnd = false

	if d.cfg.EmitDebounce > 0 {
		// Rapid repeated gesture ends collapse into one update carrying
		// the last deltas.
		d.pendingDX = dx
		d.pendingDY = dy
		if d.emitTimer != nil {
			d.emitTimer.Stop()
		}
		d.emitTimer = time.AfterFunc(d.cfg.EmitDebounce, d.applyPending)
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	d.apply(dx, dy)
	return nil
}

// applyPending fires from the debounce timer.
func (d *Detector) applyPending() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.emitTimer = nil
	dx, dy := d.pendingDX, d.pendingDY
	d.mu.Unlock()

	d.apply(dx, dy)
}

// apply classifies the deltas, publishes the result and arms the auto-reset
// pulse unless the configuration keeps state.
func (d *Detector) apply(dx, dy float64) {
	res := d.classify(dx, dy)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.resetTimer != nil {
		d.resetTimer.Stop()
		d.resetTimer = nil
	}
	if !d.cfg.KeepUpdatedState {
		d.resetTimer = time.AfterFunc(d.cfg.ResetDelay, d.resetResult)
	}
	d.mu.Unlock()

	d.logger.Debug("Swipe classified",
		log.Float64("delta_x", dx),
		log.Float64("delta_y", dy),
		log.String("result", res.String()))
	d.result.Set(res)
}

// resetResult fires from the auto-reset timer.
func (d *Detector) resetResult() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.resetTimer = nil
	d.mu.Unlock()

	d.result.Set(SwipeResult{})
}

// classify compares the deltas against the threshold. Strict inequality: a
// delta exactly equal to the threshold is not a swipe. Axes are independent.
func (d *Detector) classify(dx, dy float64) SwipeResult {
	min := d.cfg.MinSwipeDistance
	return SwipeResult{
		Left:  dx > min,
		Right: dx < -min,
		Up:    dy > min,
		Down:  dy < -min,
	}
}

// stopTimersLocked cancels both timers. Idempotent; runs on every teardown
// path.
func (d *Detector) stopTimersLocked() {
	if d.emitTimer != nil {
		d.emitTimer.Stop()
		d.emitTimer = nil
	}
	if d.resetTimer != nil {
		d.resetTimer.Stop()
		d.resetTimer = nil
	}
}

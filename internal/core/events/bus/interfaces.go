package bus

import "time"

// DocumentTopic is the default topic. Binding a detector to the document
// means subscribing here; it always exists and never changes identity.
const DocumentTopic = ""

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Topics model binding targets: every touch source publishes into the topic
// named after its target, and a detector's listeners live in exactly one
// topic at a time. Delivery is synchronous: Publish invokes handlers in the
// caller goroutine, so handlers must be quick or offload heavy work.
// Handler errors are joined and returned from Publish.
type EventBus interface {
	// Publish delivers the event to all active subscribers of event.Type()
	// in the document topic.
	Publish(event Event) error
	// PublishToTopic delivers the event within the named topic only.
	PublishToTopic(topic string, event Event) error

	// Subscribe registers a handler for an event type in the document topic
	// and returns a cancellable Subscription handle.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// SubscribeTopic registers a handler for an event type within a topic.
	// The topic materializes on first subscription.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Safe to call with nil.
	Unsubscribe(Subscription) error

	// AddObserver registers an observer for delivery callbacks. Metrics are
	// accumulated only while at least one observer is registered.
	AddObserver(obs Observer)
	// RemoveObserver unregisters a previously added observer.
	RemoveObserver(obs Observer)
	// Metrics returns a best-effort snapshot of accumulated counters.
	Metrics() Metrics
	// Topics returns a snapshot of known topics and their subscriber counts.
	Topics() []TopicInfo
}

// Event is an immutable message transported by the bus. Type is the routing
// key; Data is an opaque payload read-only to consumers.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

// EventHandler is invoked once per delivered event. A returned error is
// aggregated into the Publish result.
type EventHandler func(event Event) error

// Subscription is a registered handler bound to one event type in one topic.
// It is the unit of listener ownership: whoever subscribed must cancel
// exactly the subscriptions it holds, and only those, on teardown.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// EventType returns the routing key this subscription listens to.
	EventType() string
	// Topic returns the topic this subscription is attached to.
	Topic() string
	// IsActive reports whether the handler is still registered.
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about publishes and deliveries. Implementations can
// export metrics or logs; they should return quickly.
type Observer interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64)
}

// Metrics is a minimal set of counters, updated only while at least one
// observer is registered.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}

// TopicInfo is a minimal snapshot about one topic.
type TopicInfo struct {
	Name       string
	EventTypes int
	Subs       int
}

package ports

import "context"

const (
	// EventAll subscribes a handler to every event type.
	EventAll = "*"
	// EventPortAdded is emitted after a port joins its group.
	EventPortAdded = "port.added"
	// EventPortRemoved is emitted after a port leaves its group.
	EventPortRemoved = "port.removed"
	// EventPortRenamed is emitted after a port is re-keyed within its group.
	EventPortRenamed = "port.renamed"
	// EventPortConnected is emitted once per successful connection.
	EventPortConnected = "port.connected"
	// EventPortDisconnected is emitted once per disconnection.
	EventPortDisconnected = "port.disconnected"
	// EventMetaDataChanged is emitted when an input port receives new metadata.
	EventMetaDataChanged = "metadata.changed"
	// EventRepairApplied is emitted when a guided repair finishes.
	EventRepairApplied = "repair.applied"
)

// DomainEvent represents a significant occurrence within the port graph.
// Events carry structured payloads that subscribers can use for logging or
// repainting an editor canvas.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish blocks until all handlers run. Handlers may be
// registered or removed while a dispatch is in flight; each Publish iterates
// a stable snapshot. Implementations must be thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Failures should be
// returned so publishers can log them and continue with remaining handlers.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler. Callers must invoke
// Unsubscribe to stop receiving events.
type Subscription interface {
	Unsubscribe()
}

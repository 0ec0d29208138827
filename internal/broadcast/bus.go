package broadcast

// Bus is the transport-level publish/subscribe contract the Broadcaster
// builds on. Implementations need not support arbitrary NATS-style
// wildcards beyond the single "arena.group.*" subject this package uses
// to let a subscriber listen to every group at once.
type Bus interface {
	Publish(subject string, event *Event) error
	Subscribe(subject string, handler Handler) (Subscription, error)
	Close()
	IsConnected() bool
}

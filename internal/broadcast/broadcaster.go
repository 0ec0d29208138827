package broadcast

// Broadcaster is the Broadcaster component (§6 Egress): it publishes
// typed, group-scoped events and lets subscribers listen to one group or
// to every group at once. It holds no orchestration state — it is pure
// fan-out over a Bus.
type Broadcaster struct {
	bus Bus
}

// New wraps bus as a Broadcaster. Pass NewMemoryBus(log) for the default
// in-process transport, or a *NATSBus for a multi-process deployment.
func New(bus Bus) *Broadcaster {
	return &Broadcaster{bus: bus}
}

// Publish emits an event of the given type for groupID.
func (b *Broadcaster) Publish(eventType EventType, groupID string, data map[string]interface{}) error {
	return b.bus.Publish(subject(groupID), NewEvent(eventType, groupID, data))
}

// Subscribe listens to every event for one group.
func (b *Broadcaster) Subscribe(groupID string, handler Handler) (Subscription, error) {
	return b.bus.Subscribe(subject(groupID), handler)
}

// SubscribeAll listens to every event across every group, e.g. for the
// Call Logger or a single WebSocket gateway instance fanning out to
// per-group rooms.
func (b *Broadcaster) SubscribeAll(handler Handler) (Subscription, error) {
	return b.bus.Subscribe(subject(""), handler)
}

// Close releases the underlying transport.
func (b *Broadcaster) Close() {
	b.bus.Close()
}

// IsConnected reports whether the underlying transport is usable.
func (b *Broadcaster) IsConnected() bool {
	return b.bus.IsConnected()
}

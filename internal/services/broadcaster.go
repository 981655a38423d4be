package services

// Broadcaster delivers fire-and-forget realtime events to a user's connected
// sessions. Delivery is best effort; disconnected clients recover state on
// their next query.
type Broadcaster interface {
	Emit(userID uint, event string, payload interface{})
}

// NopBroadcaster discards all events. Used by batch jobs and tests.
type NopBroadcaster struct{}

// Emit discards the event
func (NopBroadcaster) Emit(userID uint, event string, payload interface{}) {}

package ws

// Socket event names. These are part of the client contract.
const (
	EventNotificationReceived  = "notification_received"
	EventNotificationRead      = "notification_read"
	EventFriendRequestSent     = "friend_request_sent"
	EventFriendRequestAccepted = "friend_request_accepted"
	EventProfileActivated      = "profile_activated"
	EventRefresh               = "refresh"
)

// Event is the envelope written to and read from the socket
type Event struct {
	Event     string      `json:"event"`
	ProfileID uint        `json:"profileId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

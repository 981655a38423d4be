package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Notification types
const (
	NotificationFriendRequest   = "friend_request"
	NotificationFriendAccepted  = "friend_accepted"
	NotificationPostLike        = "post_like"
	NotificationPostComment     = "post_comment"
	NotificationProfileInvite   = "profile_invite"
	NotificationProfileDeleted  = "profile_deleted"
	NotificationBookingRequest  = "booking_request"
	NotificationBookingResponse = "booking_response"
)

// AllNotificationTypes lists every known type, used to materialize default settings.
var AllNotificationTypes = []string{
	NotificationFriendRequest,
	NotificationFriendAccepted,
	NotificationPostLike,
	NotificationPostComment,
	NotificationProfileInvite,
	NotificationProfileDeleted,
	NotificationBookingRequest,
	NotificationBookingResponse,
}

// Notification is a fact directed at a recipient user. Data carries a typed
// payload whose shape depends on Type; see the *Data structs below.
type Notification struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	RecipientID uint           `json:"recipient_id" gorm:"index"`
	SenderID    *uint          `json:"sender_id,omitempty" gorm:"index"`
	Type        string         `json:"type" gorm:"size:40;index"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        datatypes.JSON `json:"data" gorm:"type:jsonb"`
	Read        bool           `json:"read" gorm:"default:false;index"`
	EmailSent   bool           `json:"email_sent" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FriendRequestData is the payload of friend_request notifications. The
// referenced friendship must be pending for the notification to be surfaced.
type FriendRequestData struct {
	SenderID        uint `json:"senderId"`
	FriendshipID    uint `json:"friendshipId"`
	TargetProfileID uint `json:"targetProfileId"`
}

// FriendAcceptedData mirrors FriendRequestData so validity checks work the
// same way; the referenced friendship must be accepted.
type FriendAcceptedData struct {
	SenderID        uint `json:"senderId"`
	FriendshipID    uint `json:"friendshipId"`
	TargetProfileID uint `json:"targetProfileId"`
}

// PostLikeData is the payload of post_like notifications.
type PostLikeData struct {
	SenderID uint   `json:"senderId"`
	PostID   string `json:"postId"`
}

// PostCommentData is the payload of post_comment notifications.
type PostCommentData struct {
	SenderID  uint   `json:"senderId"`
	PostID    string `json:"postId"`
	CommentID uint   `json:"commentId"`
}

// ProfileInviteData is the payload of profile_invite notifications.
type ProfileInviteData struct {
	SenderID    uint   `json:"senderId"`
	ProfileType string `json:"profileType"`
}

// ProfileDeletedData is the payload of profile_deleted notifications.
// RestorationDeadline is an RFC-3339 timestamp.
type ProfileDeletedData struct {
	ProfileName         string `json:"profileName"`
	DeletedBy           uint   `json:"deletedBy"`
	RestorationDeadline string `json:"restorationDeadline"`
	CanRestore          bool   `json:"canRestore"`
}

// BookingRequestData is the payload of booking_request notifications.
type BookingRequestData struct {
	SenderID       uint   `json:"senderId"`
	BookingID      uint   `json:"bookingId"`
	VenueProfileID uint   `json:"venueProfileId"`
	EventDate      string `json:"eventDate"`
}

// BookingResponseData is the payload of booking_response notifications.
type BookingResponseData struct {
	SenderID        uint   `json:"senderId"`
	BookingID       uint   `json:"bookingId"`
	ArtistProfileID uint   `json:"artistProfileId"`
	Status          string `json:"status"`
}

// MarshalPayload encodes a typed payload into the JSON column type.
func MarshalPayload(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// FriendshipRef extracts the friendship reference from a friend_request or
// friend_accepted payload. Returns false when the payload cannot be decoded
// or carries no friendship id.
func (n *Notification) FriendshipRef() (FriendRequestData, bool) {
	var data FriendRequestData
	if len(n.Data) == 0 {
		return data, false
	}
	if err := json.Unmarshal(n.Data, &data); err != nil {
		return data, false
	}
	return data, data.FriendshipID != 0
}

// UserNotificationSetting is the per (user, type) email delivery preference.
// Absence of a row means email is enabled for that type.
type UserNotificationSetting struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"uniqueIndex:idx_user_notification_type"`
	Type         string    `json:"type" gorm:"size:40;uniqueIndex:idx_user_notification_type"`
	EmailEnabled bool      `json:"email_enabled" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateNotificationSettingRequest defines the request body for updating a per-type setting
type UpdateNotificationSettingRequest struct {
	Type         string `json:"type" validate:"required"`
	EmailEnabled *bool  `json:"email_enabled" validate:"required"`
}

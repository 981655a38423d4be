package models

import "time"

// Friendship statuses. "accepted" is terminal; "rejected" rows are purged
// after the configured retention window so the pair can try again.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

// Friendship is an edge between two profiles. At most one pending or accepted
// edge may exist per unordered (requester, addressee) pair. Rows referencing
// tombstoned profiles are removed by reconciliation, not on the live path.
type Friendship struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RequesterID uint      `json:"requester_id" gorm:"index"` // Profile ID of the requester
	AddresseeID uint      `json:"addressee_id" gorm:"index"` // Profile ID of the addressee
	Status      string    `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SendFriendRequestBody defines the request body for sending a friend request
type SendFriendRequestBody struct {
	RequesterProfileID uint `json:"requester_profile_id" validate:"required"`
	AddresseeProfileID uint `json:"addressee_profile_id" validate:"required"`
}

// RespondFriendRequestBody defines the request body for accepting/rejecting a friend request
type RespondFriendRequestBody struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

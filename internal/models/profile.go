package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile types determine which notifications are surfaced while the profile is active.
const (
	ProfileTypeAudience = "audience"
	ProfileTypeArtist   = "artist"
	ProfileTypeVenue    = "venue"
)

// Profile is an identity a user operates as. A user owns one or more profiles;
// exactly one is active per session. Deletion is a soft delete so the profile
// can be restored within the restoration window.
type Profile struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index"`
	Type        string         `json:"type" gorm:"size:20;index"` // audience, artist, venue
	DisplayName string         `json:"display_name"`
	Visibility  string         `json:"visibility" gorm:"size:20;default:'public'"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// CreateProfileRequest defines the request body for creating a profile
type CreateProfileRequest struct {
	Type        string `json:"type" validate:"required,oneof=audience artist venue"`
	DisplayName string `json:"display_name" validate:"required,min=2,max=80"`
	Visibility  string `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
}

// InviteProfileRequest defines the request body for inviting someone by email
type InviteProfileRequest struct {
	Email       string `json:"email" validate:"required,email"`
	ProfileType string `json:"profile_type" validate:"required,oneof=audience artist venue"`
}

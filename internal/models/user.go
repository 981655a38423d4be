package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model `json:"-"`
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name"`
	Email      string `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Password   string `json:"-"`                        // Store hashed password, ignore for JSON serialization
	// Global switch for email delivery; per-type settings narrow it further.
	EmailNotifications bool `json:"email_notifications" gorm:"default:true"`
}

// UserCompact is the summary shape embedded in enriched responses
type UserCompact struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ToCompact returns the summary representation of a user
func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Name: u.Name, Email: u.Email}
}

type UpdateUserRequest struct {
	Name               string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Email              string `json:"email,omitempty" validate:"omitempty,email"`
	EmailNotifications *bool  `json:"email_notifications,omitempty"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

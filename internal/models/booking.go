package models

import "time"

// Booking statuses
const (
	BookingPending  = "pending"
	BookingAccepted = "accepted"
	BookingDeclined = "declined"
)

// Booking is an event booking request from an artist profile to a venue profile.
type Booking struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ArtistProfileID uint      `json:"artist_profile_id" gorm:"index"`
	VenueProfileID  uint      `json:"venue_profile_id" gorm:"index"`
	EventDate       time.Time `json:"event_date"`
	Message         string    `json:"message"`
	Status          string    `json:"status" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateBookingRequest defines the request body for submitting a booking request
type CreateBookingRequest struct {
	ArtistProfileID uint   `json:"artist_profile_id" validate:"required"`
	VenueProfileID  uint   `json:"venue_profile_id" validate:"required"`
	EventDate       string `json:"event_date" validate:"required"`
	Message         string `json:"message,omitempty" validate:"omitempty,max=500"`
}

// RespondBookingRequest defines the request body for accepting/declining a booking
type RespondBookingRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted declined"`
}

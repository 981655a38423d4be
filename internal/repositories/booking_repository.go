package repositories

import (
	"github.com/resonant-live/resonant/backend/internal/models"
	"gorm.io/gorm"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	CreateBooking(booking *models.Booking) error
	GetBookingByID(id uint) (*models.Booking, error)
	GetBookingsForVenue(venueProfileID uint) ([]models.Booking, error)
	GetBookingsForArtist(artistProfileID uint) ([]models.Booking, error)
	UpdateStatus(id uint, status string) error
}

// PostgresBookingRepository implements BookingRepository for PostgreSQL
type PostgresBookingRepository struct {
	db *gorm.DB
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(db *gorm.DB) *PostgresBookingRepository {
	return &PostgresBookingRepository{db: db}
}

// CreateBooking creates a new booking request
func (r *PostgresBookingRepository) CreateBooking(booking *models.Booking) error {
	return r.db.Create(booking).Error
}

// GetBookingByID retrieves a booking by ID
func (r *PostgresBookingRepository) GetBookingByID(id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsForVenue retrieves bookings addressed to a venue profile
func (r *PostgresBookingRepository) GetBookingsForVenue(venueProfileID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := r.db.Where("venue_profile_id = ?", venueProfileID).Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// GetBookingsForArtist retrieves bookings submitted by an artist profile
func (r *PostgresBookingRepository) GetBookingsForArtist(artistProfileID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := r.db.Where("artist_profile_id = ?", artistProfileID).Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateStatus updates the status of a booking
func (r *PostgresBookingRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Booking{}).Where("id = ?", id).Update("status", status).Error
}

package repositories

import (
	"github.com/resonant-live/resonant/backend/internal/models"
	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	CreateProfile(profile *models.Profile) error
	GetProfileByID(id uint) (*models.Profile, error)
	GetProfilesByUserID(userID uint) ([]models.Profile, error)
	GetProfilesByIDs(ids []uint) ([]models.Profile, error)
	DeleteProfile(id, userID uint) error
	ProfileExists(id uint) (bool, error)
}

// PostgresProfileRepository implements ProfileRepository for PostgreSQL
type PostgresProfileRepository struct {
	db *gorm.DB
}

// NewPostgresProfileRepository creates a new PostgresProfileRepository
func NewPostgresProfileRepository(db *gorm.DB) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// CreateProfile creates a new profile
func (r *PostgresProfileRepository) CreateProfile(profile *models.Profile) error {
	return r.db.Create(profile).Error
}

// GetProfileByID retrieves a profile by ID. Tombstoned profiles are not returned.
func (r *PostgresProfileRepository) GetProfileByID(id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfilesByUserID retrieves all live profiles owned by a user
func (r *PostgresProfileRepository) GetProfilesByUserID(userID uint) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.Where("user_id = ?", userID).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfilesByIDs retrieves live profiles by a set of IDs
func (r *PostgresProfileRepository) GetProfilesByIDs(ids []uint) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// DeleteProfile soft-deletes a profile scoped to its owner. Matching zero rows
// is not an error.
func (r *PostgresProfileRepository) DeleteProfile(id, userID uint) error {
	return r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Profile{}).Error
}

// ProfileExists reports whether a live (non-tombstoned) profile exists
func (r *PostgresProfileRepository) ProfileExists(id uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Profile{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

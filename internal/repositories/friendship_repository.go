package repositories

import (
	"time"

	"github.com/resonant-live/resonant/backend/internal/models"
	"gorm.io/gorm"
)

// FriendshipRepository defines the interface for friendship data operations
type FriendshipRepository interface {
	CreateFriendship(f *models.Friendship) error
	GetFriendshipByID(id uint) (*models.Friendship, error)
	GetFriendshipBetween(profileA, profileB uint) (*models.Friendship, error)
	GetFriendshipsByIDs(ids []uint) ([]models.Friendship, error)
	GetPendingForProfile(profileID uint) ([]models.Friendship, error)
	GetPendingFriendships() ([]models.Friendship, error)
	GetAcceptedForProfile(profileID uint) ([]models.Friendship, error)
	CountPending() (int64, error)
	UpdateStatus(id uint, status string) error
	DeleteFriendship(id uint) error
	DeleteRejectedBefore(cutoff time.Time) (int64, error)
}

// PostgresFriendshipRepository implements FriendshipRepository for PostgreSQL
type PostgresFriendshipRepository struct {
	db *gorm.DB
}

// NewPostgresFriendshipRepository creates a new PostgresFriendshipRepository
func NewPostgresFriendshipRepository(db *gorm.DB) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{db: db}
}

// CreateFriendship creates a new friendship edge
func (r *PostgresFriendshipRepository) CreateFriendship(f *models.Friendship) error {
	return r.db.Create(f).Error
}

// GetFriendshipByID retrieves a friendship by ID
func (r *PostgresFriendshipRepository) GetFriendshipByID(id uint) (*models.Friendship, error) {
	var f models.Friendship
	if err := r.db.First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFriendshipBetween retrieves the live edge between two profiles in either
// direction, ignoring rejected rows awaiting purge.
func (r *PostgresFriendshipRepository) GetFriendshipBetween(profileA, profileB uint) (*models.Friendship, error) {
	var f models.Friendship
	err := r.db.Where(
		"((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)) AND status IN ?",
		profileA, profileB, profileB, profileA,
		[]string{models.FriendshipPending, models.FriendshipAccepted},
	).First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFriendshipsByIDs retrieves friendships by a set of IDs
func (r *PostgresFriendshipRepository) GetFriendshipsByIDs(ids []uint) ([]models.Friendship, error) {
	var friendships []models.Friendship
	if len(ids) == 0 {
		return friendships, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

// GetPendingForProfile retrieves pending requests addressed to a profile
func (r *PostgresFriendshipRepository) GetPendingForProfile(profileID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship
	if err := r.db.Where("addressee_id = ? AND status = ?", profileID, models.FriendshipPending).Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

// GetPendingFriendships retrieves every pending friendship
func (r *PostgresFriendshipRepository) GetPendingFriendships() ([]models.Friendship, error) {
	var friendships []models.Friendship
	if err := r.db.Where("status = ?", models.FriendshipPending).Find(&friendships).Error; err != nil {
		return nil, err
	}
	return friendships, nil
}

// GetAcceptedForProfile retrieves accepted friendships involving a profile
func (r *PostgresFriendshipRepository) GetAcceptedForProfile(profileID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship
	err := r.db.Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
		profileID, profileID, models.FriendshipAccepted).Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// CountPending counts pending friendships across the store
func (r *PostgresFriendshipRepository) CountPending() (int64, error) {
	var count int64
	err := r.db.Model(&models.Friendship{}).Where("status = ?", models.FriendshipPending).Count(&count).Error
	return count, err
}

// UpdateStatus updates the status of a friendship
func (r *PostgresFriendshipRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.Friendship{}).Where("id = ?", id).Update("status", status).Error
}

// DeleteFriendship deletes a friendship row
func (r *PostgresFriendshipRepository) DeleteFriendship(id uint) error {
	return r.db.Delete(&models.Friendship{}, id).Error
}

// DeleteRejectedBefore deletes rejected rows last updated before the cutoff,
// returning the pair to the "no edge" state.
func (r *PostgresFriendshipRepository) DeleteRejectedBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("status = ? AND updated_at < ?", models.FriendshipRejected, cutoff).Delete(&models.Friendship{})
	return res.RowsAffected, res.Error
}

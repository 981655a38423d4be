package repositories

import (
	"github.com/resonant-live/resonant/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationSettingRepository defines the interface for per-type email preferences
type NotificationSettingRepository interface {
	GetSettings(userID uint) ([]models.UserNotificationSetting, error)
	GetSetting(userID uint, notificationType string) (*models.UserNotificationSetting, error)
	UpsertSetting(userID uint, notificationType string, emailEnabled bool) (*models.UserNotificationSetting, error)
}

// PostgresNotificationSettingRepository implements NotificationSettingRepository for PostgreSQL
type PostgresNotificationSettingRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationSettingRepository creates a new PostgresNotificationSettingRepository
func NewPostgresNotificationSettingRepository(db *gorm.DB) *PostgresNotificationSettingRepository {
	return &PostgresNotificationSettingRepository{db: db}
}

// GetSettings retrieves all stored settings for a user
func (r *PostgresNotificationSettingRepository) GetSettings(userID uint) ([]models.UserNotificationSetting, error) {
	var settings []models.UserNotificationSetting
	if err := r.db.Where("user_id = ?", userID).Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// GetSetting retrieves the stored setting for a (user, type) pair, or
// gorm.ErrRecordNotFound when the default applies.
func (r *PostgresNotificationSettingRepository) GetSetting(userID uint, notificationType string) (*models.UserNotificationSetting, error) {
	var setting models.UserNotificationSetting
	err := r.db.Where("user_id = ? AND type = ?", userID, notificationType).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// UpsertSetting creates or updates the setting for a (user, type) pair
func (r *PostgresNotificationSettingRepository) UpsertSetting(userID uint, notificationType string, emailEnabled bool) (*models.UserNotificationSetting, error) {
	setting := models.UserNotificationSetting{
		UserID: userID,
		Type:   notificationType,
	}
	err := r.db.Where("user_id = ? AND type = ?", userID, notificationType).
		Assign(map[string]interface{}{"email_enabled": emailEnabled}).
		FirstOrCreate(&setting).Error
	if err != nil {
		return nil, err
	}
	setting.EmailEnabled = emailEnabled
	return &setting, nil
}

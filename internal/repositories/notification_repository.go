package repositories

import (
	"github.com/resonant-live/resonant/backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations.
// Ownership-scoped mutations (MarkAsRead, DeleteNotification) match zero rows
// silently when the notification does not belong to the user.
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	GetByRecipient(recipientID uint, types []string, limit, offset int) ([]models.Notification, error)
	GetUnreadByRecipient(recipientID uint, types []string) ([]models.Notification, error)
	GetByType(notificationType string) ([]models.Notification, error)
	MarkAsRead(notificationID, recipientID uint) error
	MarkAllAsRead(recipientID uint) error
	MarkEmailSent(notificationID uint) error
	UpdateData(notificationID uint, data datatypes.JSON) error
	DeleteNotification(notificationID, recipientID uint) error
	DeleteByID(notificationID uint) error
	DeleteAllOfType(notificationType string) (int64, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationRepository creates a NotificationRepository backed by PostgreSQL
func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// GetByRecipient returns a newest-first window of notifications for a user,
// optionally restricted to a set of types.
func (r *postgresNotificationRepository) GetByRecipient(recipientID uint, types []string, limit, offset int) ([]models.Notification, error) {
	var notifications []models.Notification
	query := r.db.Where("recipient_id = ?", recipientID)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error
	return notifications, err
}

// GetUnreadByRecipient returns every unread notification for a user, optionally
// restricted to a set of types. The caller applies the same context filter used
// for listing so the badge count and the list never disagree.
func (r *postgresNotificationRepository) GetUnreadByRecipient(recipientID uint, types []string) ([]models.Notification, error) {
	var notifications []models.Notification
	query := r.db.Where("recipient_id = ? AND read = ?", recipientID, false)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

// GetByType returns every notification of the given type across all users
func (r *postgresNotificationRepository) GetByType(notificationType string) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("type = ?", notificationType).Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) MarkAsRead(notificationID, recipientID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("read", true).Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(recipientID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true).Error
}

func (r *postgresNotificationRepository) MarkEmailSent(notificationID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Update("email_sent", true).Error
}

func (r *postgresNotificationRepository) UpdateData(notificationID uint, data datatypes.JSON) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Update("data", data).Error
}

func (r *postgresNotificationRepository) DeleteNotification(notificationID, recipientID uint) error {
	return r.db.Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Delete(&models.Notification{}).Error
}

func (r *postgresNotificationRepository) DeleteByID(notificationID uint) error {
	return r.db.Delete(&models.Notification{}, notificationID).Error
}

// DeleteAllOfType deletes every notification of the given type, returning the
// number of rows removed. Used by the orphan purge's global short-circuit.
func (r *postgresNotificationRepository) DeleteAllOfType(notificationType string) (int64, error) {
	res := r.db.Where("type = ?", notificationType).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

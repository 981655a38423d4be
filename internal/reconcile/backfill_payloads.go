package reconcile

import (
	"errors"

	"github.com/resonant-live/resonant/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BackfillNotificationPayloads patches legacy friend_request notifications
// whose payload lacks a targetProfileId, resolving it from the referenced
// friendship. Notifications whose friendship no longer exists are deleted.
func (r *Runner) BackfillNotificationPayloads() (Report, error) {
	var report Report

	notifications, err := r.notifications.GetByType(models.NotificationFriendRequest)
	if err != nil {
		return report, err
	}
	report.Scanned = len(notifications)

	for _, n := range notifications {
		ref, ok := n.FriendshipRef()
		if !ok {
			// Undecodable or missing friendship reference; nothing to patch
			// against, the orphan purge owns this case.
			continue
		}
		if ref.TargetProfileID != 0 {
			continue
		}

		friendship, err := r.friendships.GetFriendshipByID(ref.FriendshipID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := r.notifications.DeleteByID(n.ID); err != nil {
				return report, err
			}
			report.Deleted++
			r.logger.Info("deleted friend_request notification with dead friendship reference",
				zap.Uint("notification_id", n.ID),
				zap.Uint("friendship_id", ref.FriendshipID))
			continue
		}
		if err != nil {
			return report, err
		}

		ref.TargetProfileID = friendship.AddresseeID
		data, err := models.MarshalPayload(ref)
		if err != nil {
			return report, err
		}
		if err := r.notifications.UpdateData(n.ID, data); err != nil {
			return report, err
		}
		report.Patched++
		r.logger.Info("backfilled friend_request payload",
			zap.Uint("notification_id", n.ID),
			zap.Uint("target_profile_id", friendship.AddresseeID))
	}
	return report, nil
}

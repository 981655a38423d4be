package reconcile

import (
	"github.com/resonant-live/resonant/backend/internal/models"
	"go.uber.org/zap"
)

// PurgeOrphanNotifications deletes friend_request notifications that do not
// reference a currently-pending friendship. When zero pending friendships
// exist at all, every friend_request notification is deleted unconditionally.
func (r *Runner) PurgeOrphanNotifications() (Report, error) {
	var report Report

	pendingCount, err := r.friendships.CountPending()
	if err != nil {
		return report, err
	}

	if pendingCount == 0 {
		deleted, err := r.notifications.DeleteAllOfType(models.NotificationFriendRequest)
		if err != nil {
			return report, err
		}
		report.Deleted = int(deleted)
		if report.Deleted > 0 {
			r.logger.Info("no pending friendships exist, purged all friend_request notifications",
				zap.Int("deleted", report.Deleted))
		}
		return report, nil
	}

	notifications, err := r.notifications.GetByType(models.NotificationFriendRequest)
	if err != nil {
		return report, err
	}
	report.Scanned = len(notifications)

	pending, err := r.friendships.GetPendingFriendships()
	if err != nil {
		return report, err
	}
	pendingByID := make(map[uint]bool, len(pending))
	for _, f := range pending {
		pendingByID[f.ID] = true
	}

	for _, n := range notifications {
		ref, ok := n.FriendshipRef()
		if ok && pendingByID[ref.FriendshipID] {
			continue
		}
		if err := r.notifications.DeleteByID(n.ID); err != nil {
			return report, err
		}
		report.Deleted++
		r.logger.Info("deleted orphaned friend_request notification",
			zap.Uint("notification_id", n.ID),
			zap.Uint("friendship_id", ref.FriendshipID))
	}
	return report, nil
}

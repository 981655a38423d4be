package reconcile

import (
	"errors"

	"github.com/resonant-live/resonant/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SyncFriendshipNotifications synthesizes a friend_request notification for
// every pending friendship that lacks one, using the same constructor as the
// live path. Running it against a consistent store creates nothing.
func (r *Runner) SyncFriendshipNotifications() (Report, error) {
	var report Report

	pending, err := r.friendships.GetPendingFriendships()
	if err != nil {
		return report, err
	}
	report.Scanned = len(pending)
	if len(pending) == 0 {
		return report, nil
	}

	notifications, err := r.notifications.GetByType(models.NotificationFriendRequest)
	if err != nil {
		return report, err
	}
	notified := make(map[uint]bool, len(notifications))
	for _, n := range notifications {
		if ref, ok := n.FriendshipRef(); ok {
			notified[ref.FriendshipID] = true
		}
	}

	for _, f := range pending {
		if notified[f.ID] {
			continue
		}

		requester, err := r.profileByID(f.RequesterID)
		if err != nil {
			return report, err
		}
		addressee, err := r.profileByID(f.AddresseeID)
		if err != nil {
			return report, err
		}
		if requester == nil || addressee == nil {
			// Edge references a missing profile; the orphan-friendship purge
			// owns this case.
			r.logger.Warn("skipping pending friendship with missing profile",
				zap.Uint("friendship_id", f.ID))
			continue
		}

		if _, err := r.notifier.NotifyFriendRequest(requester, addressee, f.ID); err != nil {
			return report, err
		}
		report.Created++
		r.logger.Info("synthesized missing friend_request notification",
			zap.Uint("friendship_id", f.ID),
			zap.Uint("recipient_id", addressee.UserID))
	}
	return report, nil
}

func (r *Runner) profileByID(id uint) (*models.Profile, error) {
	profile, err := r.profiles.GetProfileByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

package reconcile

import (
	"time"

	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/services"
	"go.uber.org/zap"
)

// Report summarizes what a reconciliation pass did. Re-running a pass against
// an already-consistent store must report zero mutations.
type Report struct {
	Scanned int
	Deleted int
	Created int
	Patched int
}

// Runner executes the reconciliation procedures over the same repositories the
// live path uses. Each procedure is idempotent and safe to re-run after a
// partial failure; there is no rollback, the retry is the repair.
type Runner struct {
	notifications repositories.NotificationRepository
	friendships   repositories.FriendshipRepository
	profiles      repositories.ProfileRepository
	notifier      *services.NotificationService
	logger        *zap.Logger
	rejectedTTL   time.Duration
}

// NewRunner creates a reconciliation Runner. rejectedTTL is the retention
// window for rejected friendship rows.
func NewRunner(
	notifications repositories.NotificationRepository,
	friendships repositories.FriendshipRepository,
	profiles repositories.ProfileRepository,
	notifier *services.NotificationService,
	logger *zap.Logger,
	rejectedTTL time.Duration,
) *Runner {
	return &Runner{
		notifications: notifications,
		friendships:   friendships,
		profiles:      profiles,
		notifier:      notifier,
		logger:        logger,
		rejectedTTL:   rejectedTTL,
	}
}

// RunAll executes every procedure in dependency order: edges are repaired
// before the notifications that reference them.
func (r *Runner) RunAll() (Report, error) {
	var total Report
	passes := []struct {
		name string
		run  func() (Report, error)
	}{
		{"orphan-friendships", r.PurgeOrphanFriendships},
		{"stale-rejections", r.PurgeStaleRejections},
		{"orphan-notifications", r.PurgeOrphanNotifications},
		{"backfill-payloads", r.BackfillNotificationPayloads},
		{"sync-notifications", r.SyncFriendshipNotifications},
	}
	for _, pass := range passes {
		report, err := pass.run()
		if err != nil {
			return total, err
		}
		r.logger.Info("reconciliation pass complete",
			zap.String("pass", pass.name),
			zap.Int("scanned", report.Scanned),
			zap.Int("deleted", report.Deleted),
			zap.Int("created", report.Created),
			zap.Int("patched", report.Patched))
		total.Scanned += report.Scanned
		total.Deleted += report.Deleted
		total.Created += report.Created
		total.Patched += report.Patched
	}
	return total, nil
}

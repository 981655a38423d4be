package reconcile

import (
	"time"

	"go.uber.org/zap"
)

// PurgeStaleRejections deletes rejected friendship rows older than the
// retention window, returning each pair to the "no edge" state so a new
// request can be sent.
func (r *Runner) PurgeStaleRejections() (Report, error) {
	var report Report

	cutoff := time.Now().Add(-r.rejectedTTL)
	deleted, err := r.friendships.DeleteRejectedBefore(cutoff)
	if err != nil {
		return report, err
	}
	report.Deleted = int(deleted)
	if report.Deleted > 0 {
		r.logger.Info("purged stale rejected friendships",
			zap.Int("deleted", report.Deleted),
			zap.Time("cutoff", cutoff))
	}
	return report, nil
}

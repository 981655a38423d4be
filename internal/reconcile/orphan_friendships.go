package reconcile

import (
	"go.uber.org/zap"
)

// PurgeOrphanFriendships deletes pending friendships whose requester or
// addressee profile no longer exists (tombstoned profiles count as gone).
func (r *Runner) PurgeOrphanFriendships() (Report, error) {
	var report Report

	pending, err := r.friendships.GetPendingFriendships()
	if err != nil {
		return report, err
	}
	report.Scanned = len(pending)

	// Existence checks are memoized per pass; a profile appears in many edges.
	exists := make(map[uint]bool)
	checked := make(map[uint]bool)
	profileExists := func(id uint) (bool, error) {
		if checked[id] {
			return exists[id], nil
		}
		ok, err := r.profiles.ProfileExists(id)
		if err != nil {
			return false, err
		}
		checked[id] = true
		exists[id] = ok
		return ok, nil
	}

	for _, f := range pending {
		requesterOK, err := profileExists(f.RequesterID)
		if err != nil {
			return report, err
		}
		addresseeOK, err := profileExists(f.AddresseeID)
		if err != nil {
			return report, err
		}
		if requesterOK && addresseeOK {
			continue
		}
		if err := r.friendships.DeleteFriendship(f.ID); err != nil {
			return report, err
		}
		report.Deleted++
		r.logger.Info("deleted orphaned friendship",
			zap.Uint("friendship_id", f.ID),
			zap.Uint("requester_id", f.RequesterID),
			zap.Uint("addressee_id", f.AddresseeID))
	}
	return report, nil
}

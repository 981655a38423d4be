package services

import (
	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"go.uber.org/zap"
)

// ProfileService owns profile lifecycle operations that produce notifications.
type ProfileService struct {
	profiles      repositories.ProfileRepository
	friendships   repositories.FriendshipRepository
	notifications *NotificationService
	logger        *zap.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(
	profiles repositories.ProfileRepository,
	friendships repositories.FriendshipRepository,
	notifications *NotificationService,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		profiles:      profiles,
		friendships:   friendships,
		notifications: notifications,
		logger:        logger,
	}
}

// DeleteProfile tombstones a profile owned by the actor and fans out
// profile_deleted notifications to the owners of its accepted friends. The
// friendship edges themselves are left for reconciliation to remove.
func (s *ProfileService) DeleteProfile(profileID, actorUserID uint) error {
	profile, err := s.profiles.GetProfileByID(profileID)
	if err != nil {
		return err
	}
	if profile.UserID != actorUserID {
		return ErrNotProfileOwner
	}

	recipients, err := s.friendOwnerIDs(profile)
	if err != nil {
		s.logger.Warn("could not resolve friend owners for deletion fan-out",
			zap.Uint("profile_id", profileID), zap.Error(err))
	}

	if err := s.profiles.DeleteProfile(profileID, actorUserID); err != nil {
		return err
	}

	s.notifications.NotifyProfileDeleted(profile.DisplayName, actorUserID, recipients)
	return nil
}

// friendOwnerIDs returns the owning user ids of the profile's accepted
// friends, excluding the profile's own user.
func (s *ProfileService) friendOwnerIDs(profile *models.Profile) ([]uint, error) {
	accepted, err := s.friendships.GetAcceptedForProfile(profile.ID)
	if err != nil {
		return nil, err
	}

	var counterpartIDs []uint
	for _, f := range accepted {
		if f.RequesterID == profile.ID {
			counterpartIDs = append(counterpartIDs, f.AddresseeID)
		} else {
			counterpartIDs = append(counterpartIDs, f.RequesterID)
		}
	}

	counterparts, err := s.profiles.GetProfilesByIDs(counterpartIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	var recipients []uint
	for _, p := range counterparts {
		if p.UserID == profile.UserID || seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		recipients = append(recipients, p.UserID)
	}
	return recipients, nil
}

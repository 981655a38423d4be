package services

import (
	"errors"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/ws"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSelfFriendRequest = errors.New("cannot send a friend request to your own profile")
	ErrRequestPending    = errors.New("a pending friend request already exists between these profiles")
	ErrAlreadyFriends    = errors.New("profiles are already friends")
	ErrNotProfileOwner   = errors.New("profile does not belong to the authenticated user")
	ErrNotPending        = errors.New("friend request is no longer pending")
)

// FriendshipService drives the friendship state machine. Each transition and
// its notification side effects commit in a single transaction, so a
// friendship row and its friend_request notification cannot drift on the live
// path; the reconcile jobs remain as a defensive audit.
type FriendshipService struct {
	db            *gorm.DB
	profiles      repositories.ProfileRepository
	friendships   repositories.FriendshipRepository
	notifications *NotificationService
	events        Broadcaster
	logger        *zap.Logger
}

// NewFriendshipService creates a new FriendshipService
func NewFriendshipService(
	db *gorm.DB,
	profiles repositories.ProfileRepository,
	friendships repositories.FriendshipRepository,
	notifications *NotificationService,
	events Broadcaster,
	logger *zap.Logger,
) *FriendshipService {
	return &FriendshipService{
		db:            db,
		profiles:      profiles,
		friendships:   friendships,
		notifications: notifications,
		events:        events,
		logger:        logger,
	}
}

// SendRequest transitions the (requester, addressee) pair from none to
// pending: exactly one friendship row and exactly one friend_request
// notification, committed together.
func (s *FriendshipService) SendRequest(requesterProfileID, addresseeProfileID, actorUserID uint) (*models.Friendship, error) {
	if requesterProfileID == addresseeProfileID {
		return nil, ErrSelfFriendRequest
	}

	requester, err := s.profiles.GetProfileByID(requesterProfileID)
	if err != nil {
		return nil, err
	}
	if requester.UserID != actorUserID {
		return nil, ErrNotProfileOwner
	}
	addressee, err := s.profiles.GetProfileByID(addresseeProfileID)
	if err != nil {
		return nil, err
	}

	existing, err := s.friendships.GetFriendshipBetween(requesterProfileID, addresseeProfileID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.FriendshipAccepted {
			return nil, ErrAlreadyFriends
		}
		return nil, ErrRequestPending
	}

	friendship := &models.Friendship{
		RequesterID: requesterProfileID,
		AddresseeID: addresseeProfileID,
		Status:      models.FriendshipPending,
	}
	var notification *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(friendship).Error; err != nil {
			return err
		}
		notification, err = BuildFriendRequestNotification(requester, addressee, friendship.ID)
		if err != nil {
			return err
		}
		return tx.Create(notification).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Dispatch(notification)
	s.events.Emit(addressee.UserID, ws.EventFriendRequestSent, friendship)
	return friendship, nil
}

// Respond transitions a pending friendship to accepted or rejected. The status
// update, the removal of the originating friend_request notification, and (on
// accept) the friend_accepted notification commit together.
func (s *FriendshipService) Respond(friendshipID, actorUserID uint, status string) (*models.Friendship, error) {
	if status != models.FriendshipAccepted && status != models.FriendshipRejected {
		return nil, errors.New("status must be accepted or rejected")
	}

	friendship, err := s.friendships.GetFriendshipByID(friendshipID)
	if err != nil {
		return nil, err
	}
	if friendship.Status != models.FriendshipPending {
		return nil, ErrNotPending
	}

	addressee, err := s.profiles.GetProfileByID(friendship.AddresseeID)
	if err != nil {
		return nil, err
	}
	if addressee.UserID != actorUserID {
		return nil, ErrNotProfileOwner
	}

	// The requester's profile may have been tombstoned since the request was
	// sent; the transition still applies, only the accepted notification is
	// skipped and the orphan purge removes the edge later.
	requester, err := s.profiles.GetProfileByID(friendship.RequesterID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var accepted *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Friendship{}).Where("id = ?", friendship.ID).
			Update("status", status).Error; err != nil {
			return err
		}
		if err := deleteFriendRequestNotifications(tx, addressee.UserID, friendship.ID); err != nil {
			return err
		}
		if status == models.FriendshipAccepted && requester != nil {
			accepted, err = BuildFriendAcceptedNotification(addressee, requester, friendship.ID)
			if err != nil {
				return err
			}
			return tx.Create(accepted).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	friendship.Status = status
	if accepted != nil {
		s.notifications.Dispatch(accepted)
		s.events.Emit(requester.UserID, ws.EventFriendRequestAccepted, friendship)
	}
	return friendship, nil
}

// deleteFriendRequestNotifications removes the recipient's friend_request
// notifications referencing the friendship. Payloads are matched in process
// because the data column is opaque to SQL portability.
func deleteFriendRequestNotifications(tx *gorm.DB, recipientID, friendshipID uint) error {
	var candidates []models.Notification
	err := tx.Where("recipient_id = ? AND type = ?", recipientID, models.NotificationFriendRequest).
		Find(&candidates).Error
	if err != nil {
		return err
	}
	for _, n := range candidates {
		ref, ok := n.FriendshipRef()
		if !ok || ref.FriendshipID != friendshipID {
			continue
		}
		if err := tx.Delete(&models.Notification{}, n.ID).Error; err != nil {
			return err
		}
	}
	return nil
}

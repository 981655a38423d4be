package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/ws"
	"github.com/resonant-live/resonant/backend/pkg/mailer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// relevantTypes maps an active profile type to the notification types surfaced
// while that profile is worn. Booking negotiation never reaches audience
// profiles.
var relevantTypes = map[string][]string{
	models.ProfileTypeArtist: models.AllNotificationTypes,
	models.ProfileTypeVenue:  models.AllNotificationTypes,
	models.ProfileTypeAudience: {
		models.NotificationFriendRequest,
		models.NotificationFriendAccepted,
		models.NotificationProfileInvite,
		models.NotificationProfileDeleted,
		models.NotificationPostLike,
		models.NotificationPostComment,
	},
}

// RelevantTypes returns the notification types surfaced for an active profile
// type, or nil when no context is supplied (no type restriction).
func RelevantTypes(profileType string) []string {
	return relevantTypes[profileType]
}

// NotificationWithSender is a notification enriched with a sender summary
type NotificationWithSender struct {
	models.Notification
	Sender *models.UserCompact `json:"sender,omitempty"`
}

// NotificationService produces, filters, and counts notifications, and owns
// the email delivery gate.
type NotificationService struct {
	notifications repositories.NotificationRepository
	friendships   repositories.FriendshipRepository
	users         repositories.UserRepository
	settings      repositories.NotificationSettingRepository
	mailer        mailer.EmailNotifier
	events        Broadcaster
	logger        *zap.Logger
	restoreWindow time.Duration
}

// NewNotificationService creates a new NotificationService. restoreWindow is
// the profile restoration window used for profile_deleted deadlines.
func NewNotificationService(
	notifications repositories.NotificationRepository,
	friendships repositories.FriendshipRepository,
	users repositories.UserRepository,
	settings repositories.NotificationSettingRepository,
	emailNotifier mailer.EmailNotifier,
	events Broadcaster,
	logger *zap.Logger,
	restoreWindow time.Duration,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		friendships:   friendships,
		users:         users,
		settings:      settings,
		mailer:        emailNotifier,
		events:        events,
		logger:        logger,
		restoreWindow: restoreWindow,
	}
}

// Create inserts a notification row, emits it to connected sessions, and sends
// an email copy when the recipient's preferences allow it. Email failures are
// logged, never surfaced.
func (s *NotificationService) Create(recipientID uint, senderID *uint, notificationType, title, message string, payload interface{}) (*models.Notification, error) {
	data, err := models.MarshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", notificationType, err)
	}

	n := &models.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notificationType,
		Title:       title,
		Message:     message,
		Data:        data,
	}
	if err := s.notifications.CreateNotification(n); err != nil {
		return nil, err
	}

	s.Dispatch(n)
	return n, nil
}

// Dispatch delivers an already-persisted notification: socket emit plus the
// preference-gated email copy. Used directly by callers that persist the row
// inside their own transaction.
func (s *NotificationService) Dispatch(n *models.Notification) {
	s.events.Emit(n.RecipientID, ws.EventNotificationReceived, n)
	s.sendEmailCopy(n)
}

func (s *NotificationService) sendEmailCopy(n *models.Notification) {
	user, err := s.users.GetUserByID(n.RecipientID)
	if err != nil {
		s.logger.Warn("email copy skipped, recipient lookup failed",
			zap.Uint("recipient_id", n.RecipientID), zap.Error(err))
		return
	}
	if !user.EmailNotifications {
		return
	}
	if !s.emailEnabledForType(user.ID, n.Type) {
		return
	}

	result := s.mailer.SendNotificationEmail(user.Email, user.Name, n.Title, n.Message, n.Type, n.Data)
	if !result.Success {
		// Recorded as email_sent=false, never retried.
		s.logger.Warn("notification email not delivered",
			zap.Uint("notification_id", n.ID), zap.String("error", result.Error))
		return
	}
	if err := s.notifications.MarkEmailSent(n.ID); err != nil {
		s.logger.Warn("failed to record email delivery", zap.Uint("notification_id", n.ID), zap.Error(err))
		return
	}
	n.EmailSent = true
}

// emailEnabledForType checks the per-type preference; absent rows mean enabled.
func (s *NotificationService) emailEnabledForType(userID uint, notificationType string) bool {
	setting, err := s.settings.GetSetting(userID, notificationType)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("notification setting lookup failed",
				zap.Uint("user_id", userID), zap.String("type", notificationType), zap.Error(err))
		}
		return true
	}
	return setting.EmailEnabled
}

// GetUserNotifications returns a newest-first window of the user's
// notifications with sender summaries. When an active profile context is
// supplied, results are restricted to types relevant to that profile type and
// a validity pass drops friend notifications whose referenced friendship is no
// longer in the matching state.
func (s *NotificationService) GetUserNotifications(userID uint, limit, offset int, activeProfileID uint, activeProfileType string) ([]NotificationWithSender, error) {
	notifications, err := s.notifications.GetByRecipient(userID, RelevantTypes(activeProfileType), limit, offset)
	if err != nil {
		return nil, err
	}
	filtered, err := s.filterForContext(notifications, activeProfileType)
	if err != nil {
		return nil, err
	}
	return s.attachSenders(filtered), nil
}

// GetUnreadCount counts unread notifications through the exact same filter
// pass used by GetUserNotifications, so badge and list never disagree.
func (s *NotificationService) GetUnreadCount(userID uint, activeProfileID uint, activeProfileType string) (int, error) {
	unread, err := s.notifications.GetUnreadByRecipient(userID, RelevantTypes(activeProfileType))
	if err != nil {
		return 0, err
	}
	filtered, err := s.filterForContext(unread, activeProfileType)
	if err != nil {
		return 0, err
	}
	return len(filtered), nil
}

// filterForContext applies the second filtering pass for an active profile
// context: friend notifications must reference a live friendship in the
// matching status, booking_request is venue-only and booking_response is
// artist-only. Without a context the list is returned as-is.
func (s *NotificationService) filterForContext(notifications []models.Notification, activeProfileType string) ([]models.Notification, error) {
	if activeProfileType == "" {
		return notifications, nil
	}

	var friendshipIDs []uint
	for i := range notifications {
		n := &notifications[i]
		if n.Type != models.NotificationFriendRequest && n.Type != models.NotificationFriendAccepted {
			continue
		}
		if ref, ok := n.FriendshipRef(); ok {
			friendshipIDs = append(friendshipIDs, ref.FriendshipID)
		}
	}

	statusByID := make(map[uint]string, len(friendshipIDs))
	if len(friendshipIDs) > 0 {
		friendships, err := s.friendships.GetFriendshipsByIDs(friendshipIDs)
		if err != nil {
			return nil, err
		}
		for _, f := range friendships {
			statusByID[f.ID] = f.Status
		}
	}

	filtered := notifications[:0]
	for _, n := range notifications {
		switch n.Type {
		case models.NotificationFriendRequest:
			ref, ok := n.FriendshipRef()
			if !ok || statusByID[ref.FriendshipID] != models.FriendshipPending {
				continue
			}
		case models.NotificationFriendAccepted:
			ref, ok := n.FriendshipRef()
			if !ok || statusByID[ref.FriendshipID] != models.FriendshipAccepted {
				continue
			}
		case models.NotificationBookingRequest:
			if activeProfileType != models.ProfileTypeVenue {
				continue
			}
		case models.NotificationBookingResponse:
			if activeProfileType != models.ProfileTypeArtist {
				continue
			}
		}
		filtered = append(filtered, n)
	}
	return filtered, nil
}

// attachSenders resolves sender summaries with a per-call cache
func (s *NotificationService) attachSenders(notifications []models.Notification) []NotificationWithSender {
	enriched := make([]NotificationWithSender, len(notifications))
	cache := make(map[uint]models.UserCompact)

	for i, n := range notifications {
		enriched[i] = NotificationWithSender{Notification: n}
		if n.SenderID == nil {
			continue
		}
		if sender, ok := cache[*n.SenderID]; ok {
			enriched[i].Sender = &sender
			continue
		}
		user, err := s.users.GetUserByID(*n.SenderID)
		if err != nil {
			continue
		}
		compact := user.ToCompact()
		cache[*n.SenderID] = compact
		enriched[i].Sender = &compact
	}
	return enriched
}

// MarkAsRead marks one of the user's notifications as read. Ids that do not
// belong to the user match zero rows and are not an error.
func (s *NotificationService) MarkAsRead(notificationID, userID uint) error {
	if err := s.notifications.MarkAsRead(notificationID, userID); err != nil {
		return err
	}
	s.events.Emit(userID, ws.EventNotificationRead, map[string]uint{"id": notificationID})
	return nil
}

// MarkAllAsRead marks every unread notification of the user as read
func (s *NotificationService) MarkAllAsRead(userID uint) error {
	if err := s.notifications.MarkAllAsRead(userID); err != nil {
		return err
	}
	s.events.Emit(userID, ws.EventNotificationRead, map[string]interface{}{"all": true})
	return nil
}

// DeleteNotification deletes one of the user's notifications, with the same
// ownership scoping as MarkAsRead.
func (s *NotificationService) DeleteNotification(notificationID, userID uint) error {
	return s.notifications.DeleteNotification(notificationID, userID)
}

// GetUserNotificationSettings returns the user's per-type email preferences
// with defaults materialized for every known type.
func (s *NotificationService) GetUserNotificationSettings(userID uint) ([]models.UserNotificationSetting, error) {
	stored, err := s.settings.GetSettings(userID)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]models.UserNotificationSetting, len(stored))
	for _, setting := range stored {
		byType[setting.Type] = setting
	}

	settings := make([]models.UserNotificationSetting, 0, len(models.AllNotificationTypes))
	for _, notificationType := range models.AllNotificationTypes {
		if setting, ok := byType[notificationType]; ok {
			settings = append(settings, setting)
			continue
		}
		settings = append(settings, models.UserNotificationSetting{
			UserID:       userID,
			Type:         notificationType,
			EmailEnabled: true,
		})
	}
	return settings, nil
}

// UpdateNotificationSettings upserts the per-type email preference
func (s *NotificationService) UpdateNotificationSettings(userID uint, notificationType string, emailEnabled bool) (*models.UserNotificationSetting, error) {
	known := false
	for _, t := range models.AllNotificationTypes {
		if t == notificationType {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown notification type %q", notificationType)
	}
	return s.settings.UpsertSetting(userID, notificationType, emailEnabled)
}

// BuildFriendRequestNotification composes the friend_request notification for
// a pending friendship. Shared by the live path and the sync audit job so
// synthesized rows are indistinguishable from live ones.
func BuildFriendRequestNotification(requester, addressee *models.Profile, friendshipID uint) (*models.Notification, error) {
	data, err := models.MarshalPayload(models.FriendRequestData{
		SenderID:        requester.UserID,
		FriendshipID:    friendshipID,
		TargetProfileID: addressee.ID,
	})
	if err != nil {
		return nil, err
	}
	senderID := requester.UserID
	return &models.Notification{
		RecipientID: addressee.UserID,
		SenderID:    &senderID,
		Type:        models.NotificationFriendRequest,
		Title:       "New friend request",
		Message:     fmt.Sprintf("%s wants to connect with you", requester.DisplayName),
		Data:        data,
	}, nil
}

// BuildFriendAcceptedNotification composes the friend_accepted notification
// sent back to the original requester.
func BuildFriendAcceptedNotification(accepter, requester *models.Profile, friendshipID uint) (*models.Notification, error) {
	data, err := models.MarshalPayload(models.FriendAcceptedData{
		SenderID:        accepter.UserID,
		FriendshipID:    friendshipID,
		TargetProfileID: requester.ID,
	})
	if err != nil {
		return nil, err
	}
	senderID := accepter.UserID
	return &models.Notification{
		RecipientID: requester.UserID,
		SenderID:    &senderID,
		Type:        models.NotificationFriendAccepted,
		Title:       "Friend request accepted",
		Message:     fmt.Sprintf("%s accepted your friend request", accepter.DisplayName),
		Data:        data,
	}, nil
}

// NotifyFriendRequest creates and dispatches a friend_request notification.
// Used by the sync audit job; the live path persists the same built row inside
// the friendship transaction.
func (s *NotificationService) NotifyFriendRequest(requester, addressee *models.Profile, friendshipID uint) (*models.Notification, error) {
	n, err := BuildFriendRequestNotification(requester, addressee, friendshipID)
	if err != nil {
		return nil, err
	}
	if err := s.notifications.CreateNotification(n); err != nil {
		return nil, err
	}
	s.Dispatch(n)
	return n, nil
}

// NotifyFriendAccepted creates and dispatches a friend_accepted notification
func (s *NotificationService) NotifyFriendAccepted(accepter, requester *models.Profile, friendshipID uint) (*models.Notification, error) {
	n, err := BuildFriendAcceptedNotification(accepter, requester, friendshipID)
	if err != nil {
		return nil, err
	}
	if err := s.notifications.CreateNotification(n); err != nil {
		return nil, err
	}
	s.Dispatch(n)
	return n, nil
}

// NotifyPostLike notifies a post owner that someone liked their post
func (s *NotificationService) NotifyPostLike(sender *models.User, recipientID uint, postID string) (*models.Notification, error) {
	return s.Create(recipientID, &sender.ID, models.NotificationPostLike,
		"New like",
		fmt.Sprintf("%s liked your post", sender.Name),
		models.PostLikeData{SenderID: sender.ID, PostID: postID})
}

// NotifyPostComment notifies a post owner that someone commented on their post
func (s *NotificationService) NotifyPostComment(sender *models.User, recipientID uint, postID string, commentID uint) (*models.Notification, error) {
	return s.Create(recipientID, &sender.ID, models.NotificationPostComment,
		"New comment",
		fmt.Sprintf("%s commented on your post", sender.Name),
		models.PostCommentData{SenderID: sender.ID, PostID: postID, CommentID: commentID})
}

// NotifyProfileInvite invites a user, resolved by email, to create a profile.
// Silently no-ops when no user has that email.
func (s *NotificationService) NotifyProfileInvite(sender *models.User, email, profileType string) (*models.Notification, error) {
	recipient, err := s.users.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.Create(recipient.ID, &sender.ID, models.NotificationProfileInvite,
		"Profile invitation",
		fmt.Sprintf("%s invited you to create a %s profile", sender.Name, profileType),
		models.ProfileInviteData{SenderID: sender.ID, ProfileType: profileType})
}

// NotifyProfileDeleted fans out a profile_deleted notification to the given
// recipients, each payload carrying the computed restoration deadline.
// Individual failures are logged and the fan-out continues.
func (s *NotificationService) NotifyProfileDeleted(profileName string, deletedBy uint, recipientIDs []uint) {
	deadline := time.Now().Add(s.restoreWindow).UTC().Format(time.RFC3339)
	payload := models.ProfileDeletedData{
		ProfileName:         profileName,
		DeletedBy:           deletedBy,
		RestorationDeadline: deadline,
		CanRestore:          true,
	}
	for _, recipientID := range recipientIDs {
		_, err := s.Create(recipientID, nil, models.NotificationProfileDeleted,
			"Profile deleted",
			fmt.Sprintf("The profile %s has been deleted", profileName),
			payload)
		if err != nil {
			s.logger.Error("profile_deleted fan-out failed",
				zap.Uint("recipient_id", recipientID), zap.Error(err))
		}
	}
}

// NotifyBookingRequest notifies a venue owner of a new booking request
func (s *NotificationService) NotifyBookingRequest(artist, venue *models.Profile, booking *models.Booking) (*models.Notification, error) {
	return s.Create(venue.UserID, &artist.UserID, models.NotificationBookingRequest,
		"New booking request",
		fmt.Sprintf("%s requested to play at %s", artist.DisplayName, venue.DisplayName),
		models.BookingRequestData{
			SenderID:       artist.UserID,
			BookingID:      booking.ID,
			VenueProfileID: venue.ID,
			EventDate:      booking.EventDate.UTC().Format(time.RFC3339),
		})
}

// NotifyBookingResponse notifies an artist owner of a booking decision
func (s *NotificationService) NotifyBookingResponse(venue, artist *models.Profile, booking *models.Booking, status string) (*models.Notification, error) {
	return s.Create(artist.UserID, &venue.UserID, models.NotificationBookingResponse,
		"Booking "+status,
		fmt.Sprintf("%s %s your booking request", venue.DisplayName, status),
		models.BookingResponseData{
			SenderID:        venue.UserID,
			BookingID:       booking.ID,
			ArtistProfileID: artist.ID,
			Status:          status,
		})
}

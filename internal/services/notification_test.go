package services_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/services"
	"github.com/resonant-live/resonant/backend/internal/testdb"
	"github.com/resonant-live/resonant/backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeMailer struct {
	sent []string
	fail bool
}

func (f *fakeMailer) SendNotificationEmail(toEmail, toName, title, message, notificationType string, data []byte) mailer.Result {
	if f.fail {
		return mailer.Result{Success: false, Error: "smtp unavailable"}
	}
	f.sent = append(f.sent, notificationType)
	return mailer.Result{Success: true, MessageID: "test-message"}
}

type recordingBroadcaster struct {
	events []string
}

func (r *recordingBroadcaster) Emit(userID uint, event string, payload interface{}) {
	r.events = append(r.events, event)
}

type fixture struct {
	db             *gorm.DB
	mailer         *fakeMailer
	events         *recordingBroadcaster
	notifications  *services.NotificationService
	friendships    *services.FriendshipService
	profiles       *services.ProfileService
	userRepo       repositories.UserRepository
	profileRepo    repositories.ProfileRepository
	friendshipRepo repositories.FriendshipRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	fm := &fakeMailer{}
	rb := &recordingBroadcaster{}

	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	friendshipRepo := repositories.NewPostgresFriendshipRepository(db)
	userRepo := repositories.NewPostgresUserRepository(db)
	settingRepo := repositories.NewPostgresNotificationSettingRepository(db)
	profileRepo := repositories.NewPostgresProfileRepository(db)

	ns := services.NewNotificationService(
		notificationRepo, friendshipRepo, userRepo, settingRepo,
		fm, rb, zap.NewNop(), 30*24*time.Hour)
	fs := services.NewFriendshipService(db, profileRepo, friendshipRepo, ns, rb, zap.NewNop())
	ps := services.NewProfileService(profileRepo, friendshipRepo, ns, zap.NewNop())

	return &fixture{
		db:             db,
		mailer:         fm,
		events:         rb,
		notifications:  ns,
		friendships:    fs,
		profiles:       ps,
		userRepo:       userRepo,
		profileRepo:    profileRepo,
		friendshipRepo: friendshipRepo,
	}
}

func (f *fixture) createUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, EmailNotifications: true}
	require.NoError(t, f.userRepo.CreateUser(u))
	return u
}

func (f *fixture) createProfile(t *testing.T, userID uint, profileType, displayName string) *models.Profile {
	t.Helper()
	p := &models.Profile{UserID: userID, Type: profileType, DisplayName: displayName}
	require.NoError(t, f.profileRepo.CreateProfile(p))
	return p
}

func TestAudienceContextHidesBookingNotifications(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	audience := f.createProfile(t, recipient.ID, models.ProfileTypeAudience, "ben-listens")

	_, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationBookingRequest,
		"New booking request", "Ana requested to play", models.BookingRequestData{SenderID: sender.ID, BookingID: 1})
	require.NoError(t, err)
	_, err = f.notifications.Create(recipient.ID, &sender.ID, models.NotificationPostLike,
		"New like", "Ana liked your post", models.PostLikeData{SenderID: sender.ID, PostID: "p1"})
	require.NoError(t, err)

	list, err := f.notifications.GetUserNotifications(recipient.ID, 20, 0, audience.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationPostLike, list[0].Type)
	require.NotNil(t, list[0].Sender)
	assert.Equal(t, sender.Name, list[0].Sender.Name)

	count, err := f.notifications.GetUnreadCount(recipient.ID, audience.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	assert.Equal(t, len(list), count)
}

func TestBookingNotificationsRoutedByProfileType(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	venue := f.createProfile(t, recipient.ID, models.ProfileTypeVenue, "the-cellar")
	artist := f.createProfile(t, recipient.ID, models.ProfileTypeArtist, "ben-plays")

	_, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationBookingRequest,
		"New booking request", "Ana requested to play", models.BookingRequestData{SenderID: sender.ID, BookingID: 1})
	require.NoError(t, err)
	_, err = f.notifications.Create(recipient.ID, &sender.ID, models.NotificationBookingResponse,
		"Booking accepted", "The Cellar accepted", models.BookingResponseData{SenderID: sender.ID, BookingID: 2, Status: "accepted"})
	require.NoError(t, err)

	asVenue, err := f.notifications.GetUserNotifications(recipient.ID, 20, 0, venue.ID, models.ProfileTypeVenue)
	require.NoError(t, err)
	require.Len(t, asVenue, 1)
	assert.Equal(t, models.NotificationBookingRequest, asVenue[0].Type)

	asArtist, err := f.notifications.GetUserNotifications(recipient.ID, 20, 0, artist.ID, models.ProfileTypeArtist)
	require.NoError(t, err)
	require.Len(t, asArtist, 1)
	assert.Equal(t, models.NotificationBookingResponse, asArtist[0].Type)
}

func TestFriendNotificationsRequireLiveFriendship(t *testing.T) {
	f := newFixture(t)
	requesterUser := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	requesterProfile := f.createProfile(t, requesterUser.ID, models.ProfileTypeAudience, "ana")
	recipientProfile := f.createProfile(t, recipient.ID, models.ProfileTypeAudience, "ben")

	friendship := &models.Friendship{
		RequesterID: requesterProfile.ID,
		AddresseeID: recipientProfile.ID,
		Status:      models.FriendshipPending,
	}
	require.NoError(t, f.friendshipRepo.CreateFriendship(friendship))

	_, err := f.notifications.Create(recipient.ID, &requesterUser.ID, models.NotificationFriendRequest,
		"New friend request", "Ana wants to connect with you",
		models.FriendRequestData{SenderID: requesterUser.ID, FriendshipID: friendship.ID, TargetProfileID: recipientProfile.ID})
	require.NoError(t, err)

	// Pending friendship: the friend_request is surfaced and counted.
	list, err := f.notifications.GetUserNotifications(recipient.ID, 20, 0, recipientProfile.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	require.Len(t, list, 1)
	count, err := f.notifications.GetUnreadCount(recipient.ID, recipientProfile.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// An out-of-band transition out of pending makes the stale friend_request
	// disappear from both the list and the badge, even though the row still
	// exists.
	require.NoError(t, f.friendshipRepo.UpdateStatus(friendship.ID, models.FriendshipAccepted))

	list, err = f.notifications.GetUserNotifications(recipient.ID, 20, 0, recipientProfile.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	assert.Empty(t, list)
	count, err = f.notifications.GetUnreadCount(recipient.ID, recipientProfile.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Without an active profile context there is no validity pass.
	list, err = f.notifications.GetUserNotifications(recipient.ID, 20, 0, 0, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFriendNotificationHiddenWhenFriendshipDeleted(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	profile := f.createProfile(t, recipient.ID, models.ProfileTypeAudience, "ben")

	_, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationFriendRequest,
		"New friend request", "Ana wants to connect with you",
		models.FriendRequestData{SenderID: sender.ID, FriendshipID: 999, TargetProfileID: profile.ID})
	require.NoError(t, err)

	list, err := f.notifications.GetUserNotifications(recipient.ID, 20, 0, profile.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStaleFriendAcceptedHiddenWhenNoFriendshipsExist(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	profile := f.createProfile(t, recipient.ID, models.ProfileTypeAudience, "ben")

	_, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationFriendAccepted,
		"Friend request accepted", "Ana accepted your friend request",
		models.FriendAcceptedData{SenderID: sender.ID, FriendshipID: 7, TargetProfileID: profile.ID})
	require.NoError(t, err)

	list, err := f.notifications.GetUserNotifications(recipient.ID, 20, 0, profile.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	assert.Empty(t, list)
	count, err := f.notifications.GetUnreadCount(recipient.ID, profile.ID, models.ProfileTypeAudience)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEmailCopySkippedWhenGloballyDisabled(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", recipient.ID).
		Update("email_notifications", false).Error)

	n, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationPostLike,
		"New like", "Ana liked your post", models.PostLikeData{SenderID: sender.ID, PostID: "p1"})
	require.NoError(t, err)

	assert.Empty(t, f.mailer.sent)
	assert.False(t, n.EmailSent)

	var stored models.Notification
	require.NoError(t, f.db.First(&stored, n.ID).Error)
	assert.False(t, stored.EmailSent)
}

func TestEmailCopyRespectsPerTypeSetting(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")

	_, err := f.notifications.UpdateNotificationSettings(recipient.ID, models.NotificationPostLike, false)
	require.NoError(t, err)

	_, err = f.notifications.Create(recipient.ID, &sender.ID, models.NotificationPostLike,
		"New like", "Ana liked your post", models.PostLikeData{SenderID: sender.ID, PostID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, f.mailer.sent)

	n, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationPostComment,
		"New comment", "Ana commented on your post", models.PostCommentData{SenderID: sender.ID, PostID: "p1", CommentID: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{models.NotificationPostComment}, f.mailer.sent)
	assert.True(t, n.EmailSent)
}

func TestEmailFailureDoesNotBreakCreation(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	f.mailer.fail = true

	n, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationPostLike,
		"New like", "Ana liked your post", models.PostLikeData{SenderID: sender.ID, PostID: "p1"})
	require.NoError(t, err)
	assert.False(t, n.EmailSent)

	var stored models.Notification
	require.NoError(t, f.db.First(&stored, n.ID).Error)
	assert.False(t, stored.EmailSent)
}

func TestUpdateNotificationSettingsRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "Ben", "ben@example.com")

	_, err := f.notifications.UpdateNotificationSettings(user.ID, "carrier_pigeon", false)
	assert.Error(t, err)
}

func TestSettingsMaterializeDefaults(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "Ben", "ben@example.com")

	settings, err := f.notifications.GetUserNotificationSettings(user.ID)
	require.NoError(t, err)
	require.Len(t, settings, len(models.AllNotificationTypes))
	for _, s := range settings {
		assert.True(t, s.EmailEnabled, s.Type)
	}

	_, err = f.notifications.UpdateNotificationSettings(user.ID, models.NotificationFriendRequest, false)
	require.NoError(t, err)

	settings, err = f.notifications.GetUserNotificationSettings(user.ID)
	require.NoError(t, err)
	disabled := 0
	for _, s := range settings {
		if !s.EmailEnabled {
			disabled++
			assert.Equal(t, models.NotificationFriendRequest, s.Type)
		}
	}
	assert.Equal(t, 1, disabled)
}

func TestNotifyProfileInviteUnknownEmailIsNoop(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")

	n, err := f.notifications.NotifyProfileInvite(sender, "nobody@example.com", models.ProfileTypeArtist)
	require.NoError(t, err)
	assert.Nil(t, n)

	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotifyProfileDeletedPayload(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, "Ana", "ana@example.com")
	friend := f.createUser(t, "Ben", "ben@example.com")

	before := time.Now()
	f.notifications.NotifyProfileDeleted("ana-sings", owner.ID, []uint{friend.ID})

	var stored models.Notification
	require.NoError(t, f.db.Where("type = ?", models.NotificationProfileDeleted).First(&stored).Error)
	assert.Equal(t, friend.ID, stored.RecipientID)

	var payload models.ProfileDeletedData
	require.NoError(t, json.Unmarshal(stored.Data, &payload))
	assert.Equal(t, "ana-sings", payload.ProfileName)
	assert.Equal(t, owner.ID, payload.DeletedBy)
	assert.True(t, payload.CanRestore)

	deadline, err := time.Parse(time.RFC3339, payload.RestorationDeadline)
	require.NoError(t, err)
	assert.True(t, deadline.After(before.Add(29*24*time.Hour)))
}

func TestMarkAsReadScopedToOwner(t *testing.T) {
	f := newFixture(t)
	sender := f.createUser(t, "Ana", "ana@example.com")
	recipient := f.createUser(t, "Ben", "ben@example.com")
	other := f.createUser(t, "Cara", "cara@example.com")

	n, err := f.notifications.Create(recipient.ID, &sender.ID, models.NotificationPostLike,
		"New like", "Ana liked your post", models.PostLikeData{SenderID: sender.ID, PostID: "p1"})
	require.NoError(t, err)

	// Someone else's mark matches zero rows and changes nothing.
	require.NoError(t, f.notifications.MarkAsRead(n.ID, other.ID))
	var stored models.Notification
	require.NoError(t, f.db.First(&stored, n.ID).Error)
	assert.False(t, stored.Read)

	require.NoError(t, f.notifications.MarkAsRead(n.ID, recipient.ID))
	require.NoError(t, f.db.First(&stored, n.ID).Error)
	assert.True(t, stored.Read)

	count, err := f.notifications.GetUnreadCount(recipient.ID, 0, "")
	require.NoError(t, err)
	assert.Zero(t, count)
}

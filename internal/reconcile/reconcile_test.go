package reconcile_test

import (
	"sync"
	"testing"
	"time"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/reconcile"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/services"
	"github.com/resonant-live/resonant/backend/internal/testdb"
	"github.com/resonant-live/resonant/backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type runnerFixture struct {
	runner        *reconcile.Runner
	db            *gorm.DB
	users         repositories.UserRepository
	profiles      repositories.ProfileRepository
	friendships   repositories.FriendshipRepository
	notifications repositories.NotificationRepository
}

func newRunner(t *testing.T) *runnerFixture {
	t.Helper()
	db := testdb.New(t)

	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	friendshipRepo := repositories.NewPostgresFriendshipRepository(db)
	profileRepo := repositories.NewPostgresProfileRepository(db)
	userRepo := repositories.NewPostgresUserRepository(db)

	notificationService := services.NewNotificationService(
		notificationRepo,
		friendshipRepo,
		userRepo,
		repositories.NewPostgresNotificationSettingRepository(db),
		mailer.NopNotifier{},
		services.NopBroadcaster{},
		zap.NewNop(),
		30*24*time.Hour)

	runner := reconcile.NewRunner(notificationRepo, friendshipRepo, profileRepo,
		notificationService, zap.NewNop(), 24*time.Hour)

	return &runnerFixture{
		runner:        runner,
		db:            db,
		users:         userRepo,
		profiles:      profileRepo,
		friendships:   friendshipRepo,
		notifications: notificationRepo,
	}
}

func (f *runnerFixture) seedUserWithProfile(t *testing.T, name, email string) (*models.User, *models.Profile) {
	t.Helper()
	user := &models.User{Name: name, Email: email, EmailNotifications: true}
	require.NoError(t, f.users.CreateUser(user))
	profile := &models.Profile{UserID: user.ID, Type: models.ProfileTypeAudience, DisplayName: name}
	require.NoError(t, f.profiles.CreateProfile(profile))
	return user, profile
}

func (f *runnerFixture) seedFriendship(t *testing.T, requesterID, addresseeID uint, status string) *models.Friendship {
	t.Helper()
	friendship := &models.Friendship{RequesterID: requesterID, AddresseeID: addresseeID, Status: status}
	require.NoError(t, f.friendships.CreateFriendship(friendship))
	return friendship
}

func (f *runnerFixture) seedFriendRequestNotification(t *testing.T, recipientID uint, payload models.FriendRequestData) *models.Notification {
	t.Helper()
	data, err := models.MarshalPayload(payload)
	require.NoError(t, err)
	n := &models.Notification{
		RecipientID: recipientID,
		SenderID:    &payload.SenderID,
		Type:        models.NotificationFriendRequest,
		Title:       "New friend request",
		Message:     "wants to connect with you",
		Data:        data,
	}
	require.NoError(t, f.notifications.CreateNotification(n))
	return n
}

func TestPurgeOrphanFriendships(t *testing.T) {
	f := newRunner(t)
	_, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	_, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")
	_, cara := f.seedUserWithProfile(t, "Cara", "cara@example.com")

	healthy := f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipPending)
	f.seedFriendship(t, cara.ID, ben.ID, models.FriendshipPending)

	require.NoError(t, f.db.Delete(&models.Profile{}, cara.ID).Error)

	report, err := f.runner.PurgeOrphanFriendships()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Deleted)

	var remaining []models.Friendship
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, healthy.ID, remaining[0].ID)

	// Idempotent: a second pass over the repaired store deletes nothing.
	report, err = f.runner.PurgeOrphanFriendships()
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
}

func TestPurgeOrphanNotifications(t *testing.T) {
	f := newRunner(t)
	anaUser, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	benUser, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")

	pending := f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipPending)

	valid := f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: pending.ID, TargetProfileID: ben.ID})
	f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: 99, TargetProfileID: ben.ID})

	report, err := f.runner.PurgeOrphanNotifications()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Deleted)

	var remaining []models.Notification
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, valid.ID, remaining[0].ID)

	report, err = f.runner.PurgeOrphanNotifications()
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
}

func TestPurgeOrphanNotificationsGlobalShortCircuit(t *testing.T) {
	f := newRunner(t)
	benUser, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")

	// No pending friendships exist at all, so every friend_request goes.
	f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: 1, FriendshipID: 12, TargetProfileID: ben.ID})
	f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: 1, FriendshipID: 34, TargetProfileID: ben.ID})

	report, err := f.runner.PurgeOrphanNotifications()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)

	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConcurrentOrphanPurgesAreNonCorrupting(t *testing.T) {
	f := newRunner(t)
	anaUser, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	benUser, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")

	pending := f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipPending)
	valid := f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: pending.ID, TargetProfileID: ben.ID})
	f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: 77, TargetProfileID: ben.ID})
	f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: 88, TargetProfileID: ben.ID})

	// Nothing serializes two operator runs of the same pass; racing them must
	// still converge on the state a single run produces.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.runner.PurgeOrphanNotifications()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var remaining []models.Notification
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, valid.ID, remaining[0].ID)

	report, err := f.runner.PurgeOrphanNotifications()
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
}

func TestBackfillNotificationPayloads(t *testing.T) {
	f := newRunner(t)
	anaUser, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	benUser, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")

	pending := f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipPending)

	legacy := f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: pending.ID})
	dead := f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: 99})

	report, err := f.runner.BackfillNotificationPayloads()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Patched)
	assert.Equal(t, 1, report.Deleted)

	var patched models.Notification
	require.NoError(t, f.db.First(&patched, legacy.ID).Error)
	ref, ok := patched.FriendshipRef()
	require.True(t, ok)
	assert.Equal(t, ben.ID, ref.TargetProfileID)

	err = f.db.First(&models.Notification{}, dead.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	report, err = f.runner.BackfillNotificationPayloads()
	require.NoError(t, err)
	assert.Zero(t, report.Patched)
	assert.Zero(t, report.Deleted)
}

func TestSyncFriendshipNotifications(t *testing.T) {
	f := newRunner(t)
	anaUser, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	benUser, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")

	pending := f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipPending)

	report, err := f.runner.SyncFriendshipNotifications()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	var synthesized models.Notification
	require.NoError(t, f.db.Where("type = ?", models.NotificationFriendRequest).First(&synthesized).Error)
	assert.Equal(t, benUser.ID, synthesized.RecipientID)
	require.NotNil(t, synthesized.SenderID)
	assert.Equal(t, anaUser.ID, *synthesized.SenderID)

	ref, ok := synthesized.FriendshipRef()
	require.True(t, ok)
	assert.Equal(t, pending.ID, ref.FriendshipID)
	assert.Equal(t, ben.ID, ref.TargetProfileID)

	// A consistent store synthesizes nothing.
	report, err = f.runner.SyncFriendshipNotifications()
	require.NoError(t, err)
	assert.Zero(t, report.Created)
}

func TestSyncSkipsFriendshipsWithMissingProfiles(t *testing.T) {
	f := newRunner(t)
	_, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	_, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")

	f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipPending)
	require.NoError(t, f.db.Delete(&models.Profile{}, ana.ID).Error)

	report, err := f.runner.SyncFriendshipNotifications()
	require.NoError(t, err)
	assert.Zero(t, report.Created)
}

func TestPurgeStaleRejections(t *testing.T) {
	f := newRunner(t)
	_, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	_, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")
	_, cara := f.seedUserWithProfile(t, "Cara", "cara@example.com")

	stale := f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipRejected)
	require.NoError(t, f.db.Model(&models.Friendship{}).Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-48*time.Hour)).Error)

	fresh := f.seedFriendship(t, ana.ID, cara.ID, models.FriendshipRejected)

	report, err := f.runner.PurgeStaleRejections()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)

	var remaining []models.Friendship
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}

func TestRunAllOnConsistentStoreIsNoop(t *testing.T) {
	f := newRunner(t)
	anaUser, ana := f.seedUserWithProfile(t, "Ana", "ana@example.com")
	benUser, ben := f.seedUserWithProfile(t, "Ben", "ben@example.com")

	pending := f.seedFriendship(t, ana.ID, ben.ID, models.FriendshipPending)
	f.seedFriendRequestNotification(t, benUser.ID, models.FriendRequestData{
		SenderID: anaUser.ID, FriendshipID: pending.ID, TargetProfileID: ben.ID})

	report, err := f.runner.RunAll()
	require.NoError(t, err)
	assert.Zero(t, report.Deleted)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.Patched)
}

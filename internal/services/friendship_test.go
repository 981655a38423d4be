package services_test

import (
	"testing"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequestCreatesEdgeAndNotificationTogether(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipPending, friendship.Status)

	var edges int64
	require.NoError(t, f.db.Model(&models.Friendship{}).Count(&edges).Error)
	assert.EqualValues(t, 1, edges)

	var notifications []models.Notification
	require.NoError(t, f.db.Where("type = ?", models.NotificationFriendRequest).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, benUser.ID, notifications[0].RecipientID)

	ref, ok := notifications[0].FriendshipRef()
	require.True(t, ok)
	assert.Equal(t, friendship.ID, ref.FriendshipID)
	assert.Equal(t, ben.ID, ref.TargetProfileID)
	assert.Equal(t, anaUser.ID, ref.SenderID)
}

func TestSendRequestToOwnProfileFails(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")

	_, err := f.friendships.SendRequest(ana.ID, ana.ID, anaUser.ID)
	assert.ErrorIs(t, err, services.ErrSelfFriendRequest)
}

func TestSendRequestRequiresProfileOwnership(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	_, err := f.friendships.SendRequest(ana.ID, ben.ID, benUser.ID)
	assert.ErrorIs(t, err, services.ErrNotProfileOwner)
}

func TestSendRequestRejectsDuplicateEdges(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)

	_, err = f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	assert.ErrorIs(t, err, services.ErrRequestPending)

	// Reverse direction hits the same pending edge.
	_, err = f.friendships.SendRequest(ben.ID, ana.ID, benUser.ID)
	assert.ErrorIs(t, err, services.ErrRequestPending)

	_, err = f.friendships.Respond(friendship.ID, benUser.ID, models.FriendshipAccepted)
	require.NoError(t, err)

	_, err = f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	assert.ErrorIs(t, err, services.ErrAlreadyFriends)
}

func TestRespondAcceptSwapsNotifications(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)

	updated, err := f.friendships.Respond(friendship.ID, benUser.ID, models.FriendshipAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipAccepted, updated.Status)

	// The originating friend_request is gone; a friend_accepted for the
	// requester's owner took its place.
	var requests int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationFriendRequest).Count(&requests).Error)
	assert.Zero(t, requests)

	var accepted models.Notification
	require.NoError(t, f.db.Where("type = ?", models.NotificationFriendAccepted).First(&accepted).Error)
	assert.Equal(t, anaUser.ID, accepted.RecipientID)

	ref, ok := accepted.FriendshipRef()
	require.True(t, ok)
	assert.Equal(t, friendship.ID, ref.FriendshipID)
	assert.Equal(t, ana.ID, ref.TargetProfileID)
	assert.Equal(t, benUser.ID, ref.SenderID)
}

func TestRespondRejectRemovesRequestNotification(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)

	updated, err := f.friendships.Respond(friendship.ID, benUser.ID, models.FriendshipRejected)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipRejected, updated.Status)

	var remaining int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestRespondRequiresPendingStatus(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)

	_, err = f.friendships.Respond(friendship.ID, benUser.ID, models.FriendshipAccepted)
	require.NoError(t, err)

	_, err = f.friendships.Respond(friendship.ID, benUser.ID, models.FriendshipRejected)
	assert.ErrorIs(t, err, services.ErrNotPending)
}

func TestRespondRequiresAddresseeOwnership(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)

	// The requester cannot answer their own request.
	_, err = f.friendships.Respond(friendship.ID, anaUser.ID, models.FriendshipAccepted)
	assert.ErrorIs(t, err, services.ErrNotProfileOwner)
}

func TestRespondAcceptWithTombstonedRequesterSkipsNotification(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeAudience, "ana")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)

	require.NoError(t, f.db.Delete(&models.Profile{}, ana.ID).Error)

	updated, err := f.friendships.Respond(friendship.ID, benUser.ID, models.FriendshipAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.FriendshipAccepted, updated.Status)

	var accepted int64
	require.NoError(t, f.db.Model(&models.Notification{}).
		Where("type = ?", models.NotificationFriendAccepted).Count(&accepted).Error)
	assert.Zero(t, accepted)
}

func TestDeleteProfileNotifiesAcceptedFriends(t *testing.T) {
	f := newFixture(t)
	anaUser := f.createUser(t, "Ana", "ana@example.com")
	benUser := f.createUser(t, "Ben", "ben@example.com")
	ana := f.createProfile(t, anaUser.ID, models.ProfileTypeArtist, "ana-sings")
	ben := f.createProfile(t, benUser.ID, models.ProfileTypeAudience, "ben")

	friendship, err := f.friendships.SendRequest(ana.ID, ben.ID, anaUser.ID)
	require.NoError(t, err)
	_, err = f.friendships.Respond(friendship.ID, benUser.ID, models.FriendshipAccepted)
	require.NoError(t, err)

	require.NoError(t, f.profiles.DeleteProfile(ana.ID, anaUser.ID))

	var deleted models.Notification
	require.NoError(t, f.db.Where("type = ?", models.NotificationProfileDeleted).First(&deleted).Error)
	assert.Equal(t, benUser.ID, deleted.RecipientID)

	// Soft delete: the row survives as a tombstone.
	var tombstone models.Profile
	require.NoError(t, f.db.Unscoped().First(&tombstone, ana.ID).Error)
	assert.True(t, tombstone.DeletedAt.Valid)
}

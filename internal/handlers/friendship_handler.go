package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/services"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// FriendshipHandler handles HTTP requests related to friendships
type FriendshipHandler struct {
	friendshipService    *services.FriendshipService
	friendshipRepository repositories.FriendshipRepository
	profileRepository    repositories.ProfileRepository
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(
	friendshipService *services.FriendshipService,
	friendshipRepo repositories.FriendshipRepository,
	profileRepo repositories.ProfileRepository,
) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipService:    friendshipService,
		friendshipRepository: friendshipRepo,
		profileRepository:    profileRepo,
	}
}

// RegisterFriendshipRoutes registers friendship-related routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friends/request", h.SendFriendRequest)
	g.PUT("/friends/request/:id/status", h.RespondFriendRequest)
	g.GET("/profiles/:profile_id/friends/requests/pending", h.GetPendingFriendRequests)
	g.GET("/profiles/:profile_id/friends", h.GetFriends)
}

// SendFriendRequest handles sending a friend request between two profiles
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SendFriendRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	friendship, err := h.friendshipService.SendRequest(req.RequesterProfileID, req.AddresseeProfileID, currentUserID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Profile not found")
		case errors.Is(err, services.ErrNotProfileOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, services.ErrSelfFriendRequest),
			errors.Is(err, services.ErrRequestPending),
			errors.Is(err, services.ErrAlreadyFriends):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, friendship)
}

// RespondFriendRequest handles accepting or rejecting a pending friend request
func (h *FriendshipHandler) RespondFriendRequest(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	friendshipID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid friendship ID")
	}

	var req models.RespondFriendRequestBody
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	friendship, err := h.friendshipService.Respond(uint(friendshipID), currentUserID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Friend request not found")
		case errors.Is(err, services.ErrNotProfileOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, services.ErrNotPending):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, friendship)
}

// GetPendingFriendRequests retrieves pending requests addressed to one of the
// caller's profiles
func (h *FriendshipHandler) GetPendingFriendRequests(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	profile, err := h.ownedProfile(c, currentUserID)
	if err != nil {
		return err
	}

	requests, err := h.friendshipRepository.GetPendingForProfile(profile.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"requests": requests}})
}

// GetFriends retrieves accepted friend profiles for one of the caller's profiles
func (h *FriendshipHandler) GetFriends(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	profile, err := h.ownedProfile(c, currentUserID)
	if err != nil {
		return err
	}

	accepted, err := h.friendshipRepository.GetAcceptedForProfile(profile.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var counterpartIDs []uint
	for _, f := range accepted {
		if f.RequesterID == profile.ID {
			counterpartIDs = append(counterpartIDs, f.AddresseeID)
		} else {
			counterpartIDs = append(counterpartIDs, f.RequesterID)
		}
	}
	friends, err := h.profileRepository.GetProfilesByIDs(counterpartIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"friends": friends}})
}

func (h *FriendshipHandler) ownedProfile(c echo.Context, currentUserID uint) (*models.Profile, error) {
	profileID, err := strconv.ParseUint(c.Param("profile_id"), 10, 32)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid profile ID")
	}
	profile, err := h.profileRepository.GetProfileByID(uint(profileID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Profile not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if profile.UserID != currentUserID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Profile does not belong to the authenticated user")
	}
	return profile, nil
}

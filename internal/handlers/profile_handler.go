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

// ProfileHandler handles HTTP requests related to profiles
type ProfileHandler struct {
	profileService      *services.ProfileService
	notificationService *services.NotificationService
	profileRepository   repositories.ProfileRepository
	userRepository      repositories.UserRepository
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(
	profileService *services.ProfileService,
	notificationService *services.NotificationService,
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
) *ProfileHandler {
	return &ProfileHandler{
		profileService:      profileService,
		notificationService: notificationService,
		profileRepository:   profileRepo,
		userRepository:      userRepo,
	}
}

// RegisterProfileRoutes registers profile-related routes
func (h *ProfileHandler) RegisterProfileRoutes(g *echo.Group) {
	g.POST("/profiles", h.CreateProfile)
	g.GET("/profiles", h.GetMyProfiles)
	g.DELETE("/profiles/:id", h.DeleteProfile)
	g.POST("/profiles/invite", h.InviteProfile)
}

// CreateProfile creates a new profile for the authenticated user
func (h *ProfileHandler) CreateProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	profile := &models.Profile{
		UserID:      currentUserID,
		Type:        req.Type,
		DisplayName: req.DisplayName,
		Visibility:  req.Visibility,
	}
	if profile.Visibility == "" {
		profile.Visibility = "public"
	}
	if err := h.profileRepository.CreateProfile(profile); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, profile)
}

// GetMyProfiles lists the authenticated user's live profiles
func (h *ProfileHandler) GetMyProfiles(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	profiles, err := h.profileRepository.GetProfilesByUserID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"profiles": profiles}})
}

// DeleteProfile tombstones one of the caller's profiles and notifies the
// owners of its accepted friends
func (h *ProfileHandler) DeleteProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	profileID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid profile ID")
	}

	if err := h.profileService.DeleteProfile(uint(profileID), currentUserID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "Profile not found")
		case errors.Is(err, services.ErrNotProfileOwner):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// InviteProfile invites a user by email to create a profile. Unknown emails
// are silently accepted so the endpoint cannot be used to probe accounts.
func (h *ProfileHandler) InviteProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.InviteProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sender, err := h.userRepository.GetUserByID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	if _, err := h.notificationService.NotifyProfileInvite(sender, req.Email, req.ProfileType); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, echo.Map{"success": true})
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/resonant-live/resonant/backend/internal/repositories"
	"github.com/resonant-live/resonant/backend/internal/services"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// BookingHandler handles HTTP requests related to event bookings
type BookingHandler struct {
	bookingRepository   repositories.BookingRepository
	profileRepository   repositories.ProfileRepository
	notificationService *services.NotificationService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(
	bookingRepo repositories.BookingRepository,
	profileRepo repositories.ProfileRepository,
	notificationService *services.NotificationService,
) *BookingHandler {
	return &BookingHandler{
		bookingRepository:   bookingRepo,
		profileRepository:   profileRepo,
		notificationService: notificationService,
	}
}

// RegisterBookingRoutes registers booking-related routes
func (h *BookingHandler) RegisterBookingRoutes(g *echo.Group) {
	g.POST("/bookings", h.CreateBooking)
	g.PUT("/bookings/:id/status", h.RespondBooking)
	g.GET("/profiles/:profile_id/bookings", h.GetBookings)
}

// CreateBooking submits a booking request from an artist profile to a venue
// profile and notifies the venue owner
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	eventDate, err := time.Parse(time.RFC3339, req.EventDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "event_date must be RFC 3339")
	}

	artist, err := h.profileRepository.GetProfileByID(req.ArtistProfileID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Artist profile not found")
	}
	if artist.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "Profile does not belong to the authenticated user")
	}
	if artist.Type != models.ProfileTypeArtist {
		return echo.NewHTTPError(http.StatusBadRequest, "Booking requests must come from an artist profile")
	}

	venue, err := h.profileRepository.GetProfileByID(req.VenueProfileID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Venue profile not found")
	}
	if venue.Type != models.ProfileTypeVenue {
		return echo.NewHTTPError(http.StatusBadRequest, "Booking requests must target a venue profile")
	}

	booking := &models.Booking{
		ArtistProfileID: artist.ID,
		VenueProfileID:  venue.ID,
		EventDate:       eventDate,
		Message:         req.Message,
		Status:          models.BookingPending,
	}
	if err := h.bookingRepository.CreateBooking(booking); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, err := h.notificationService.NotifyBookingRequest(artist, venue, booking); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, booking)
}

// RespondBooking lets the venue owner accept or decline a booking request and
// notifies the artist owner of the decision
func (h *BookingHandler) RespondBooking(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid booking ID")
	}

	var req models.RespondBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	booking, err := h.bookingRepository.GetBookingByID(uint(bookingID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Booking not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if booking.Status != models.BookingPending {
		return echo.NewHTTPError(http.StatusConflict, "Booking has already been responded to")
	}

	venue, err := h.profileRepository.GetProfileByID(booking.VenueProfileID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Venue profile not found")
	}
	if venue.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "Profile does not belong to the authenticated user")
	}

	if err := h.bookingRepository.UpdateStatus(booking.ID, req.Status); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	booking.Status = req.Status

	artist, err := h.profileRepository.GetProfileByID(booking.ArtistProfileID)
	if err == nil {
		if _, err := h.notificationService.NotifyBookingResponse(venue, artist, booking, req.Status); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, booking)
}

// GetBookings lists bookings involving one of the caller's profiles
func (h *BookingHandler) GetBookings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	profileID, err := strconv.ParseUint(c.Param("profile_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid profile ID")
	}
	profile, err := h.profileRepository.GetProfileByID(uint(profileID))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Profile not found")
	}
	if profile.UserID != currentUserID {
		return echo.NewHTTPError(http.StatusForbidden, "Profile does not belong to the authenticated user")
	}

	var bookings []models.Booking
	if profile.Type == models.ProfileTypeVenue {
		bookings, err = h.bookingRepository.GetBookingsForVenue(profile.ID)
	} else {
		bookings, err = h.bookingRepository.GetBookingsForArtist(profile.ID)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"bookings": bookings}})
}

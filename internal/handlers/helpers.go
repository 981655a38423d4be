package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserIDFromContext returns the authenticated user's ID set by the JWT
// middleware, or 0 when unauthenticated.
func getUserIDFromContext(c echo.Context) uint {
	userID, ok := c.Get("userID").(uint)
	if !ok {
		return 0
	}
	return userID
}

// activeProfileContext parses the optional active profile context from query
// parameters. Both values are empty/zero when the client sent no context.
func activeProfileContext(c echo.Context) (uint, string) {
	profileID, _ := strconv.ParseUint(c.QueryParam("active_profile_id"), 10, 32)
	profileType := c.QueryParam("active_profile_type")
	return uint(profileID), profileType
}

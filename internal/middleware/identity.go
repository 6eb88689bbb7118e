package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
	claimsKey   = "claims"
	usernameKey = "username"
	rolesKey    = "roles"
)

// Claims returns the verified access token claims, or nil on routes that
// do not require authentication.
func Claims(c echo.Context) *utils.Claims {
	cl, _ := c.Get(claimsKey).(*utils.Claims)
	return cl
}

// Username returns the authenticated username or "" for anonymous callers.
func Username(c echo.Context) string {
	s, _ := c.Get(usernameKey).(string)
	return s
}

// Roles returns the roles granted by the access token.
func Roles(c echo.Context) []string {
	r, _ := c.Get(rolesKey).([]string)
	return r
}

// IsAdmin reports whether the caller holds the Admin role.
func IsAdmin(c echo.Context) bool {
	for _, r := range Roles(c) {
		if r == model.RoleAdmin {
			return true
		}
	}
	return false
}

// userID identifies the caller for rate limiting and logs.
func userID(c echo.Context) string {
	if u := Username(c); u != "" {
		return u
	}
	return "anon"
}

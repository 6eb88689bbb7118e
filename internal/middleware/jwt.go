package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intervention-api/internal/utils"
)

// JWTAuth validates the Bearer access token (signature, issuer, audience and
// expiry) and stores its claims in the context.  Handlers read them through
// Username, Roles and Claims.
func JWTAuth(p utils.TokenParams) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := utils.ParseAccessToken(p, raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			username := claims.Name
			if username == "" {
				username = claims.Subject
			}
			c.Set(claimsKey, claims)
			c.Set(usernameKey, username)
			c.Set(rolesKey, claims.Roles)
			return next(c)
		}
	}
}

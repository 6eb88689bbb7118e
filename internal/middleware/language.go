package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intervention-api/internal/validation"
)

// Language resolves Accept-Language once per request and stores the result
// in the request context for the validator.
func Language() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lang := validation.Language(c.Request().Header.Get("Accept-Language"))
			req := c.Request()
			c.SetRequest(req.WithContext(validation.WithLanguage(req.Context(), lang)))
			return next(c)
		}
	}
}

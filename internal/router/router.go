package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intervention-api/internal/handler"
	"github.com/iliyamo/intervention-api/internal/middleware"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/utils"
)

// RegisterRoutes registers the unauthenticated operational endpoints: the
// health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metrics http.Handler) {
	e.GET("/healthz", handler.Health(db))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the account endpoints under /private/auth.  They
// are back-office routes, so validation failures are rendered in detail.
// Only /me needs an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens utils.TokenParams, limit echo.MiddlewareFunc) {
	g := e.Group("/private/auth", middleware.ErrorPolicy(middleware.PolicyDetailed), orNoop(limit))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(tokens))
}

// RegisterInterventions registers /intervention.  Every route needs a valid
// access token; reads are open to all roles and writes to admins only.
func RegisterInterventions(e *echo.Echo, h *handler.InterventionHandler, tokens utils.TokenParams, limit echo.MiddlewareFunc) {
	g := e.Group("/intervention",
		middleware.ErrorPolicy(middleware.PolicyProblem),
		middleware.JWTAuth(tokens),
		orNoop(limit),
		middleware.Language(),
	)

	read := middleware.RequireRole(model.RoleAdmin, model.RoleTechnician, model.RoleClient)
	write := middleware.RequireRole(model.RoleAdmin)

	g.GET("", h.Search, read)
	g.GET("/:id", h.GetByID, read)
	g.POST("", h.Create, write)
	g.PUT("/:id", h.Update, write)
	g.DELETE("/:id", h.Delete, write)
}

func orNoop(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return m
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/middleware"
	"github.com/iliyamo/intervention-api/internal/service"
)

// Identity is the account service used by AuthHandler.
type Identity interface {
	Register(ctx context.Context, req dto.RegisterRequest) ([]dto.IdentityError, error)
	Login(ctx context.Context, username, password string) (dto.TokenPair, error)
	Refresh(ctx context.Context, raw string) (dto.TokenPair, error)
	Logout(ctx context.Context, raw string) error
}

// AuthHandler serves /private/auth.  Register, Login, Refresh and Logout
// are public; Me sits behind the JWT middleware.  Service errors other than
// the two credential sentinels go to the central error handler.
type AuthHandler struct {
	svc Identity
}

// NewAuthHandler binds the handler to an identity service and panics on nil,
// which only happens through a wiring mistake at startup.
func NewAuthHandler(svc Identity) *AuthHandler {
	if svc == nil {
		panic("nil service passed to NewAuthHandler")
	}
	return &AuthHandler{svc: svc}
}

// Register creates an account with the Client role.  Rule violations come
// back as a bare array of identity errors, every violated rule listed.
func (h *AuthHandler) Register(c echo.Context) error {
	// parse request body
	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	// bound the user lookups and the insert
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	errs, err := h.svc.Register(ctx, req)
	if err != nil {
		return err
	}
	// rule violations are a client error, not a failure
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User created"})
}

// Login: verify and return a new pair.  Unknown users and wrong passwords
// get the same 401.
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	// missing fields never reach the password check
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.svc.Login(ctx, strings.TrimSpace(req.Username), req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh: consume the refresh token and issue a new pair.  A token works
// once; replaying it (or presenting a revoked or expired one) is a 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, err := bindRefresh(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	pair, err := h.svc.Refresh(ctx, raw)
	if errors.Is(err, service.ErrInvalidRefreshToken) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout revokes the given refresh token.  The access token stays valid
// until it expires.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, err := bindRefresh(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.svc.Logout(ctx, raw); err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity carried by the access token; no database read.
func (h *AuthHandler) Me(c echo.Context) error {
	roles := middleware.Roles(c)
	// always an array in the JSON
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(http.StatusOK, dto.MeResponse{Username: middleware.Username(c), Roles: roles})
}

// bindRefresh reads {"refreshToken": "..."}.  An empty token is treated
// like an invalid one.
func bindRefresh(c echo.Context) (string, error) {
	var req dto.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}
	return raw, nil
}

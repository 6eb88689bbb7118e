package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/iliyamo/intervention-api/internal/dto"
	"github.com/iliyamo/intervention-api/internal/model"
	"github.com/iliyamo/intervention-api/internal/repository"
	"github.com/iliyamo/intervention-api/internal/session"
	"github.com/iliyamo/intervention-api/internal/utils"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown user or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken is returned for unknown, consumed or expired
	// refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

const allowedUsernameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._@+"

// IdentityService registers users and issues token pairs.
type IdentityService struct {
	store      *repository.Store
	sessions   session.Store
	tokens     utils.TokenParams
	refreshTTL time.Duration
	bcryptCost int
}

// NewIdentityService wires the service.
func NewIdentityService(store *repository.Store, sessions session.Store, tokens utils.TokenParams, refreshTTL time.Duration, bcryptCost int) *IdentityService {
	return &IdentityService{store: store, sessions: sessions, tokens: tokens, refreshTTL: refreshTTL, bcryptCost: bcryptCost}
}

// Register creates a user holding one role.  Rule violations are returned
// as identity errors with a nil error; the error result is reserved for
// infrastructure failures.
func (s *IdentityService) Register(ctx context.Context, req dto.RegisterRequest) ([]dto.IdentityError, error) {
	uow := s.store.Begin()
	users := uow.Users()

	var errs []dto.IdentityError
	add := func(code, desc string) { errs = append(errs, dto.IdentityError{Code: code, Description: desc}) }

	username := strings.TrimSpace(req.Username)
	switch {
	case username == "":
		add("InvalidUserName", "Username is required.")
	case strings.Trim(username, allowedUsernameChars) != "":
		add("InvalidUserName", fmt.Sprintf("Username '%s' is invalid, can only contain letters or digits.", username))
	default:
		taken, err := users.UsernameExists(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		if taken {
			add("DuplicateUserName", fmt.Sprintf("Username '%s' is already taken.", username))
		}
	}

	email := strings.TrimSpace(req.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		add("InvalidEmail", fmt.Sprintf("Email '%s' is invalid.", email))
	} else {
		taken, err := users.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
		if taken {
			add("DuplicateEmail", fmt.Sprintf("Email '%s' is already taken.", email))
		}
	}

	errs = append(errs, PasswordErrors(req.Password)...)

	role, ok := model.CanonicalRole(req.Role)
	if !ok {
		add("InvalidRoleName", fmt.Sprintf("Role '%s' is invalid.", req.Role))
	}
	if len(errs) > 0 {
		return errs, nil
	}

	roles, err := users.Roles(ctx, role)
	if err != nil || len(roles) != 1 {
		return nil, fmt.Errorf("register: role %s not seeded: %v", role, err)
	}
	hash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	users.Add(&model.User{
		Username:           username,
		NormalizedUsername: model.NormalizeName(username),
		Email:              email,
		NormalizedEmail:    model.NormalizeName(email),
		PasswordHash:       hash,
		Roles:              roles,
	})
	if _, err := uow.Commit(ctx); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			return []dto.IdentityError{{Code: "DuplicateUserName", Description: fmt.Sprintf("Username '%s' is already taken.", username)}}, nil
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	return nil, nil
}

// PasswordErrors checks the password policy: at least MinPasswordLength
// characters with a digit, a lower case letter, an upper case letter and a
// non-alphanumeric character.
func PasswordErrors(pw string) []dto.IdentityError {
	var errs []dto.IdentityError
	if len([]rune(pw)) < MinPasswordLength {
		errs = append(errs, dto.IdentityError{Code: "PasswordTooShort", Description: fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength)})
	}
	if len(pw) > maxPasswordBytes {
		errs = append(errs, dto.IdentityError{Code: "PasswordTooLong", Description: fmt.Sprintf("Passwords must be at most %d bytes.", maxPasswordBytes)})
	}
	var digit, lower, upper, other bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	if !other {
		errs = append(errs, dto.IdentityError{Code: "PasswordRequiresNonAlphanumeric", Description: "Passwords must have at least one non alphanumeric character."})
	}
	if !digit {
		errs = append(errs, dto.IdentityError{Code: "PasswordRequiresDigit", Description: "Passwords must have at least one digit ('0'-'9')."})
	}
	if !lower {
		errs = append(errs, dto.IdentityError{Code: "PasswordRequiresLower", Description: "Passwords must have at least one lowercase ('a'-'z')."})
	}
	if !upper {
		errs = append(errs, dto.IdentityError{Code: "PasswordRequiresUpper", Description: "Passwords must have at least one uppercase ('A'-'Z')."})
	}
	return errs
}

// Login checks the password and issues a token pair.
func (s *IdentityService) Login(ctx context.Context, username, password string) (dto.TokenPair, error) {
	u, err := s.store.Begin().Users().GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		return dto.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return dto.TokenPair{}, fmt.Errorf("login: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return dto.TokenPair{}, ErrInvalidCredentials
	}
	return s.issue(ctx, u.Username, u.RoleNames())
}

// Refresh consumes a refresh token and issues a new pair for the identity
// it was bound to.  The consumed token can never be used again.
func (s *IdentityService) Refresh(ctx context.Context, raw string) (dto.TokenPair, error) {
	if raw == "" {
		return dto.TokenPair{}, ErrInvalidRefreshToken
	}
	snap, err := s.sessions.Consume(ctx, utils.HashRefreshRaw(raw))
	if errors.Is(err, session.ErrNotFound) {
		return dto.TokenPair{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return dto.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	return s.issue(ctx, snap.Username, snap.Roles)
}

// Logout revokes a refresh token.
func (s *IdentityService) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrInvalidRefreshToken
	}
	return s.sessions.Revoke(ctx, utils.HashRefreshRaw(raw))
}

func (s *IdentityService) issue(ctx context.Context, username string, roles []string) (dto.TokenPair, error) {
	at, err := utils.NewAccessToken(s.tokens, username, roles)
	if err != nil {
		return dto.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := utils.NewRefreshToken(s.refreshTTL)
	if err != nil {
		return dto.TokenPair{}, fmt.Errorf("refresh token: %w", err)
	}
	snap := session.Snapshot{
		Username:  username,
		Roles:     append([]string(nil), roles...),
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: rt.Exp,
	}
	if err := s.sessions.Save(ctx, utils.HashRefreshRaw(rt.Raw), snap); err != nil {
		return dto.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return dto.TokenPair{Token: at.Token, RefreshToken: rt.Raw}, nil
}

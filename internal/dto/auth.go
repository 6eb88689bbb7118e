package dto

// RegisterRequest is the body of POST /private/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /private/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of the refresh and logout endpoints.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// IdentityError is one registration failure, returned as-is.
type IdentityError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

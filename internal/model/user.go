package model

import (
	"strings"
	"time"
)

// Role names recognised by the API.  They are seeded at startup and carried
// verbatim in the "roles" claim of access tokens.
const (
	RoleAdmin      = "Admin"
	RoleTechnician = "Technician"
	RoleClient     = "Client"
)

// Roles lists every role in seeding order.
var Roles = []string{RoleAdmin, RoleTechnician, RoleClient}

// CanonicalRole returns the canonical spelling of name when it is one of
// Roles (case-insensitive).
func CanonicalRole(name string) (string, bool) {
	for _, r := range Roles {
		if strings.EqualFold(r, name) {
			return r, true
		}
	}
	return "", false
}

// User is an identity record stored in the `users` table.  Usernames and
// emails are matched case-insensitively through their normalized (upper
// case) columns, which carry the unique indexes.
//
// Fields:
//
//	ID                 – primary key identifier.
//	Username           – display form of the login name.
//	NormalizedUsername – upper-cased Username used for lookups.
//	Email              – contact address.
//	NormalizedEmail    – upper-cased Email used for lookups.
//	PasswordHash       – bcrypt hash of the password.
//	Roles              – roles granted through the user_roles join table.
type User struct {
	ID                 uint64    `gorm:"primaryKey"`
	Username           string    `gorm:"size:128;not null"`
	NormalizedUsername string    `gorm:"size:128;not null;uniqueIndex"`
	Email              string    `gorm:"size:256;not null"`
	NormalizedEmail    string    `gorm:"size:256;not null;uniqueIndex"`
	PasswordHash       string    `gorm:"size:255;not null"`
	Roles              []Role    `gorm:"many2many:user_roles;"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RoleNames returns the names of the roles granted to u.
func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// Role is a row of the `roles` table.
type Role struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64;not null;uniqueIndex"`
}

// NormalizeName returns the lookup form of a username or email.
func NormalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

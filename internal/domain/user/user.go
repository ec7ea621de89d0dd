package user

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound    = errors.New("user: not found")
	ErrInvalidRole = errors.New("user: invalid role")
)

type ID string

type Role string

const (
	RoleStudent  Role = "student"
	RoleSchool   Role = "school"
	RoleEmployer Role = "employer"
	RoleAdmin    Role = "admin"
)

// KnownRoles lists every role the marketplace issues.
var KnownRoles = []Role{RoleStudent, RoleSchool, RoleEmployer, RoleAdmin}

// Profile is the slice of the user directory the chat core consumes:
// identity, display data and the role the permission matrix keys on.
type Profile struct {
	ID          ID
	DisplayName string
	Email       string
	Role        Role
}

// Directory is the external user service. The chat core only reads from it.
type Directory interface {
	FindUser(ctx context.Context, id ID) (*Profile, error)
	// Search returns profiles whose display name or email contains q
	// (case-insensitive). Used to resolve conversation search terms.
	Search(ctx context.Context, q string) ([]*Profile, error)
}

func NormalizeRole(role Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(role))))
}

func ValidRole(role Role) bool {
	role = NormalizeRole(role)
	for _, known := range KnownRoles {
		if role == known {
			return true
		}
	}
	return false
}

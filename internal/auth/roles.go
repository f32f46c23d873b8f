package auth

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the single role a user holds.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Roles lists every role in ascending order of privilege.
var Roles = []Role{RoleStudent, RoleInstructor, RoleAdmin}

// ParseRole normalizes s and rejects values outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// IsSystem reports whether the actor is empty, as for work done without a user.
func (a Actor) IsSystem() bool { return a.ID == "" }

func (a Actor) IsAdmin() bool      { return a.Role == RoleAdmin }
func (a Actor) IsInstructor() bool { return a.Role == RoleInstructor }
func (a Actor) IsStudent() bool    { return a.Role == RoleStudent }

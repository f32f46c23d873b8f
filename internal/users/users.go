// Package users owns accounts, sign-in and the admin user directory.
package users

import (
	"context"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// User is an account. PasswordHash never leaves the process.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Institution  string     `json:"institution"`
	Role         auth.Role  `json:"role"`
	IsActive     bool       `json:"is_active"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Actor returns the policy identity of u.
func (u User) Actor() auth.Actor { return auth.Actor{ID: u.ID, Role: u.Role} }

// Filter narrows ListUsers. Search matches name, email and institution.
type Filter struct {
	Role   auth.Role
	Active *bool
	Search string
}

// Store persists users.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, f Filter, p pagination.Page) ([]User, int, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	DeleteUser(ctx context.Context, id string) error
	TouchUserLogin(ctx context.Context, id string, at time.Time) error
}

var (
	ErrNotFound           = apperr.NotFound("user")
	ErrEmailTaken         = apperr.Conflict("email is already registered")
	ErrInvalidCredentials = apperr.Unauthenticated("invalid email or password")
	ErrInactive           = apperr.Unauthenticated("account is deactivated")
	ErrSelfDelete         = apperr.Conflict("you cannot delete your own account")
	ErrUserInUse          = apperr.Conflict("user still owns records that cannot be removed")
)

// RegisterInput is the public sign-up payload. Admins cannot self-register.
type RegisterInput struct {
	Email       string    `json:"email" validate:"required,email,max=255"`
	Password    string    `json:"password" validate:"required,min=8,max=72"`
	FullName    string    `json:"full_name" validate:"required,notblank,max=200"`
	Institution string    `json:"institution" validate:"max=200"`
	Role        auth.Role `json:"role" validate:"omitempty,oneof=student instructor"`
}

// CreateInput is the admin create payload.
type CreateInput struct {
	Email       string    `json:"email" validate:"required,email,max=255"`
	Password    string    `json:"password" validate:"required,min=8,max=72"`
	FullName    string    `json:"full_name" validate:"required,notblank,max=200"`
	Institution string    `json:"institution" validate:"max=200"`
	Role        auth.Role `json:"role" validate:"required,oneof=student instructor admin"`
	IsActive    *bool     `json:"is_active"`
}

// Patch updates a user. Only admins may set Email, Role and IsActive.
type Patch struct {
	Email       *string    `json:"email" validate:"omitempty,email,max=255"`
	FullName    *string    `json:"full_name" validate:"omitempty,notblank,max=200"`
	Institution *string    `json:"institution" validate:"omitempty,max=200"`
	Password    *string    `json:"password" validate:"omitempty,min=8,max=72"`
	Role        *auth.Role `json:"role" validate:"omitempty,oneof=student instructor admin"`
	IsActive    *bool      `json:"is_active"`
}

func (p Patch) adminOnly() bool {
	return p.Email != nil || p.Role != nil || p.IsActive != nil
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

package auth

import (
	"errors"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
)

var (
	// ErrInvalidToken indicates the bearer token failed validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden is returned by Authorize when the policy denies an action.
	ErrForbidden = apperr.Authorization("you are not allowed to perform this action")
	// ErrInvalidRole is returned for role names outside the closed set.
	ErrInvalidRole = apperr.Field("role", "role must be one of student, instructor, admin")
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = apperr.Field("password", "password must be at least 8 characters")
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password mismatch")
)

// Package payment tracks course payments. There is no gateway: an admin
// settles pending payments as paid or failed.
package payment

import (
	"context"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/money"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// Status of a payment. pending is the only non-terminal state.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed:
		return true
	}
	return false
}

// Payment is one attempt by a student to pay for a course.
type Payment struct {
	ID          string      `json:"id"`
	StudentID   string      `json:"student_id"`
	CourseID    string      `json:"course_id"`
	CourseTitle string      `json:"course_title,omitempty"`
	Amount      money.Cents `json:"amount"`
	Status      Status      `json:"status"`
	Reference   string      `json:"reference"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	SettledAt   *time.Time  `json:"settled_at"`
}

// Filter narrows ListPayments.
type Filter struct {
	StudentID string
	CourseID  string
	Status    Status
}

// Store persists payments.
type Store interface {
	// CreatePayment fails with ErrPendingExists when the student already has a
	// pending payment for the course.
	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	GetPayment(ctx context.Context, id string) (Payment, error)
	ListPayments(ctx context.Context, f Filter, p pagination.Page) ([]Payment, int, error)
	// SettlePayment moves a pending payment to status under a row lock.
	SettlePayment(ctx context.Context, id string, status Status, reference string, at time.Time) (before, after Payment, err error)
	HasPaidPayment(ctx context.Context, studentID, courseID string) (bool, error)
}

var (
	ErrNotFound      = apperr.NotFound("payment")
	ErrPendingExists = apperr.Conflict("a pending payment for this course already exists")
	ErrAlreadyPaid   = apperr.Conflict("this course is already paid for")
	ErrNotPending    = apperr.Conflict("only pending payments can be settled")
	ErrFreeCourse    = apperr.Field("course_id", "course is free and needs no payment")
	ErrNotPayable    = apperr.Field("course_id", "course is not available for purchase")
)

// Package enrollment records which students take which courses and how far
// they have progressed, and issues certificates on completion.
package enrollment

import (
	"context"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// Status of an enrollment.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Enrollment links one student to one course. CourseTitle and StudentName
// are filled on reads.
type Enrollment struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	CourseID        string     `json:"course_id"`
	CourseTitle     string     `json:"course_title,omitempty"`
	StudentName     string     `json:"student_name,omitempty"`
	Status          Status     `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	EnrolledAt      time.Time  `json:"enrolled_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CancelledAt     *time.Time `json:"cancelled_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Live reports whether the enrollment grants course access.
func (e Enrollment) Live() bool { return e.Status == StatusActive || e.Status == StatusCompleted }

// Certificate is issued once per completed enrollment.
type Certificate struct {
	ID           string    `json:"id"`
	EnrollmentID string    `json:"enrollment_id"`
	StudentID    string    `json:"student_id"`
	CourseID     string    `json:"course_id"`
	CourseTitle  string    `json:"course_title,omitempty"`
	Serial       string    `json:"serial"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Filter narrows ListEnrollments. InstructorID limits to courses it owns.
type Filter struct {
	StudentID    string
	CourseID     string
	InstructorID string
	Status       Status
}

// Mutation decides the next state of an enrollment read under a row lock.
// Returning changed=false leaves the row untouched.
type Mutation func(current Enrollment) (next Enrollment, changed bool, err error)

// Store persists enrollments and certificates.
type Store interface {
	// EnrollStudent inserts e, or atomically reactivates a cancelled row for
	// the same (student, course). reactivated reports which happened. A live
	// row yields ErrAlreadyEnrolled.
	EnrollStudent(ctx context.Context, e Enrollment) (out Enrollment, reactivated bool, err error)
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	FindEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, f Filter, p pagination.Page) ([]Enrollment, int, error)
	// MutateEnrollment runs fn on the locked row and persists its result.
	MutateEnrollment(ctx context.Context, id string, fn Mutation) (before, after Enrollment, changed bool, err error)
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)

	// IssueCertificate returns ErrCertificateExists when the enrollment already has one.
	IssueCertificate(ctx context.Context, c Certificate) (Certificate, error)
	ListCertificates(ctx context.Context, studentID string) ([]Certificate, error)
}

var (
	ErrNotFound = apperr.NotFound("enrollment")
	// ErrAlreadyEnrolled is the duplicate (student, course) failure.
	ErrAlreadyEnrolled = apperr.Conflict("already enrolled in this course")
	// ErrCourseNotAvailable is returned for draft or archived courses.
	ErrCourseNotAvailable = apperr.Field("course_id", "course is not available for enrollment")
	ErrPaymentRequired    = apperr.PaymentRequired("this course requires a completed payment before enrollment")
	ErrProgressDecrease   = apperr.Field("progress_percent", "progress cannot decrease; use the reset endpoint")
	ErrCancelled          = apperr.Conflict("enrollment is cancelled")
	ErrCompleted          = apperr.Conflict("a completed enrollment cannot be cancelled")
	ErrCertificateExists  = apperr.Conflict("certificate already issued")
)

// Package assessment holds assignment submissions and quiz attempts.
package assessment

import (
	"context"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// SubmissionStatus tracks grading.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// Submission is one student's answer to an assignment. A student has at most
// one per assignment; it can be replaced until graded.
type Submission struct {
	ID            string           `json:"id"`
	AssignmentID  string           `json:"assignment_id"`
	CourseID      string           `json:"course_id"`
	StudentID     string           `json:"student_id"`
	Content       string           `json:"content"`
	AttachmentURL string           `json:"attachment_url"`
	Status        SubmissionStatus `json:"status"`
	Score         *int             `json:"score"`
	Feedback      string           `json:"feedback"`
	GradedBy      *string          `json:"graded_by"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	GradedAt      *time.Time       `json:"graded_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// QuizAttempt is a scored attempt. Score is a percentage.
type QuizAttempt struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quiz_id"`
	CourseID      string    `json:"course_id"`
	StudentID     string    `json:"student_id"`
	AttemptNumber int       `json:"attempt_number"`
	Score         int       `json:"score"`
	Passed        bool      `json:"passed"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SubmissionFilter narrows ListSubmissions. InstructorID limits to owned courses.
type SubmissionFilter struct {
	AssignmentID string
	CourseID     string
	StudentID    string
	InstructorID string
	Status       SubmissionStatus
}

// AttemptFilter narrows ListQuizAttempts.
type AttemptFilter struct {
	QuizID    string
	StudentID string
}

// Store persists submissions and attempts.
type Store interface {
	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	FindSubmission(ctx context.Context, assignmentID, studentID string) (Submission, error)
	UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter, p pagination.Page) ([]Submission, int, error)

	// CreateQuizAttempt numbers and stores a, failing with ErrAttemptsExhausted
	// once maxAttempts attempts exist for the (quiz, student) pair.
	CreateQuizAttempt(ctx context.Context, a QuizAttempt, maxAttempts int) (QuizAttempt, error)
	ListQuizAttempts(ctx context.Context, f AttemptFilter, p pagination.Page) ([]QuizAttempt, int, error)
}

var (
	ErrSubmissionNotFound = apperr.NotFound("submission")
	ErrAlreadySubmitted   = apperr.Conflict("submission already exists for this assignment")
	ErrAlreadyGraded      = apperr.Conflict("submission has been graded and can no longer change")
	ErrAttemptsExhausted  = apperr.Conflict("no attempts left for this quiz")
	ErrNotEnrolled        = apperr.Authorization("enroll in this course first")
)

// SubmitInput is a student's submission.
type SubmitInput struct {
	Content       string `json:"content" validate:"required_without=AttachmentURL,max=20000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url,max=2048"`
}

// GradeInput is an instructor's grade.
type GradeInput struct {
	Score    *int   `json:"score" validate:"required,gte=0"`
	Feedback string `json:"feedback" validate:"max=5000"`
}

// AttemptInput reports a finished quiz attempt.
type AttemptInput struct {
	Score *int `json:"score" validate:"required,gte=0,lte=100"`
}

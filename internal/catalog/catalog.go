// Package catalog manages courses: metadata, publication state and instructor assignment.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/money"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// Status is the publication state of a course.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Level is the difficulty of a course.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Course is a catalog entry. InstructorName and EnrolledCount are read-only joins.
type Course struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	Level          Level       `json:"level"`
	Price          money.Cents `json:"price"`
	Status         Status      `json:"status"`
	InstructorID   *string     `json:"instructor_id"`
	InstructorName string      `json:"instructor_name"`
	EnrolledCount  int         `json:"enrolled_count"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OwnerID returns the instructor id or "" when unassigned.
func (c Course) OwnerID() string {
	if c.InstructorID == nil {
		return ""
	}
	return *c.InstructorID
}

// IsFree reports whether enrollment needs no payment.
func (c Course) IsFree() bool { return !c.Price.IsPositive() }

// Sort orders course listings.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortEnrolled  Sort = "enrolled"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

// ParseSort maps an empty value to SortNewest.
func ParseSort(s string) (Sort, error) {
	switch v := Sort(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return SortNewest, nil
	case SortNewest, SortEnrolled, SortPriceAsc, SortPriceDesc:
		return v, nil
	}
	return "", apperr.Field("sort", "sort must be one of newest, enrolled, price_asc, price_desc")
}

// Filter narrows ListCourses. When VisibleTo is set, drafts and archived
// courses are returned only if owned by that instructor.
type Filter struct {
	Status       Status
	Category     string
	Level        Level
	Search       string
	InstructorID string
	VisibleTo    string
	PublicOnly   bool
	Sort         Sort
}

// Store persists courses.
type Store interface {
	CreateCourse(ctx context.Context, c Course) (Course, error)
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context, f Filter, p pagination.Page) ([]Course, int, error)
	UpdateCourse(ctx context.Context, c Course) (Course, error)
	DeleteCourse(ctx context.Context, id string) error
}

var (
	ErrNotFound = apperr.NotFound("course")
	// ErrInUse is returned when content, enrollments or payments still reference the course.
	ErrInUse = apperr.Conflict("course still has content, enrollments or payments; remove them first")
	// ErrInstructorOnlyStatus is returned when an instructor patches anything but status.
	ErrInstructorOnlyStatus = apperr.Authorization("instructors may only change the status of their own courses")
	ErrNotInstructor        = apperr.Field("instructor_id", "instructor_id must reference an active instructor")
)

// CreateInput is the payload for a new course.
type CreateInput struct {
	Title        string      `json:"title" validate:"required,notblank,max=200"`
	Description  string      `json:"description" validate:"max=5000"`
	Category     string      `json:"category" validate:"required,notblank,max=100"`
	Level        Level       `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price        money.Cents `json:"price" validate:"gte=0"`
	InstructorID *string     `json:"instructor_id" validate:"omitempty,len=26"`
}

// Patch updates a course. Nil fields are left untouched.
type Patch struct {
	Title       *string      `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string      `json:"description" validate:"omitempty,max=5000"`
	Category    *string      `json:"category" validate:"omitempty,notblank,max=100"`
	Level       *Level       `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Price       *money.Cents `json:"price" validate:"omitempty,gte=0"`
	Status      *Status      `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (p Patch) onlyStatus() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Level == nil && p.Price == nil
}

func (p Patch) empty() bool { return p.onlyStatus() && p.Status == nil }

// Package content manages the tree under a course: modules and their lessons,
// plus assignments, quizzes and forums attached to the course.
package content

import (
	"context"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
)

// ContentType is the medium of a lesson.
type ContentType string

const (
	ContentPDF   ContentType = "pdf"
	ContentVideo ContentType = "video"
	ContentText  ContentType = "text"
)

// ForumCategory groups course forums.
type ForumCategory string

const (
	ForumGeneral       ForumCategory = "general"
	ForumQA            ForumCategory = "qa"
	ForumAnnouncements ForumCategory = "announcements"
	ForumAssignments   ForumCategory = "assignments"
	ForumProjects      ForumCategory = "projects"
	ForumResources     ForumCategory = "resources"
)

type Module struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Lesson belongs to a module. CourseID is denormalized from the module.
type Lesson struct {
	ID              string      `json:"id"`
	ModuleID        string      `json:"module_id"`
	CourseID        string      `json:"course_id"`
	Title           string      `json:"title"`
	ContentType     ContentType `json:"content_type"`
	ContentURL      string      `json:"content_url"`
	DocumentRef     string      `json:"document_ref"`
	Body            string      `json:"body"`
	DurationMinutes int         `json:"duration_minutes"`
	Position        int         `json:"position"`
	IsPublished     bool        `json:"is_published"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type Assignment struct {
	ID            string     `json:"id"`
	CourseID      string     `json:"course_id"`
	Title         string     `json:"title"`
	Instructions  string     `json:"instructions"`
	DueDate       *time.Time `json:"due_date"`
	MaxScore      int        `json:"max_score"`
	AttachmentURL string     `json:"attachment_url"`
	IsPublished   bool       `json:"is_published"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Quiz struct {
	ID               string    `json:"id"`
	CourseID         string    `json:"course_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DurationMinutes  int       `json:"duration_minutes"`
	PassingScore     int       `json:"passing_score"`
	MaxAttempts      int       `json:"max_attempts"`
	ShuffleQuestions bool      `json:"shuffle_questions"`
	IsPublished      bool      `json:"is_published"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Forum struct {
	ID          string        `json:"id"`
	CourseID    string        `json:"course_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    ForumCategory `json:"category"`
	IsPublished bool          `json:"is_published"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Store persists the content tree. Deletes of rows that still have children
// fail with the matching ErrXInUse error.
type Store interface {
	CreateModule(ctx context.Context, m Module) (Module, error)
	GetModule(ctx context.Context, id string) (Module, error)
	ListModules(ctx context.Context, courseID string) ([]Module, error)
	UpdateModule(ctx context.Context, m Module) (Module, error)
	DeleteModule(ctx context.Context, id string) error

	CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
	GetLesson(ctx context.Context, id string) (Lesson, error)
	ListLessons(ctx context.Context, moduleID string) ([]Lesson, error)
	UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
	DeleteLesson(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, courseID string) ([]Assignment, error)
	UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error

	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, courseID string) ([]Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error

	CreateForum(ctx context.Context, f Forum) (Forum, error)
	GetForum(ctx context.Context, id string) (Forum, error)
	ListForums(ctx context.Context, courseID string) ([]Forum, error)
	UpdateForum(ctx context.Context, f Forum) (Forum, error)
	DeleteForum(ctx context.Context, id string) error
}

var (
	ErrModuleNotFound     = apperr.NotFound("module")
	ErrLessonNotFound     = apperr.NotFound("lesson")
	ErrAssignmentNotFound = apperr.NotFound("assignment")
	ErrQuizNotFound       = apperr.NotFound("quiz")
	ErrForumNotFound      = apperr.NotFound("forum")

	// ErrModuleRequired is returned when a lesson names a module that does not exist.
	ErrModuleRequired = apperr.Field("module_id", "create a module first")

	ErrModuleInUse     = apperr.Conflict("module still has lessons; delete them first")
	ErrAssignmentInUse = apperr.Conflict("assignment has submissions and cannot be deleted")
	ErrQuizInUse       = apperr.Conflict("quiz has attempts and cannot be deleted")

	ErrNotEnrolled = apperr.Authorization("enroll in this course to access its assessments")
)

package content

import (
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
)

type ModuleInput struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Position    int    `json:"position" validate:"gte=0"`
}

type ModulePatch struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Position    *int    `json:"position" validate:"omitempty,gte=0"`
	IsPublished *bool   `json:"is_published"`
}

type LessonInput struct {
	Title           string      `json:"title" validate:"required,notblank,max=200"`
	ContentType     ContentType `json:"content_type" validate:"required,oneof=pdf video text"`
	ContentURL      string      `json:"content_url" validate:"omitempty,url,max=2048"`
	DocumentRef     string      `json:"document_ref" validate:"max=512"`
	Body            string      `json:"body"`
	DurationMinutes int         `json:"duration_minutes" validate:"gte=0"`
	Position        int         `json:"position" validate:"gte=0"`
}

type LessonPatch struct {
	Title           *string      `json:"title" validate:"omitempty,notblank,max=200"`
	ContentType     *ContentType `json:"content_type" validate:"omitempty,oneof=pdf video text"`
	ContentURL      *string      `json:"content_url" validate:"omitempty,url,max=2048"`
	DocumentRef     *string      `json:"document_ref" validate:"omitempty,max=512"`
	Body            *string      `json:"body"`
	DurationMinutes *int         `json:"duration_minutes" validate:"omitempty,gte=0"`
	Position        *int         `json:"position" validate:"omitempty,gte=0"`
	IsPublished     *bool        `json:"is_published"`
}

type AssignmentInput struct {
	Title         string     `json:"title" validate:"required,notblank,max=200"`
	Instructions  string     `json:"instructions"`
	DueDate       *time.Time `json:"due_date"`
	MaxScore      int        `json:"max_score" validate:"required,gt=0"`
	AttachmentURL string     `json:"attachment_url" validate:"omitempty,url,max=2048"`
}

type AssignmentPatch struct {
	Title         *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Instructions  *string    `json:"instructions"`
	DueDate       *time.Time `json:"due_date"`
	MaxScore      *int       `json:"max_score" validate:"omitempty,gt=0"`
	AttachmentURL *string    `json:"attachment_url" validate:"omitempty,url,max=2048"`
	IsPublished   *bool      `json:"is_published"`
}

type QuizInput struct {
	Title            string `json:"title" validate:"required,notblank,max=200"`
	Description      string `json:"description" validate:"max=5000"`
	DurationMinutes  int    `json:"duration_minutes" validate:"required,gt=0"`
	PassingScore     int    `json:"passing_score" validate:"gte=0,lte=100"`
	MaxAttempts      int    `json:"max_attempts" validate:"gte=0"`
	ShuffleQuestions bool   `json:"shuffle_questions"`
}

type QuizPatch struct {
	Title            *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description      *string `json:"description" validate:"omitempty,max=5000"`
	DurationMinutes  *int    `json:"duration_minutes" validate:"omitempty,gt=0"`
	PassingScore     *int    `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts      *int    `json:"max_attempts" validate:"omitempty,gte=1"`
	ShuffleQuestions *bool   `json:"shuffle_questions"`
	IsPublished      *bool   `json:"is_published"`
}

type ForumInput struct {
	Title       string        `json:"title" validate:"required,notblank,max=200"`
	Description string        `json:"description" validate:"max=5000"`
	Category    ForumCategory `json:"category" validate:"omitempty,oneof=general qa announcements assignments projects resources"`
}

type ForumPatch struct {
	Title       *string        `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string        `json:"description" validate:"omitempty,max=5000"`
	Category    *ForumCategory `json:"category" validate:"omitempty,oneof=general qa announcements assignments projects resources"`
	IsPublished *bool          `json:"is_published"`
}

// checkLessonBody enforces the medium-specific source: video needs a URL,
// pdf a document reference or URL, text a body.
func checkLessonBody(l Lesson) error {
	switch l.ContentType {
	case ContentVideo:
		if strings.TrimSpace(l.ContentURL) == "" {
			return apperr.Field("content_url", "content_url is required for video lessons")
		}
	case ContentPDF:
		if strings.TrimSpace(l.DocumentRef) == "" && strings.TrimSpace(l.ContentURL) == "" {
			return apperr.Field("document_ref", "document_ref or content_url is required for pdf lessons")
		}
	case ContentText:
		if strings.TrimSpace(l.Body) == "" {
			return apperr.Field("body", "body is required for text lessons")
		}
	}
	return nil
}

// Package analytics computes read-only aggregates over the LMS data. Every
// call recomputes from the store; nothing is cached.
package analytics

import (
	"context"
	"math"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/money"
)

// Counts are the raw totals behind the dashboard.
type Counts struct {
	Users                int         `json:"users"`
	Students             int         `json:"students"`
	Instructors          int         `json:"instructors"`
	Admins               int         `json:"admins"`
	Courses              int         `json:"courses"`
	PublishedCourses     int         `json:"published_courses"`
	DraftCourses         int         `json:"draft_courses"`
	ArchivedCourses      int         `json:"archived_courses"`
	Enrollments          int         `json:"enrollments"`
	ActiveEnrollments    int         `json:"active_enrollments"`
	CompletedEnrollments int         `json:"completed_enrollments"`
	CancelledEnrollments int         `json:"cancelled_enrollments"`
	Certificates         int         `json:"certificates"`
	Submissions          int         `json:"submissions"`
	QuizAttempts         int         `json:"quiz_attempts"`
	Payments             int         `json:"payments"`
	PaidRevenue          money.Cents `json:"paid_revenue"`
}

// Rates are percentages in [0, 100] rounded to two decimals.
type Rates struct {
	CompletionRate    float64 `json:"completion_rate"`
	PublishRate       float64 `json:"publish_rate"`
	CertificationRate float64 `json:"certification_rate"`
	SystemHealth      float64 `json:"system_health"`
}

// CourseStat is one course's enrollment and completion totals.
type CourseStat struct {
	CourseID       string  `json:"course_id"`
	Title          string  `json:"title"`
	InstructorID   string  `json:"instructor_id,omitempty"`
	Enrollments    int     `json:"enrollments"`
	Completions    int     `json:"completions"`
	CompletionRate float64 `json:"completion_rate"`
}

// TrendPoint is one bucket of a time series.
type TrendPoint struct {
	Period      string    `json:"period"`
	Start       time.Time `json:"start"`
	Enrollments int       `json:"enrollments"`
	Completions int       `json:"completions"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	Counts      Counts       `json:"counts"`
	Rates       Rates        `json:"rates"`
	Trend       []TrendPoint `json:"trend"`
	TopCourses  []CourseStat `json:"top_courses"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Unit is a trend bucket width.
type Unit string

const (
	UnitMonth Unit = "month"
	UnitDay   Unit = "day"
)

// Store supplies the aggregates. Buckets are keyed by their UTC start.
type Store interface {
	AnalyticsCounts(ctx context.Context) (Counts, error)
	EnrollmentBuckets(ctx context.Context, unit Unit, from time.Time) (enrolled, completed map[time.Time]int, err error)
	// CourseStats covers published courses, restricted to instructorID when set.
	CourseStats(ctx context.Context, instructorID string) ([]CourseStat, error)
}

// Truncate returns the UTC start of the bucket containing t.
func Truncate(t time.Time, unit Unit) time.Time {
	t = t.UTC()
	if unit == UnitDay {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Rate returns num/den as a percentage rounded to two decimals, 0 when den is 0.
func Rate(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return clamp(round2(float64(num) * 100 / float64(den)))
}

// Health is the equal-weight blend of publish and completion rates. With no
// courses and no enrollments the system counts as fully healthy; when only one
// side has data, that side alone decides.
func Health(c Counts) float64 {
	hasCourses := c.Courses > 0
	hasEnrollments := c.Enrollments > 0
	publish := Rate(c.PublishedCourses, c.Courses)
	completion := Rate(c.CompletedEnrollments, c.Enrollments)
	switch {
	case !hasCourses && !hasEnrollments:
		return 100
	case !hasEnrollments:
		return publish
	case !hasCourses:
		return completion
	}
	return clamp(round2(0.5*publish + 0.5*completion))
}

// ComputeRates derives all dashboard rates from counts.
func ComputeRates(c Counts) Rates {
	return Rates{
		CompletionRate:    Rate(c.CompletedEnrollments, c.Enrollments),
		PublishRate:       Rate(c.PublishedCourses, c.Courses),
		CertificationRate: Rate(c.Certificates, c.CompletedEnrollments),
		SystemHealth:      Health(c),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

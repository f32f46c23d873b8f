package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
)

const (
	dashboardMonths = 6
	topCourses      = 5

	defaultTrendDays = 7
	maxTrendMonths   = 24
	maxTrendDays     = 90

	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Dashboard returns counts, rates, a six-month trend and the most enrolled courses.
func (s *Service) Dashboard(ctx context.Context, actor auth.Actor) (Dashboard, error) {
	if err := auth.Authorize(actor, auth.ActionAnalyticsRead, auth.Target{}); err != nil {
		return Dashboard{}, err
	}
	counts, err := s.store.AnalyticsCounts(ctx)
	if err != nil {
		return Dashboard{}, apperr.Infra(err, "analytics counts")
	}
	now := s.now().UTC()
	trend, err := s.trend(ctx, UnitMonth, dashboardMonths, now)
	if err != nil {
		return Dashboard{}, err
	}
	stats, err := s.store.CourseStats(ctx, "")
	if err != nil {
		return Dashboard{}, apperr.Infra(err, "course stats")
	}
	withRates(stats)
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Enrollments != stats[j].Enrollments {
			return stats[i].Enrollments > stats[j].Enrollments
		}
		return strings.ToLower(stats[i].Title) < strings.ToLower(stats[j].Title)
	})
	if len(stats) > topCourses {
		stats = stats[:topCourses]
	}
	if stats == nil {
		stats = []CourseStat{}
	}
	return Dashboard{
		Counts:      counts,
		Rates:       ComputeRates(counts),
		Trend:       trend,
		TopCourses:  stats,
		GeneratedAt: now,
	}, nil
}

// TrendQuery selects the trend window. Months applies to monthly, Days to daily.
type TrendQuery struct {
	Period string
	Months int
	Days   int
}

// EnrollmentTrends buckets enrollments (by enrolled_at) and completions (by
// completed_at) per UTC month or day. Empty buckets are reported as zero.
func (s *Service) EnrollmentTrends(ctx context.Context, actor auth.Actor, q TrendQuery) ([]TrendPoint, error) {
	if err := auth.Authorize(actor, auth.ActionAnalyticsRead, auth.Target{}); err != nil {
		return nil, err
	}
	unit, n, err := q.resolve()
	if err != nil {
		return nil, err
	}
	return s.trend(ctx, unit, n, s.now().UTC())
}

func (q TrendQuery) resolve() (Unit, int, error) {
	switch strings.ToLower(strings.TrimSpace(q.Period)) {
	case "", "monthly":
		n := q.Months
		if n == 0 {
			n = dashboardMonths
		}
		if n < 1 || n > maxTrendMonths {
			return "", 0, apperr.Field("months", "months must be between 1 and 24")
		}
		return UnitMonth, n, nil
	case "daily":
		n := q.Days
		if n == 0 {
			n = defaultTrendDays
		}
		if n < 1 || n > maxTrendDays {
			return "", 0, apperr.Field("days", "days must be between 1 and 90")
		}
		return UnitDay, n, nil
	}
	return "", 0, apperr.Field("period", "period must be monthly or daily")
}

func (s *Service) trend(ctx context.Context, unit Unit, n int, now time.Time) ([]TrendPoint, error) {
	starts := bucketStarts(unit, n, now)
	enrolled, completed, err := s.store.EnrollmentBuckets(ctx, unit, starts[0])
	if err != nil {
		return nil, apperr.Infra(err, "enrollment buckets")
	}
	points := make([]TrendPoint, 0, n)
	for _, start := range starts {
		points = append(points, TrendPoint{
			Period:      label(start, unit),
			Start:       start,
			Enrollments: enrolled[start],
			Completions: completed[start],
		})
	}
	return points, nil
}

// bucketStarts returns the n bucket starts ending with the one containing now.
func bucketStarts(unit Unit, n int, now time.Time) []time.Time {
	last := Truncate(now, unit)
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		back := n - 1 - i
		if unit == UnitDay {
			out[i] = last.AddDate(0, 0, -back)
		} else {
			out[i] = last.AddDate(0, -back, 0)
		}
	}
	return out
}

func label(t time.Time, unit Unit) string {
	if unit == UnitDay {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01")
}

// CompletionRates ranks published courses by completion rate, ties broken by
// enrollment count and then title. Instructors only see their own courses.
func (s *Service) CompletionRates(ctx context.Context, actor auth.Actor, limit int) ([]CourseStat, error) {
	if err := auth.Authorize(actor, auth.ActionAnalyticsCourseRead, auth.Target{}); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = defaultRankingLimit
	}
	if limit < 1 || limit > maxRankingLimit {
		return nil, apperr.Field("limit", "limit must be between 1 and 100")
	}
	instructorID := ""
	if !actor.IsAdmin() {
		instructorID = actor.ID
	}
	stats, err := s.store.CourseStats(ctx, instructorID)
	if err != nil {
		return nil, apperr.Infra(err, "course stats")
	}
	withRates(stats)
	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.CompletionRate != b.CompletionRate {
			return a.CompletionRate > b.CompletionRate
		}
		if a.Enrollments != b.Enrollments {
			return a.Enrollments > b.Enrollments
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
	if len(stats) > limit {
		stats = stats[:limit]
	}
	if stats == nil {
		stats = []CourseStat{}
	}
	return stats, nil
}

func withRates(stats []CourseStat) {
	for i := range stats {
		stats[i].CompletionRate = Rate(stats[i].Completions, stats[i].Enrollments)
	}
}

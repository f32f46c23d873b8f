package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/analytics"
)

var _ analytics.Store = (*Store)(nil)

func (s *Store) AnalyticsCounts(ctx context.Context) (analytics.Counts, error) {
	var c analytics.Counts
	err := s.db.QueryRowContext(ctx, `
		select
			(select count(*) from users),
			(select count(*) from users where role = 'student'),
			(select count(*) from users where role = 'instructor'),
			(select count(*) from users where role = 'admin'),
			(select count(*) from courses),
			(select count(*) from courses where status = 'published'),
			(select count(*) from courses where status = 'draft'),
			(select count(*) from courses where status = 'archived'),
			(select count(*) from enrollments),
			(select count(*) from enrollments where status = 'active'),
			(select count(*) from enrollments where status = 'completed'),
			(select count(*) from enrollments where status = 'cancelled'),
			(select count(*) from certificates),
			(select count(*) from submissions),
			(select count(*) from quiz_attempts),
			(select count(*) from payments),
			(select coalesce(sum(amount_cents), 0) from payments where status = 'paid')
	`).Scan(&c.Users, &c.Students, &c.Instructors, &c.Admins,
		&c.Courses, &c.PublishedCourses, &c.DraftCourses, &c.ArchivedCourses,
		&c.Enrollments, &c.ActiveEnrollments, &c.CompletedEnrollments, &c.CancelledEnrollments,
		&c.Certificates, &c.Submissions, &c.QuizAttempts, &c.Payments, &c.PaidRevenue)
	if err != nil {
		return analytics.Counts{}, err
	}
	return c, nil
}

// EnrollmentBuckets groups enrollments and completions since from by the UTC
// start of their day or month.
func (s *Store) EnrollmentBuckets(ctx context.Context, unit analytics.Unit, from time.Time) (map[time.Time]int, map[time.Time]int, error) {
	if unit != analytics.UnitDay && unit != analytics.UnitMonth {
		return nil, nil, fmt.Errorf("unsupported bucket unit %q", unit)
	}
	enrolled, err := s.buckets(ctx, unit, "enrolled_at", from)
	if err != nil {
		return nil, nil, err
	}
	completed, err := s.buckets(ctx, unit, "completed_at", from)
	if err != nil {
		return nil, nil, err
	}
	return enrolled, completed, nil
}

// buckets counts rows of enrollments by date_trunc(unit, column). column is
// one of two fixed names, never user input.
func (s *Store) buckets(ctx context.Context, unit analytics.Unit, column string, from time.Time) (map[time.Time]int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select date_trunc($1, %[1]s at time zone 'UTC') as bucket, count(*)
		from enrollments
		where %[1]s is not null and %[1]s >= $2
		group by bucket
	`, column), string(unit), from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[time.Time]int{}
	for rows.Next() {
		var (
			bucket time.Time
			n      int
		)
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, err
		}
		out[analytics.Truncate(bucket, unit)] += n
	}
	return out, rows.Err()
}

func (s *Store) CourseStats(ctx context.Context, instructorID string) ([]analytics.CourseStat, error) {
	var w where
	w.raw("c.status = 'published'")
	if instructorID != "" {
		w.add("c.instructor_id = $%d", instructorID)
	}
	return listOf(ctx, s.db, func(row scanner) (analytics.CourseStat, error) {
		var st analytics.CourseStat
		err := row.Scan(&st.CourseID, &st.Title, &st.InstructorID, &st.Enrollments, &st.Completions)
		return st, err
	}, `
		select c.id, c.title, coalesce(c.instructor_id, ''),
		       count(e.id), count(e.id) filter (where e.status = 'completed')
		from courses c
		left join enrollments e on e.course_id = c.id
		`+w.String()+`
		group by c.id, c.title, c.instructor_id
		order by c.id
	`, w.args...)
}

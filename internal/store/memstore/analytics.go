package memstore

import (
	"context"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/analytics"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
)

var _ analytics.Store = (*Store)(nil)

func (s *Store) AnalyticsCounts(_ context.Context) (analytics.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c analytics.Counts
	for _, u := range s.users {
		c.Users++
		switch u.Role {
		case auth.RoleStudent:
			c.Students++
		case auth.RoleInstructor:
			c.Instructors++
		case auth.RoleAdmin:
			c.Admins++
		}
	}
	for _, course := range s.courses {
		c.Courses++
		switch course.Status {
		case catalog.StatusPublished:
			c.PublishedCourses++
		case catalog.StatusDraft:
			c.DraftCourses++
		case catalog.StatusArchived:
			c.ArchivedCourses++
		}
	}
	for _, e := range s.enrollments {
		c.Enrollments++
		switch e.Status {
		case enrollment.StatusActive:
			c.ActiveEnrollments++
		case enrollment.StatusCompleted:
			c.CompletedEnrollments++
		case enrollment.StatusCancelled:
			c.CancelledEnrollments++
		}
	}
	c.Certificates = len(s.certificates)
	c.Submissions = len(s.submissions)
	c.QuizAttempts = len(s.attempts)
	for _, p := range s.payments {
		c.Payments++
		if p.Status == payment.StatusPaid {
			c.PaidRevenue += p.Amount
		}
	}
	return c, nil
}

func (s *Store) EnrollmentBuckets(_ context.Context, unit analytics.Unit, from time.Time) (map[time.Time]int, map[time.Time]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enrolled := map[time.Time]int{}
	completed := map[time.Time]int{}
	for _, e := range s.enrollments {
		if !e.EnrolledAt.Before(from) {
			enrolled[analytics.Truncate(e.EnrolledAt, unit)]++
		}
		if e.CompletedAt != nil && !e.CompletedAt.Before(from) {
			completed[analytics.Truncate(*e.CompletedAt, unit)]++
		}
	}
	return enrolled, completed, nil
}

func (s *Store) CourseStats(_ context.Context, instructorID string) ([]analytics.CourseStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []analytics.CourseStat
	for _, c := range values(s.courses) {
		if c.Status != catalog.StatusPublished {
			continue
		}
		if instructorID != "" && c.OwnerID() != instructorID {
			continue
		}
		st := analytics.CourseStat{CourseID: c.ID, Title: c.Title, InstructorID: c.OwnerID()}
		for _, e := range s.enrollments {
			if e.CourseID != c.ID {
				continue
			}
			st.Enrollments++
			if e.Status == enrollment.StatusCompleted {
				st.Completions++
			}
		}
		out = append(out, st)
	}
	return out, nil
}

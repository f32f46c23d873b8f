package memstore

import (
	"context"
	"sort"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

var _ enrollment.Store = (*Store)(nil)

// EnrollStudent mirrors the insert ... on conflict do update where status =
// 'cancelled' statement: one row per (student, course), reactivated in place.
func (s *Store) EnrollStudent(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[e.StudentID]; !ok {
		return enrollment.Enrollment{}, false, users.ErrNotFound
	}
	if _, ok := s.courses[e.CourseID]; !ok {
		return enrollment.Enrollment{}, false, catalog.ErrNotFound
	}
	for id, existing := range s.enrollments {
		if existing.StudentID != e.StudentID || existing.CourseID != e.CourseID {
			continue
		}
		if existing.Status != enrollment.StatusCancelled {
			return enrollment.Enrollment{}, false, enrollment.ErrAlreadyEnrolled
		}
		existing.Status = enrollment.StatusActive
		existing.CancelledAt = nil
		existing.UpdatedAt = e.UpdatedAt
		s.enrollments[id] = existing
		return s.enrollmentView(existing), true, nil
	}
	s.enrollments[e.ID] = e
	return s.enrollmentView(e), false, nil
}

func (s *Store) enrollmentView(e enrollment.Enrollment) enrollment.Enrollment {
	if c, ok := s.courses[e.CourseID]; ok {
		e.CourseTitle = c.Title
	}
	if u, ok := s.users[e.StudentID]; ok {
		e.StudentName = u.FullName
	}
	e.CompletedAt = ptrTime(e.CompletedAt)
	e.CancelledAt = ptrTime(e.CancelledAt)
	return e
}

func (s *Store) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return s.enrollmentView(e), nil
}

func (s *Store) FindEnrollment(_ context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return s.enrollmentView(e), nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (s *Store) IsEnrolled(_ context.Context, studentID, courseID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e.Live(), nil
		}
	}
	return false, nil
}

func (s *Store) ListEnrollments(_ context.Context, f enrollment.Filter, p pagination.Page) ([]enrollment.Enrollment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []enrollment.Enrollment
	for _, e := range s.enrollments {
		switch {
		case f.StudentID != "" && e.StudentID != f.StudentID:
			continue
		case f.CourseID != "" && e.CourseID != f.CourseID:
			continue
		case f.Status != "" && e.Status != f.Status:
			continue
		case f.InstructorID != "" && s.courseOwner(e.CourseID) != f.InstructorID:
			continue
		}
		all = append(all, s.enrollmentView(e))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].EnrolledAt.Equal(all[j].EnrolledAt) {
			return all[i].EnrolledAt.After(all[j].EnrolledAt)
		}
		return all[i].ID > all[j].ID
	})
	res := pagination.Slice(all, p)
	return res.Items, res.Total, nil
}

func (s *Store) courseOwner(courseID string) string {
	if c, ok := s.courses[courseID]; ok {
		return c.OwnerID()
	}
	return ""
}

// MutateEnrollment holds the write lock across fn, the in-memory equivalent
// of select ... for update.
func (s *Store) MutateEnrollment(_ context.Context, id string, fn enrollment.Mutation) (enrollment.Enrollment, enrollment.Enrollment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.Enrollment{}, false, enrollment.ErrNotFound
	}
	before := s.enrollmentView(current)
	next, changed, err := fn(before)
	if err != nil {
		return enrollment.Enrollment{}, enrollment.Enrollment{}, false, err
	}
	if !changed {
		return before, before, false, nil
	}
	next.CourseTitle, next.StudentName = "", ""
	s.enrollments[id] = next
	return before, s.enrollmentView(next), true, nil
}

func (s *Store) IssueCertificate(_ context.Context, c enrollment.Certificate) (enrollment.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[c.EnrollmentID]; !ok {
		return enrollment.Certificate{}, enrollment.ErrNotFound
	}
	for _, existing := range s.certificates {
		if existing.EnrollmentID == c.EnrollmentID {
			return enrollment.Certificate{}, enrollment.ErrCertificateExists
		}
	}
	s.certificates[c.ID] = c
	if course, ok := s.courses[c.CourseID]; ok {
		c.CourseTitle = course.Title
	}
	return c, nil
}

func (s *Store) ListCertificates(_ context.Context, studentID string) ([]enrollment.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := filterSorted(s.certificates,
		func(c enrollment.Certificate) bool { return c.StudentID == studentID },
		func(a, b enrollment.Certificate) bool { return a.IssuedAt.After(b.IssuedAt) })
	for i := range out {
		if course, ok := s.courses[out[i].CourseID]; ok {
			out[i].CourseTitle = course.Title
		}
	}
	return out, nil
}

package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

var _ catalog.Store = (*Store)(nil)

func (s *Store) CreateCourse(_ context.Context, c catalog.Course) (catalog.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
	return s.courseView(c), nil
}

// GetCourse also satisfies the CourseReader of the dependent services.
func (s *Store) GetCourse(_ context.Context, id string) (catalog.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return catalog.Course{}, catalog.ErrNotFound
	}
	return s.courseView(c), nil
}

// courseView fills the read-only joined columns. Callers hold the lock.
func (s *Store) courseView(c catalog.Course) catalog.Course {
	c.InstructorName = ""
	if c.InstructorID != nil {
		if u, ok := s.users[*c.InstructorID]; ok {
			c.InstructorName = u.FullName
		}
		id := *c.InstructorID
		c.InstructorID = &id
	}
	c.EnrolledCount = 0
	for _, e := range s.enrollments {
		if e.CourseID == c.ID && e.Status != enrollment.StatusCancelled {
			c.EnrolledCount++
		}
	}
	return c
}

func (s *Store) ListCourses(_ context.Context, f catalog.Filter, p pagination.Page) ([]catalog.Course, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(f.Search)
	var all []catalog.Course
	for _, raw := range s.courses {
		c := s.courseView(raw)
		switch {
		case f.PublicOnly && c.Status != catalog.StatusPublished:
			continue
		case f.VisibleTo != "" && c.Status != catalog.StatusPublished && c.OwnerID() != f.VisibleTo:
			continue
		case f.Status != "" && c.Status != f.Status:
			continue
		case f.Category != "" && !strings.EqualFold(c.Category, f.Category):
			continue
		case f.Level != "" && c.Level != f.Level:
			continue
		case f.InstructorID != "" && c.OwnerID() != f.InstructorID:
			continue
		case needle != "" && !containsFold(needle, c.Title, c.Description, c.InstructorName):
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch f.Sort {
		case catalog.SortEnrolled:
			if a.EnrolledCount != b.EnrolledCount {
				return a.EnrolledCount > b.EnrolledCount
			}
		case catalog.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case catalog.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	res := pagination.Slice(all, p)
	return res.Items, res.Total, nil
}

func (s *Store) UpdateCourse(_ context.Context, c catalog.Course) (catalog.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[c.ID]; !ok {
		return catalog.Course{}, catalog.ErrNotFound
	}
	c.InstructorName = ""
	c.EnrolledCount = 0
	s.courses[c.ID] = c
	return s.courseView(c), nil
}

// DeleteCourse refuses while anything references the course (on delete restrict).
func (s *Store) DeleteCourse(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return catalog.ErrNotFound
	}
	if s.courseReferenced(id) {
		return catalog.ErrInUse
	}
	delete(s.courses, id)
	return nil
}

func (s *Store) courseReferenced(id string) bool {
	for _, m := range s.modules {
		if m.CourseID == id {
			return true
		}
	}
	for _, a := range s.assignments {
		if a.CourseID == id {
			return true
		}
	}
	for _, q := range s.quizzes {
		if q.CourseID == id {
			return true
		}
	}
	for _, f := range s.forums {
		if f.CourseID == id {
			return true
		}
	}
	for _, e := range s.enrollments {
		if e.CourseID == id {
			return true
		}
	}
	for _, p := range s.payments {
		if p.CourseID == id {
			return true
		}
	}
	return false
}

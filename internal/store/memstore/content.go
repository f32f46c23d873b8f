package memstore

import (
	"context"
	"sort"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
)

var _ content.Store = (*Store)(nil)

func filterSorted[T any](m map[string]T, keep func(T) bool, less func(a, b T) bool) []T {
	out := []T{}
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (s *Store) CreateModule(_ context.Context, m content.Module) (content.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[m.CourseID]; !ok {
		return content.Module{}, catalog.ErrNotFound
	}
	s.modules[m.ID] = m
	return m, nil
}

func (s *Store) GetModule(_ context.Context, id string) (content.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[id]
	if !ok {
		return content.Module{}, content.ErrModuleNotFound
	}
	return m, nil
}

func (s *Store) ListModules(_ context.Context, courseID string) ([]content.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSorted(s.modules,
		func(m content.Module) bool { return m.CourseID == courseID },
		func(a, b content.Module) bool {
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.ID < b.ID
		}), nil
}

func (s *Store) UpdateModule(_ context.Context, m content.Module) (content.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[m.ID]; !ok {
		return content.Module{}, content.ErrModuleNotFound
	}
	s.modules[m.ID] = m
	return m, nil
}

func (s *Store) DeleteModule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[id]; !ok {
		return content.ErrModuleNotFound
	}
	for _, l := range s.lessons {
		if l.ModuleID == id {
			return content.ErrModuleInUse
		}
	}
	delete(s.modules, id)
	return nil
}

func (s *Store) CreateLesson(_ context.Context, l content.Lesson) (content.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[l.ModuleID]; !ok {
		return content.Lesson{}, content.ErrModuleNotFound
	}
	s.lessons[l.ID] = l
	return l, nil
}

func (s *Store) GetLesson(_ context.Context, id string) (content.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lessons[id]
	if !ok {
		return content.Lesson{}, content.ErrLessonNotFound
	}
	return l, nil
}

func (s *Store) ListLessons(_ context.Context, moduleID string) ([]content.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSorted(s.lessons,
		func(l content.Lesson) bool { return l.ModuleID == moduleID },
		func(a, b content.Lesson) bool {
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.ID < b.ID
		}), nil
}

func (s *Store) UpdateLesson(_ context.Context, l content.Lesson) (content.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[l.ID]; !ok {
		return content.Lesson{}, content.ErrLessonNotFound
	}
	s.lessons[l.ID] = l
	return l, nil
}

func (s *Store) DeleteLesson(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[id]; !ok {
		return content.ErrLessonNotFound
	}
	delete(s.lessons, id)
	return nil
}

// ascending orders by key; ids are ULIDs, so ordering by id is creation order.
func ascending[T any](key func(T) string) func(a, b T) bool {
	return func(a, b T) bool { return key(a) < key(b) }
}

func (s *Store) CreateAssignment(_ context.Context, a content.Assignment) (content.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[a.CourseID]; !ok {
		return content.Assignment{}, catalog.ErrNotFound
	}
	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) GetAssignment(_ context.Context, id string) (content.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return content.Assignment{}, content.ErrAssignmentNotFound
	}
	return a, nil
}

func (s *Store) ListAssignments(_ context.Context, courseID string) ([]content.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSorted(s.assignments,
		func(a content.Assignment) bool { return a.CourseID == courseID },
		ascending(func(a content.Assignment) string { return a.ID })), nil
}

func (s *Store) UpdateAssignment(_ context.Context, a content.Assignment) (content.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID]; !ok {
		return content.Assignment{}, content.ErrAssignmentNotFound
	}
	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAssignment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[id]; !ok {
		return content.ErrAssignmentNotFound
	}
	for _, sub := range s.submissions {
		if sub.AssignmentID == id {
			return content.ErrAssignmentInUse
		}
	}
	delete(s.assignments, id)
	return nil
}

func (s *Store) CreateQuiz(_ context.Context, q content.Quiz) (content.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[q.CourseID]; !ok {
		return content.Quiz{}, catalog.ErrNotFound
	}
	s.quizzes[q.ID] = q
	return q, nil
}

func (s *Store) GetQuiz(_ context.Context, id string) (content.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	if !ok {
		return content.Quiz{}, content.ErrQuizNotFound
	}
	return q, nil
}

func (s *Store) ListQuizzes(_ context.Context, courseID string) ([]content.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSorted(s.quizzes,
		func(q content.Quiz) bool { return q.CourseID == courseID },
		ascending(func(q content.Quiz) string { return q.ID })), nil
}

func (s *Store) UpdateQuiz(_ context.Context, q content.Quiz) (content.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.ID]; !ok {
		return content.Quiz{}, content.ErrQuizNotFound
	}
	s.quizzes[q.ID] = q
	return q, nil
}

func (s *Store) DeleteQuiz(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[id]; !ok {
		return content.ErrQuizNotFound
	}
	for _, a := range s.attempts {
		if a.QuizID == id {
			return content.ErrQuizInUse
		}
	}
	delete(s.quizzes, id)
	return nil
}

func (s *Store) CreateForum(_ context.Context, f content.Forum) (content.Forum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[f.CourseID]; !ok {
		return content.Forum{}, catalog.ErrNotFound
	}
	s.forums[f.ID] = f
	return f, nil
}

func (s *Store) GetForum(_ context.Context, id string) (content.Forum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forums[id]
	if !ok {
		return content.Forum{}, content.ErrForumNotFound
	}
	return f, nil
}

func (s *Store) ListForums(_ context.Context, courseID string) ([]content.Forum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterSorted(s.forums,
		func(f content.Forum) bool { return f.CourseID == courseID },
		ascending(func(f content.Forum) string { return f.ID })), nil
}

func (s *Store) UpdateForum(_ context.Context, f content.Forum) (content.Forum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forums[f.ID]; !ok {
		return content.Forum{}, content.ErrForumNotFound
	}
	s.forums[f.ID] = f
	return f, nil
}

func (s *Store) DeleteForum(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forums[id]; !ok {
		return content.ErrForumNotFound
	}
	delete(s.forums, id)
	return nil
}

package memstore

import (
	"context"
	"sort"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/assessment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

var _ assessment.Store = (*Store)(nil)

func (s *Store) CreateSubmission(_ context.Context, sub assessment.Submission) (assessment.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[sub.AssignmentID]; !ok {
		return assessment.Submission{}, content.ErrAssignmentNotFound
	}
	for _, existing := range s.submissions {
		if existing.AssignmentID == sub.AssignmentID && existing.StudentID == sub.StudentID {
			return assessment.Submission{}, assessment.ErrAlreadySubmitted
		}
	}
	s.submissions[sub.ID] = sub
	return sub, nil
}

func (s *Store) GetSubmission(_ context.Context, id string) (assessment.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) FindSubmission(_ context.Context, assignmentID, studentID string) (assessment.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			return sub, nil
		}
	}
	return assessment.Submission{}, assessment.ErrSubmissionNotFound
}

func (s *Store) UpdateSubmission(_ context.Context, sub assessment.Submission) (assessment.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[sub.ID]; !ok {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	s.submissions[sub.ID] = sub
	return sub, nil
}

func (s *Store) ListSubmissions(_ context.Context, f assessment.SubmissionFilter, p pagination.Page) ([]assessment.Submission, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []assessment.Submission
	for _, sub := range s.submissions {
		switch {
		case f.AssignmentID != "" && sub.AssignmentID != f.AssignmentID:
			continue
		case f.CourseID != "" && sub.CourseID != f.CourseID:
			continue
		case f.StudentID != "" && sub.StudentID != f.StudentID:
			continue
		case f.Status != "" && sub.Status != f.Status:
			continue
		case f.InstructorID != "" && s.courseOwner(sub.CourseID) != f.InstructorID:
			continue
		}
		all = append(all, sub)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	res := pagination.Slice(all, p)
	return res.Items, res.Total, nil
}

// CreateQuizAttempt counts and inserts under one lock, like the serialized
// count-then-insert in Postgres.
func (s *Store) CreateQuizAttempt(_ context.Context, a assessment.QuizAttempt, maxAttempts int) (assessment.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[a.QuizID]; !ok {
		return assessment.QuizAttempt{}, content.ErrQuizNotFound
	}
	used := 0
	for _, existing := range s.attempts {
		if existing.QuizID == a.QuizID && existing.StudentID == a.StudentID {
			used++
		}
	}
	if maxAttempts > 0 && used >= maxAttempts {
		return assessment.QuizAttempt{}, assessment.ErrAttemptsExhausted
	}
	a.AttemptNumber = used + 1
	s.attempts[a.ID] = a
	return a, nil
}

func (s *Store) ListQuizAttempts(_ context.Context, f assessment.AttemptFilter, p pagination.Page) ([]assessment.QuizAttempt, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []assessment.QuizAttempt
	for _, a := range s.attempts {
		if f.QuizID != "" && a.QuizID != f.QuizID {
			continue
		}
		if f.StudentID != "" && a.StudentID != f.StudentID {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	res := pagination.Slice(all, p)
	return res.Items, res.Total, nil
}

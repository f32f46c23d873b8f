// Package memstore is an in-process implementation of every store interface.
// It mirrors the Postgres constraints (uniqueness, restrict and cascade rules)
// so services behave the same against it. Used by tests and local demos.
package memstore

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/assessment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/catalog"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/content"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/enrollment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/payment"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/settings"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/users"
)

// Store holds all state behind one lock.
type Store struct {
	mu sync.RWMutex

	users        map[string]users.User
	courses      map[string]catalog.Course
	modules      map[string]content.Module
	lessons      map[string]content.Lesson
	assignments  map[string]content.Assignment
	quizzes      map[string]content.Quiz
	forums       map[string]content.Forum
	enrollments  map[string]enrollment.Enrollment
	certificates map[string]enrollment.Certificate
	submissions  map[string]assessment.Submission
	attempts     map[string]assessment.QuizAttempt
	payments     map[string]payment.Payment
	settings     map[string]settings.Setting
	auditLog     []audit.Entry

	// failAudit makes audit appends fail, for exercising the non-failing recorder.
	failAudit error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]users.User),
		courses:      make(map[string]catalog.Course),
		modules:      make(map[string]content.Module),
		lessons:      make(map[string]content.Lesson),
		assignments:  make(map[string]content.Assignment),
		quizzes:      make(map[string]content.Quiz),
		forums:       make(map[string]content.Forum),
		enrollments:  make(map[string]enrollment.Enrollment),
		certificates: make(map[string]enrollment.Certificate),
		submissions:  make(map[string]assessment.Submission),
		attempts:     make(map[string]assessment.QuizAttempt),
		payments:     make(map[string]payment.Payment),
		settings:     make(map[string]settings.Setting),
	}
}

// FailAuditWrites makes subsequent audit appends return err (nil restores).
func (s *Store) FailAuditWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAudit = err
}

// Ping always succeeds; it satisfies the readiness probe.
func (s *Store) Ping(context.Context) error { return nil }

// Dump writes a JSON snapshot of the whole store. It is the in-memory
// counterpart of the Postgres SQL dump.
func (s *Store) Dump(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := map[string]any{
		"taken_at":        time.Now().UTC(),
		"users":           values(s.users),
		"courses":         values(s.courses),
		"modules":         values(s.modules),
		"lessons":         values(s.lessons),
		"assignments":     values(s.assignments),
		"quizzes":         values(s.quizzes),
		"forums":          values(s.forums),
		"enrollments":     values(s.enrollments),
		"certificates":    values(s.certificates),
		"submissions":     values(s.submissions),
		"quiz_attempts":   values(s.attempts),
		"payments":        values(s.payments),
		"system_settings": values(s.settings),
		"audit_logs":      s.auditLog,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

// values returns map values ordered by key so output is deterministic.
func values[T any](m map[string]T) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func ptrTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

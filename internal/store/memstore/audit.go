package memstore

import (
	"context"
	"sort"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

var _ audit.Store = (*Store)(nil)

func (s *Store) AppendAuditEntry(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAudit != nil {
		return s.failAudit
	}
	s.auditLog = append(s.auditLog, e)
	return nil
}

// ListAuditEntries returns newest first by (created_at, id).
func (s *Store) ListAuditEntries(_ context.Context, f audit.Filter, p pagination.Page) ([]audit.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []audit.Entry
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		if f.Match(s.auditLog[i]) {
			matched = append(matched, s.auditLog[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return audit.CursorOf(matched[i]).After(matched[j])
	})
	res := pagination.Slice(matched, p)
	return res.Items, res.Total, nil
}

func (s *Store) GetAuditEntry(_ context.Context, id string) (audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.auditLog {
		if e.ID == id {
			return e, nil
		}
	}
	return audit.Entry{}, audit.ErrNotFound
}

func (s *Store) ReplaceAuditEntry(_ context.Context, id string, tombstone audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAudit != nil {
		return s.failAudit
	}
	for i, e := range s.auditLog {
		if e.ID == id {
			s.auditLog = append(s.auditLog[:i:i], s.auditLog[i+1:]...)
			s.auditLog = append(s.auditLog, tombstone)
			return nil
		}
	}
	return audit.ErrNotFound
}

// AuditEntries returns a copy of the whole log, oldest first.
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.auditLog))
	copy(out, s.auditLog)
	return out
}

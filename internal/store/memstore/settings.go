package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/settings"
)

var _ settings.Store = (*Store)(nil)

func (s *Store) ListSettings(_ context.Context) ([]settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.settings), nil
}

func (s *Store) GetSetting(_ context.Context, key string) (settings.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settings[key]
	if !ok {
		return settings.Setting{}, settings.ErrNotFound
	}
	return st, nil
}

func (s *Store) ApplySettings(_ context.Context, vals map[string]string, by string, at time.Time) ([]settings.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var changes []settings.Change
	for _, key := range keys {
		next := vals[key]
		current, exists := s.settings[key]
		if exists && current.Value == next {
			continue
		}
		ch := settings.Change{Key: key, New: next}
		if exists {
			old := current.Value
			ch.Old = &old
		}
		var updatedBy *string
		if by != "" {
			b := by
			updatedBy = &b
		}
		s.settings[key] = settings.Setting{Key: key, Value: next, UpdatedBy: updatedBy, UpdatedAt: at}
		changes = append(changes, ch)
	}
	return changes, nil
}

package pg

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/settings"
)

var _ settings.Store = (*Store)(nil)

func scanSetting(row scanner) (settings.Setting, error) {
	var st settings.Setting
	err := row.Scan(&st.Key, &st.Value, &st.UpdatedBy, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Setting{}, settings.ErrNotFound
	}
	return st, err
}

func (s *Store) ListSettings(ctx context.Context) ([]settings.Setting, error) {
	return listOf(ctx, s.db, scanSetting, `select key, value, updated_by, updated_at from system_settings order by key`)
}

func (s *Store) GetSetting(ctx context.Context, key string) (settings.Setting, error) {
	return scanSetting(s.db.QueryRowContext(ctx,
		`select key, value, updated_by, updated_at from system_settings where key = $1`, key))
}

// ApplySettings locks each existing key in key order, skips unchanged values
// and upserts the rest, all in one transaction.
func (s *Store) ApplySettings(ctx context.Context, values map[string]string, by string, at time.Time) ([]settings.Change, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var changes []settings.Change
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			next := values[key]
			var current string
			err := tx.QueryRowContext(ctx, `select value from system_settings where key = $1 for update`, key).Scan(&current)
			exists := err == nil
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if exists && current == next {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				insert into system_settings (key, value, updated_by, updated_at)
				values ($1, $2, $3, $4)
				on conflict (key) do update
				set value = excluded.value, updated_by = excluded.updated_by, updated_at = excluded.updated_at
			`, key, next, nullIfEmpty(by), at); err != nil {
				return err
			}
			ch := settings.Change{Key: key, New: next}
			if exists {
				old := current
				ch.Old = &old
			}
			changes = append(changes, ch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

var _ audit.Store = (*Store)(nil)

const auditColumns = `id, actor_user_id, action, target_table, target_id, old_values, new_values, ip_address, request_id, created_at`

// jsonValues encodes a snapshot for a jsonb column. nil maps become NULL.
func jsonValues(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode audit values: %w", err)
	}
	return string(raw), nil
}

func decodeValues(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode audit values: %w", err)
	}
	return out, nil
}

func scanAuditEntry(row scanner) (audit.Entry, error) {
	var (
		e              audit.Entry
		oldRaw, newRaw []byte
	)
	err := row.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.TargetTable, &e.TargetID, &oldRaw, &newRaw,
		&e.IPAddress, &e.RequestID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, audit.ErrNotFound
	}
	if err != nil {
		return audit.Entry{}, err
	}
	if e.OldValues, err = decodeValues(oldRaw); err != nil {
		return audit.Entry{}, err
	}
	if e.NewValues, err = decodeValues(newRaw); err != nil {
		return audit.Entry{}, err
	}
	return e, nil
}

func appendAudit(ctx context.Context, db querier, e audit.Entry) error {
	oldVals, err := jsonValues(e.OldValues)
	if err != nil {
		return err
	}
	newVals, err := jsonValues(e.NewValues)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		insert into audit_logs (`+auditColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.ActorUserID, string(e.Action), e.TargetTable, e.TargetID, oldVals, newVals,
		e.IPAddress, e.RequestID, e.CreatedAt)
	return err
}

func (s *Store) AppendAuditEntry(ctx context.Context, e audit.Entry) error {
	return appendAudit(ctx, s.db, e)
}

func (s *Store) ListAuditEntries(ctx context.Context, f audit.Filter, p pagination.Page) ([]audit.Entry, int, error) {
	var w where
	if f.Action != "" {
		w.add("action = $%d", string(f.Action))
	}
	if f.Table != "" {
		w.add("target_table = $%d", f.Table)
	}
	if f.ActorUserID != "" {
		w.add("actor_user_id = $%d", f.ActorUserID)
	}
	if !f.From.IsZero() {
		w.add("created_at >= $%d", f.From)
	}
	if !f.Before.IsZero() {
		w.add("created_at < $%d", f.Before)
	}
	if c := f.OlderThan; c != nil {
		w.addPair("(created_at, id) < ($%d, $%d)", c.CreatedAt, c.ID)
	}
	total, err := s.count(ctx, "audit_logs", &w)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(p)
	out, err := listOf(ctx, s.db, scanAuditEntry,
		`select `+auditColumns+` from audit_logs`+w.String()+` order by created_at desc, id desc`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) GetAuditEntry(ctx context.Context, id string) (audit.Entry, error) {
	return scanAuditEntry(s.db.QueryRowContext(ctx, `select `+auditColumns+` from audit_logs where id = $1`, id))
}

// ReplaceAuditEntry removes id and records the tombstone atomically, so the
// trail never loses a deletion silently.
func (s *Store) ReplaceAuditEntry(ctx context.Context, id string, tombstone audit.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `delete from audit_logs where id = $1`, id)
		if err != nil {
			return err
		}
		if err := affected(res, audit.ErrNotFound); err != nil {
			return err
		}
		return appendAudit(ctx, tx, tombstone)
	})
}

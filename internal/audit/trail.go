package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// Recorder is what mutating services depend on. Record never fails the caller:
// storage errors are logged and counted instead.
type Recorder interface {
	Record(ctx context.Context, action Action, table, targetID string, oldValues, newValues any)
}

// Trail records, queries, exports and purges audit entries.
type Trail struct {
	store Store
	now   func() time.Time
}

var _ Recorder = (*Trail)(nil)

// Option configures Trail.
type Option func(*Trail)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(t *Trail) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTrail constructs a Trail over store.
func NewTrail(store Store, opts ...Option) *Trail {
	t := &Trail{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Build assembles an entry from context (actor, ip, request id) and snapshots.
func (t *Trail) Build(ctx context.Context, action Action, table, targetID string, oldValues, newValues any) (Entry, error) {
	oldSnap, err := Snapshot(oldValues)
	if err != nil {
		return Entry{}, err
	}
	newSnap, err := Snapshot(newValues)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:          ids.New(),
		Action:      action,
		TargetTable: table,
		TargetID:    targetID,
		OldValues:   oldSnap,
		NewValues:   newSnap,
		IPAddress:   clientIPFromContext(ctx),
		RequestID:   requestIDFromContext(ctx),
		CreatedAt:   t.now().UTC(),
	}
	if actor, ok := auth.ActorFromContext(ctx); ok {
		id := actor.ID
		e.ActorUserID = &id
	}
	return e, nil
}

// Append stores an entry and mirrors it to the structured log.
func (t *Trail) Append(ctx context.Context, e Entry) error {
	if err := t.store.AppendAuditEntry(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	logEntry(e)
	return nil
}

// Record builds and appends an entry. Failures are surfaced to operators
// (error log + lms_audit_write_failures_total) and not to the caller.
func (t *Trail) Record(ctx context.Context, action Action, table, targetID string, oldValues, newValues any) {
	e, err := t.Build(ctx, action, table, targetID, oldValues, newValues)
	if err == nil {
		err = t.Append(ctx, e)
	}
	if err != nil {
		obs.AuditWriteFailures.Inc()
		obs.Logger().Error("audit write failed",
			zap.Error(err),
			zap.String("action", string(action)),
			zap.String("target_table", table),
			zap.String("target_id", targetID),
			zap.String("request_id", requestIDFromContext(ctx)),
		)
	}
}

// Query returns a page of entries matching f.
func (t *Trail) Query(ctx context.Context, actor auth.Actor, f Filter, p pagination.Page) (pagination.Result[Entry], error) {
	if err := auth.Authorize(actor, auth.ActionAuditRead, auth.Target{}); err != nil {
		return pagination.Result[Entry]{}, err
	}
	p = p.Normalize()
	items, total, err := t.store.ListAuditEntries(ctx, f, p)
	if err != nil {
		return pagination.Result[Entry]{}, apperr.Infra(err, "list audit entries")
	}
	return pagination.NewResult(items, total, p), nil
}

// CSVHeader is the first row of every export.
var CSVHeader = []string{
	"id", "created_at", "actor_user_id", "action", "target_table", "target_id",
	"ip_address", "old_values", "new_values",
}

// Export streams every entry matching f to w as CSV, newest first, and returns
// the number of data rows written. Batches continue past the last row seen,
// so entries recorded during the export are neither repeated nor counted.
func (t *Trail) Export(ctx context.Context, actor auth.Actor, f Filter, w io.Writer) (int, error) {
	if err := auth.Authorize(actor, auth.ActionAuditRead, auth.Target{}); err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	written := 0
	page := pagination.Page{Limit: pagination.MaxLimit}
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		items, _, err := t.store.ListAuditEntries(ctx, f, page)
		if err != nil {
			return written, apperr.Infra(err, "export audit entries")
		}
		for _, e := range items {
			if err := cw.Write(csvRecord(e)); err != nil {
				return written, err
			}
			written++
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, err
		}
		if len(items) < page.Limit {
			return written, nil
		}
		f.OlderThan = CursorOf(items[len(items)-1])
	}
}

func csvRecord(e Entry) []string {
	actor := ""
	if e.ActorUserID != nil {
		actor = *e.ActorUserID
	}
	return []string{
		e.ID,
		e.CreatedAt.UTC().Format(time.RFC3339),
		actor,
		string(e.Action),
		e.TargetTable,
		e.TargetID,
		e.IPAddress,
		jsonCell(e.OldValues),
		jsonCell(e.NewValues),
	}
}

func jsonCell(m map[string]any) string {
	if m == nil {
		return ""
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(raw)
}

// ExportFilename names an export taken at ts.
func ExportFilename(ts time.Time) string {
	return "audit_logs_" + ts.UTC().Format("2006-01-02_150405") + ".csv"
}

// Purge deletes one entry; the deletion itself is recorded in the same
// transaction as a DELETE on audit_logs carrying the removed entry.
func (t *Trail) Purge(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.Authorize(actor, auth.ActionAuditPurge, auth.Target{}); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	removed, err := t.store.GetAuditEntry(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return apperr.Infra(err, "load audit entry")
	}
	tombstone, err := t.Build(ctx, ActionDelete, TableAuditLogs, id, removed, nil)
	if err != nil {
		return apperr.Infra(err, "build audit tombstone")
	}
	if err := t.store.ReplaceAuditEntry(ctx, id, tombstone); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return apperr.Infra(err, "purge audit entry")
	}
	logEntry(tombstone)
	return nil
}

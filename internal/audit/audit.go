// Package audit keeps the append-only record of mutating actions.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

// Action is the verb recorded for an entry.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
)

// ParseAction accepts any casing of a known action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout:
		return a, nil
	}
	return "", apperr.Field("action", "action must be one of CREATE, UPDATE, DELETE, LOGIN, LOGOUT")
}

// Target tables recorded by the services.
const (
	TableUsers        = "users"
	TableCourses      = "courses"
	TableModules      = "modules"
	TableLessons      = "lessons"
	TableAssignments  = "assignments"
	TableQuizzes      = "quizzes"
	TableForums       = "forums"
	TableEnrollments  = "enrollments"
	TableCertificates = "certificates"
	TableSubmissions  = "submissions"
	TableQuizAttempts = "quiz_attempts"
	TablePayments     = "payments"
	TableSettings     = "system_settings"
	TableBackups      = "backups"
	TableAuditLogs    = "audit_logs"
)

// Entry is one immutable audit record.
type Entry struct {
	ID          string         `json:"id"`
	ActorUserID *string        `json:"actor_user_id"`
	Action      Action         `json:"action"`
	TargetTable string         `json:"target_table"`
	TargetID    string         `json:"target_id"`
	OldValues   map[string]any `json:"old_values"`
	NewValues   map[string]any `json:"new_values"`
	IPAddress   string         `json:"ip_address"`
	RequestID   string         `json:"request_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Filter narrows a query. From is inclusive, Before exclusive.
type Filter struct {
	Action      Action
	Table       string
	ActorUserID string
	From        time.Time
	Before      time.Time
	// OlderThan keeps only entries listed after the cursor in newest-first
	// order. Exports page with it instead of an offset.
	OlderThan *Cursor
}

// Cursor is the (created_at, id) position of an entry in listing order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorOf returns the position of e.
func CursorOf(e Entry) *Cursor {
	return &Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
}

// After reports whether e sorts after c in newest-first order.
func (c Cursor) After(e Entry) bool {
	if e.CreatedAt.Equal(c.CreatedAt) {
		return e.ID < c.ID
	}
	return e.CreatedAt.Before(c.CreatedAt)
}

// Match reports whether e passes the filter. Used by the in-memory store.
func (f Filter) Match(e Entry) bool {
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Table != "" && e.TargetTable != f.Table {
		return false
	}
	if f.ActorUserID != "" && (e.ActorUserID == nil || *e.ActorUserID != f.ActorUserID) {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.Before.IsZero() && !e.CreatedAt.Before(f.Before) {
		return false
	}
	if f.OlderThan != nil && !f.OlderThan.After(e) {
		return false
	}
	return true
}

// Store persists audit entries. Listing is newest first, ordered by
// (created_at, id) descending.
type Store interface {
	AppendAuditEntry(ctx context.Context, e Entry) error
	ListAuditEntries(ctx context.Context, f Filter, p pagination.Page) ([]Entry, int, error)
	GetAuditEntry(ctx context.Context, id string) (Entry, error)
	// ReplaceAuditEntry deletes id and appends tombstone in one transaction.
	ReplaceAuditEntry(ctx context.Context, id string, tombstone Entry) error
}

// ErrNotFound is returned for unknown entry ids.
var ErrNotFound = apperr.NotFound("audit log entry")

// Snapshot converts v into the loosely typed JSON object stored as old/new
// values. nil stays nil. Anything that does not encode to a JSON object is rejected.
func Snapshot(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("audit snapshot: %w", err)
	}
	if string(raw) == "null" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.New("audit snapshot: value is not a JSON object")
	}
	return out, nil
}

type ctxKey string

const (
	requestIDKey ctxKey = "audit_request_id"
	clientIPKey  ctxKey = "audit_client_ip"
)

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithClientIP attaches the caller address recorded on entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(clientIPKey).(string); ok {
		return v
	}
	return ""
}

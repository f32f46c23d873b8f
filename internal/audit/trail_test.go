package audit_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/store/memstore"
)

var (
	admin   = auth.Actor{ID: "01HADMIN0000000000000000AA", Role: auth.RoleAdmin}
	student = auth.Actor{ID: "01HSTUDENT00000000000000AA", Role: auth.RoleStudent}
)

func requestCtx(actor auth.Actor) context.Context {
	ctx := auth.ContextWithActor(context.Background(), actor)
	ctx = audit.WithRequestID(ctx, "req-1")
	return audit.WithClientIP(ctx, "203.0.113.7")
}

func TestRecordCapturesContext(t *testing.T) {
	store := memstore.New()
	trail := audit.NewTrail(store)

	trail.Record(requestCtx(admin), audit.ActionUpdate, audit.TableCourses, "c1",
		map[string]any{"status": "draft"}, map[string]any{"status": "published"})

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	e := entries[0]
	require.NotNil(t, e.ActorUserID)
	assert.Equal(t, admin.ID, *e.ActorUserID)
	assert.Equal(t, audit.ActionUpdate, e.Action)
	assert.Equal(t, "courses", e.TargetTable)
	assert.Equal(t, "203.0.113.7", e.IPAddress)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "draft", e.OldValues["status"])
	assert.Equal(t, "published", e.NewValues["status"])
}

func TestRecordWithoutActorIsSystem(t *testing.T) {
	store := memstore.New()
	audit.NewTrail(store).Record(context.Background(), audit.ActionCreate, audit.TableSettings, "site_name", nil, map[string]any{"value": "x"})
	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorUserID)
	assert.Nil(t, entries[0].OldValues)
}

func TestRecordFailureIsLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := obs.SetLogger(zap.New(core))
	defer restore()

	store := memstore.New()
	store.FailAuditWrites(errors.New("disk full"))
	before := testutil.ToFloat64(obs.AuditWriteFailures)

	audit.NewTrail(store).Record(requestCtx(admin), audit.ActionDelete, audit.TableCourses, "c9", map[string]any{"title": "x"}, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(obs.AuditWriteFailures))
	failures := logs.FilterMessage("audit write failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.Empty(t, store.AuditEntries())
}

func TestSnapshotRejectsNonObjects(t *testing.T) {
	_, err := audit.Snapshot([]int{1, 2})
	assert.Error(t, err)
	m, err := audit.Snapshot(struct {
		Title string `json:"title"`
	}{"Go"})
	require.NoError(t, err)
	assert.Equal(t, "Go", m["title"])
}

func seed(t *testing.T, trail *audit.Trail, n int) {
	t.Helper()
	ctx := requestCtx(admin)
	for i := 0; i < n; i++ {
		action := audit.ActionCreate
		if i%2 == 1 {
			action = audit.ActionUpdate
		}
		trail.Record(ctx, action, audit.TableCourses, fmt.Sprintf("c%d", i), nil, map[string]any{"n": i})
	}
}

func TestQueryFiltersAndPages(t *testing.T) {
	store := memstore.New()
	trail := audit.NewTrail(store)
	seed(t, trail, 5)

	res, err := trail.Query(context.Background(), admin, audit.Filter{Action: audit.ActionUpdate}, pagination.Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "c3", res.Items[0].TargetID, "newest first")

	_, err = trail.Query(context.Background(), student, audit.Filter{}, pagination.Page{})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestQueryDateWindow(t *testing.T) {
	store := memstore.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	trail := audit.NewTrail(store, audit.WithClock(func() time.Time { return now }))
	seed(t, trail, 1)
	now = now.Add(48 * time.Hour)
	seed(t, trail, 1)

	res, err := trail.Query(context.Background(), admin, audit.Filter{
		From:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Before: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
	}, pagination.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestExportStreamsAllBatches(t *testing.T) {
	store := memstore.New()
	trail := audit.NewTrail(store)
	seed(t, trail, pagination.MaxLimit+7)

	var buf bytes.Buffer
	n, err := trail.Export(context.Background(), admin, audit.Filter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, pagination.MaxLimit+7, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, n+1)
	assert.Equal(t, audit.CSVHeader, rows[0])
	assert.Equal(t, admin.ID, rows[1][2])
	assert.JSONEq(t, fmt.Sprintf(`{"n": %d}`, n-1), rows[1][8])

	_, err = trail.Export(context.Background(), student, audit.Filter{}, &bytes.Buffer{})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

// busyStore records a new entry after each listed batch, as a live site does
// while an export is running.
type busyStore struct {
	*memstore.Store
	trail   *audit.Trail
	batches int
}

func (s *busyStore) ListAuditEntries(ctx context.Context, f audit.Filter, p pagination.Page) ([]audit.Entry, int, error) {
	items, total, err := s.Store.ListAuditEntries(ctx, f, p)
	s.batches++
	s.trail.Record(requestCtx(admin), audit.ActionCreate, audit.TableCourses, fmt.Sprintf("late%d", s.batches), nil, nil)
	return items, total, err
}

func TestExportIgnoresEntriesRecordedMidway(t *testing.T) {
	mem := memstore.New()
	seed(t, audit.NewTrail(mem), 2*pagination.MaxLimit+3)
	store := &busyStore{Store: mem}
	store.trail = audit.NewTrail(store)

	var buf bytes.Buffer
	n, err := store.trail.Export(context.Background(), admin, audit.Filter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, store.batches)
	assert.Equal(t, 2*pagination.MaxLimit+3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, n+1)
	seen := make(map[string]bool, n)
	for _, row := range rows[1:] {
		assert.False(t, seen[row[0]], "duplicate row %s", row[0])
		seen[row[0]] = true
		assert.NotContains(t, row[5], "late")
	}
}

func TestExportSameInstantEntries(t *testing.T) {
	store := memstore.New()
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	trail := audit.NewTrail(store, audit.WithClock(func() time.Time { return at }))
	seed(t, trail, pagination.MaxLimit+1)

	var buf bytes.Buffer
	n, err := trail.Export(context.Background(), admin, audit.Filter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, pagination.MaxLimit+1, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	seen := make(map[string]bool, n)
	for _, row := range rows[1:] {
		seen[row[0]] = true
	}
	assert.Len(t, seen, n)
}

func TestPurgeLeavesTombstone(t *testing.T) {
	store := memstore.New()
	trail := audit.NewTrail(store)
	seed(t, trail, 2)
	victim := store.AuditEntries()[0]

	require.NoError(t, trail.Purge(requestCtx(admin), admin, victim.ID))

	entries := store.AuditEntries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, victim.ID, e.ID)
	}
	tomb := entries[len(entries)-1]
	assert.Equal(t, audit.ActionDelete, tomb.Action)
	assert.Equal(t, "audit_logs", tomb.TargetTable)
	assert.Equal(t, victim.ID, tomb.TargetID)
	assert.Equal(t, victim.ID, tomb.OldValues["id"])

	err := trail.Purge(requestCtx(admin), admin, victim.ID)
	assert.ErrorIs(t, err, audit.ErrNotFound)

	err = trail.Purge(requestCtx(student), student, entries[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestParseAction(t *testing.T) {
	a, err := audit.ParseAction("login")
	require.NoError(t, err)
	assert.Equal(t, audit.ActionLogin, a)
	_, err = audit.ParseAction("drop")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

package backup_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/backup"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/store/memstore"
)

var admin = auth.Actor{ID: "01HADMIN0000000000000000AA", Role: auth.RoleAdmin}

type dumpFunc func(ctx context.Context, w io.Writer) error

func (f dumpFunc) Dump(ctx context.Context, w io.Writer) error { return f(ctx, w) }

func staticDump(body string) backup.Dumper {
	return dumpFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

func readGzip(t *testing.T, r io.Reader) string {
	t.Helper()
	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(raw)
}

func TestCreateListOpenDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	store := memstore.New()
	svc := backup.NewService(dir, staticDump("-- dump\nselect 1;\n"), audit.NewTrail(store))
	ctx := context.Background()

	empty, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, empty, "missing dir lists as empty")

	b, err := svc.Create(ctx, admin)
	require.NoError(t, err)
	assert.True(t, backup.ValidName(b.Name), b.Name)
	assert.Positive(t, b.SizeBytes)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".backup-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	list, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.Name, list[0].Name)
	assert.Equal(t, b.SizeBytes, list[0].SizeBytes)

	f, info, err := svc.Open(ctx, admin, b.Name)
	require.NoError(t, err)
	assert.Equal(t, b.SizeBytes, info.SizeBytes)
	assert.Equal(t, "-- dump\nselect 1;\n", readGzip(t, f))
	require.NoError(t, f.Close())

	require.NoError(t, svc.Delete(ctx, admin, b.Name))
	_, _, err = svc.Open(ctx, admin, b.Name)
	assert.ErrorIs(t, err, backup.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, admin, b.Name), backup.ErrNotFound)

	var actions []audit.Action
	for _, e := range store.AuditEntries() {
		assert.Equal(t, audit.TableBackups, e.TargetTable)
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionDelete}, actions)
}

func TestFailedDumpLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	svc := backup.NewService(dir, dumpFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("connection reset")
	}), audit.NewTrail(memstore.New()))

	_, err := svc.Create(context.Background(), admin)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNamesAreChecked(t *testing.T) {
	dir := t.TempDir()
	svc := backup.NewService(dir, staticDump("x"), audit.NewTrail(memstore.New()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o600))

	for _, name := range []string{"../etc/passwd", "notes.txt", "backup_20260101_000000_ABCDEF.sql", ""} {
		_, _, err := svc.Open(context.Background(), admin, name)
		assert.ErrorIs(t, err, backup.ErrInvalidName, name)
		assert.ErrorIs(t, svc.Delete(context.Background(), admin, name), backup.ErrInvalidName, name)
	}
	assert.True(t, backup.ValidName("backup_20260101_000000_ABCDEF.sql.gz"))

	list, err := svc.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Empty(t, list, "foreign files are not listed")
}

func TestAdminOnly(t *testing.T) {
	svc := backup.NewService(t.TempDir(), staticDump("x"), audit.NewTrail(memstore.New()))
	inst := auth.Actor{ID: "01HINST00000000000000000AA", Role: auth.RoleInstructor}
	_, err := svc.List(context.Background(), inst)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	_, err = svc.Create(context.Background(), inst)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestMemstoreDumpRoundTrips(t *testing.T) {
	store := memstore.New()
	svc := backup.NewService(t.TempDir(), store, audit.NewTrail(store))
	b, err := svc.Create(context.Background(), admin)
	require.NoError(t, err)
	f, _, err := svc.Open(context.Background(), admin, b.Name)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, readGzip(t, f), `"audit_logs"`)
}

// Package backup produces and manages gzip-compressed SQL dumps on local disk.
package backup

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/ids"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
)

// Dumper writes a consistent, restorable snapshot of the database to w.
type Dumper interface {
	Dump(ctx context.Context, w io.Writer) error
}

// Backup describes one file in the backup directory.
type Backup struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

var namePattern = regexp.MustCompile(`^backup_\d{8}_\d{6}_[0-9A-Z]{6}\.sql\.gz$`)

var (
	ErrNotFound    = apperr.NotFound("backup")
	ErrInvalidName = apperr.Field("file", "not a backup file name")
)

// ValidName reports whether name could have been produced by Create. Only such
// names ever reach the filesystem, which rules out path traversal.
func ValidName(name string) bool { return namePattern.MatchString(name) }

// Service manages the backup directory. All operations are admin only.
type Service struct {
	dir    string
	dumper Dumper
	audit  audit.Recorder
	now    func() time.Time
}

func NewService(dir string, dumper Dumper, rec audit.Recorder) *Service {
	return &Service{dir: dir, dumper: dumper, audit: rec, now: time.Now}
}

// List returns the backups on disk, newest first.
func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Backup, error) {
	if err := auth.Authorize(actor, auth.ActionBackupManage, auth.Target{}); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Backup{}, nil
		}
		return nil, apperr.Infra(err, "read backup dir")
	}
	out := []Backup{}
	for _, e := range entries {
		if e.IsDir() || !ValidName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Backup{Name: e.Name(), SizeBytes: info.Size(), CreatedAt: info.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Create dumps the database into a new backup. The file appears under its
// final name only once fully written and synced.
func (s *Service) Create(ctx context.Context, actor auth.Actor) (Backup, error) {
	if err := auth.Authorize(actor, auth.ActionBackupManage, auth.Target{}); err != nil {
		return Backup{}, err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return Backup{}, apperr.Infra(err, "create backup dir")
	}
	now := s.now().UTC()
	name := fmt.Sprintf("backup_%s_%s.sql.gz", now.Format("20060102_150405"), ids.Short(6))
	final := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, ".backup-*.tmp")
	if err != nil {
		return Backup{}, apperr.Infra(err, "create temp backup")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	gz := gzip.NewWriter(tmp)
	gz.Name = name[:len(name)-len(".gz")]
	gz.ModTime = now
	if err := s.dumper.Dump(ctx, gz); err != nil {
		return Backup{}, apperr.Infra(err, "dump database")
	}
	if err := gz.Close(); err != nil {
		return Backup{}, apperr.Infra(err, "finish gzip stream")
	}
	if err := tmp.Sync(); err != nil {
		return Backup{}, apperr.Infra(err, "sync backup")
	}
	info, err := tmp.Stat()
	if err != nil {
		return Backup{}, apperr.Infra(err, "stat backup")
	}
	if err := tmp.Close(); err != nil {
		return Backup{}, apperr.Infra(err, "close backup")
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return Backup{}, apperr.Infra(err, "publish backup")
	}
	committed = true
	syncDir(s.dir)

	b := Backup{Name: name, SizeBytes: info.Size(), CreatedAt: now}
	obs.BackupsCreated.Inc()
	s.audit.Record(ctx, audit.ActionCreate, audit.TableBackups, name, nil, b)
	return b, nil
}

// Open returns the backup for streaming. The caller closes the file.
// Downloads are logged for operators but not written to the audit trail.
func (s *Service) Open(ctx context.Context, actor auth.Actor, name string) (*os.File, Backup, error) {
	if err := auth.Authorize(actor, auth.ActionBackupManage, auth.Target{}); err != nil {
		return nil, Backup{}, err
	}
	if !ValidName(name) {
		return nil, Backup{}, ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Backup{}, ErrNotFound
		}
		return nil, Backup{}, apperr.Infra(err, "open backup")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Backup{}, apperr.Infra(err, "stat backup")
	}
	_ = audit.LogEvent(ctx, "backup.download", map[string]any{"file": name, "size_bytes": info.Size()})
	return f, Backup{Name: name, SizeBytes: info.Size(), CreatedAt: info.ModTime().UTC()}, nil
}

// Delete removes a backup file.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, name string) error {
	if err := auth.Authorize(actor, auth.ActionBackupManage, auth.Target{}); err != nil {
		return err
	}
	if !ValidName(name) {
		return ErrInvalidName
	}
	path := filepath.Join(s.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return apperr.Infra(err, "stat backup")
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return apperr.Infra(err, "remove backup")
	}
	s.audit.Record(ctx, audit.ActionDelete, audit.TableBackups, name,
		Backup{Name: name, SizeBytes: info.Size(), CreatedAt: info.ModTime().UTC()}, nil)
	return nil
}

// syncDir makes the rename durable where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		obs.Logger().Debug("backup dir sync skipped", zap.Error(err))
	}
}

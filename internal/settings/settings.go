// Package settings stores system-wide key/value configuration edited by admins.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/validation"
)

// Well-known keys with typed values.
const (
	KeyMaxFileUploadMB = "max_file_upload_mb"
	KeyMaintenanceMode = "maintenance_mode"
	KeySiteName        = "site_name"
)

const maxValueLength = 4000

// Setting is one stored key.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedBy *string   `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Change describes a key whose value was written. Old is nil for new keys.
type Change struct {
	Key string  `json:"key"`
	Old *string `json:"old_value"`
	New string  `json:"new_value"`
}

// Store persists settings.
type Store interface {
	ListSettings(ctx context.Context) ([]Setting, error)
	GetSetting(ctx context.Context, key string) (Setting, error)
	// ApplySettings writes the keys whose value differs from what is stored,
	// in one transaction, and reports those changes ordered by key.
	ApplySettings(ctx context.Context, values map[string]string, by string, at time.Time) ([]Change, error)
}

var ErrNotFound = apperr.NotFound("setting")

type Service struct {
	store Store
	audit audit.Recorder
	now   func() time.Time
}

func NewService(store Store, rec audit.Recorder) *Service {
	return &Service{store: store, audit: rec, now: time.Now}
}

// List returns every setting to any authenticated user.
func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Setting, error) {
	if err := auth.Authorize(actor, auth.ActionSettingsRead, auth.Target{}); err != nil {
		return nil, err
	}
	items, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, apperr.Infra(err, "list settings")
	}
	if items == nil {
		items = []Setting{}
	}
	return items, nil
}

// Apply is the bulk PUT: it validates every key first, writes only values that
// changed and records one audit entry per changed key.
func (s *Service) Apply(ctx context.Context, actor auth.Actor, values map[string]string) ([]Change, error) {
	if err := auth.Authorize(actor, auth.ActionSettingsWrite, auth.Target{}); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, apperr.Validation("no settings provided")
	}
	normalized, err := normalize(values)
	if err != nil {
		return nil, err
	}
	changes, err := s.store.ApplySettings(ctx, normalized, actor.ID, s.now().UTC())
	if err != nil {
		return nil, apperr.Infra(err, "apply settings")
	}
	for _, c := range changes {
		action := audit.ActionUpdate
		var before any
		if c.Old == nil {
			action = audit.ActionCreate
		} else {
			before = map[string]any{"key": c.Key, "value": *c.Old}
		}
		s.audit.Record(ctx, action, audit.TableSettings, c.Key, before, map[string]any{"key": c.Key, "value": c.New})
	}
	if changes == nil {
		changes = []Change{}
	}
	return changes, nil
}

// MaintenanceMode reports whether mutations by non-admins are suspended.
func (s *Service) MaintenanceMode(ctx context.Context) (bool, error) {
	st, err := s.store.GetSetting(ctx, KeyMaintenanceMode)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	on, _ := strconv.ParseBool(st.Value)
	return on, nil
}

func normalize(values map[string]string) (map[string]string, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(values))
	var fields []apperr.FieldError
	for _, key := range keys {
		v, err := checkValue(key, values[key])
		if err != nil {
			fields = append(fields, apperr.FieldError{Field: key, Message: err.Error()})
			continue
		}
		out[key] = v
	}
	if len(fields) > 0 {
		msg := "invalid settings"
		if len(fields) == 1 {
			msg = fields[0].Message
		}
		return nil, apperr.Validation(msg, fields...)
	}
	return out, nil
}

func checkValue(key, value string) (string, error) {
	if !validation.SettingKey(key) {
		return "", fmt.Errorf("%s must start with a letter and contain only lowercase letters, digits and underscores", key)
	}
	value = strings.TrimSpace(value)
	if len(value) > maxValueLength {
		return "", fmt.Errorf("%s must be at most %d characters", key, maxValueLength)
	}
	switch key {
	case KeyMaxFileUploadMB:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 10240 {
			return "", fmt.Errorf("%s must be a whole number between 1 and 10240", key)
		}
		return strconv.Itoa(n), nil
	case KeyMaintenanceMode:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%s must be true or false", key)
		}
		return strconv.FormatBool(b), nil
	case KeySiteName:
		if value == "" {
			return "", fmt.Errorf("%s must not be blank", key)
		}
	}
	return value, nil
}

package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/auth"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
)

// LogEvent writes an operator-facing audit log line enriched with request and
// user context. It is used for events that are not table mutations, such as
// backup downloads and CSV exports.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	zf := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		zf = append(zf, zap.String("request_id", rid))
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		zf = append(zf, zap.String("user_id", userID))
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	zf = append(zf, zap.Any("fields", copyFields))
	obs.Logger().Info("audit event", zf...)
	return nil
}

// logEntry mirrors a persisted entry to the structured log.
func logEntry(e Entry) {
	actor := ""
	if e.ActorUserID != nil {
		actor = *e.ActorUserID
	}
	obs.Logger().Info("audit",
		zap.String("type", "audit"),
		zap.String("audit_id", e.ID),
		zap.String("action", string(e.Action)),
		zap.String("target_table", e.TargetTable),
		zap.String("target_id", e.TargetID),
		zap.String("user_id", actor),
		zap.String("request_id", e.RequestID),
	)
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/analytics"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/audit"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
)

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 1 {
		notFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor := actorOf(r)
	q := r.URL.Query()
	switch rest[0] {
	case "dashboard":
		d, err := a.svc.Analytics.Dashboard(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, d)
	case "enrollment-trends":
		months, err := parseInt(q.Get("months"), "months", 0, 1, 1000)
		if err != nil {
			writeError(w, r, err)
			return
		}
		days, err := parseInt(q.Get("days"), "days", 0, 1, 1000)
		if err != nil {
			writeError(w, r, err)
			return
		}
		points, err := a.svc.Analytics.EnrollmentTrends(r.Context(), actor, analytics.TrendQuery{
			Period: q.Get("period"),
			Months: months,
			Days:   days,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, points)
	case "completion-rates":
		limit, err := parseInt(q.Get("limit"), "limit", 0, 1, 1000)
		if err != nil {
			writeError(w, r, err)
			return
		}
		stats, err := a.svc.Analytics.CompletionRates(r.Context(), actor, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, stats)
	default:
		notFound(w, r)
	}
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listAuditLogs(w, r)
	case len(rest) == 1 && rest[0] == "export":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.exportAuditLogs(w, r)
	case len(rest) == 1:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		if err := a.svc.Audit.Purge(r.Context(), actorOf(r), rest[0]); err != nil {
			writeError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "audit log entry deleted", nil)
	default:
		notFound(w, r)
	}
}

// auditFilter reads action, table, actor_user_id, start_date and end_date
// (from and to are accepted as aliases). Dates may be RFC 3339 timestamps or
// plain YYYY-MM-DD days; a plain end day is inclusive.
func auditFilter(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	f := audit.Filter{
		Table:       strings.TrimSpace(q.Get("table")),
		ActorUserID: strings.TrimSpace(q.Get("actor_user_id")),
	}
	if raw := q.Get("action"); raw != "" {
		action, err := audit.ParseAction(raw)
		if err != nil {
			return audit.Filter{}, err
		}
		f.Action = action
	}
	startRaw, startField := firstParam(q, "start_date", "from")
	endRaw, endField := firstParam(q, "end_date", "to")
	var err error
	if f.From, _, err = parseTime(startRaw, startField); err != nil {
		return audit.Filter{}, err
	}
	var dayOnly bool
	if f.Before, dayOnly, err = parseTime(endRaw, endField); err != nil {
		return audit.Filter{}, err
	}
	if dayOnly {
		f.Before = f.Before.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.Before.IsZero() && !f.From.Before(f.Before) {
		return audit.Filter{}, apperr.Field(endField, endField+" must be after "+startField)
	}
	return f, nil
}

// firstParam returns the first non-blank value among names and the name it
// came from; the first name is reported when none is set.
func firstParam(q url.Values, names ...string) (string, string) {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v, name
		}
	}
	return "", names[0]
}

func parseTime(raw, field string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, apperr.Field(field, field+" must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}

func (a *API) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := auditFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.svc.Audit.Query(r.Context(), actorOf(r), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, res)
}

// downloadWriter commits the download headers on the first write, so a
// failure before any data still gets a regular error envelope.
type downloadWriter struct {
	w       http.ResponseWriter
	headers func(http.Header)
	started bool
}

func (d *downloadWriter) Write(p []byte) (int, error) {
	if !d.started {
		d.started = true
		d.headers(d.w.Header())
		d.w.WriteHeader(http.StatusOK)
	}
	return d.w.Write(p)
}

// auditExport is the JSON form of an export, for clients that save the file
// themselves.
type auditExport struct {
	CSV      string `json:"csv"`
	Filename string `json:"filename"`
	Total    int    `json:"total"`
}

// exportAuditLogs answers format=csv (the default) with the whole file inside
// the envelope and format=stream with a text/csv attachment.
func (a *API) exportAuditLogs(w http.ResponseWriter, r *http.Request) {
	f, err := auditFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := audit.ExportFilename(a.now())
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "", "csv":
		var buf bytes.Buffer
		rows, err := a.svc.Audit.Export(r.Context(), actorOf(r), f, &buf)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, auditExport{CSV: buf.String(), Filename: name, Total: rows})
	case "stream":
		a.streamAuditLogs(w, r, f, name)
	default:
		writeError(w, r, apperr.Field("format", "format must be csv or stream"))
	}
}

func (a *API) streamAuditLogs(w http.ResponseWriter, r *http.Request, f audit.Filter, name string) {
	dw := &downloadWriter{w: w, headers: func(h http.Header) {
		h.Set("Content-Type", "text/csv; charset=utf-8")
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		h.Set("Cache-Control", "no-store")
	}}
	rows, err := a.svc.Audit.Export(r.Context(), actorOf(r), f, dw)
	if err != nil {
		if !dw.started {
			writeError(w, r, err)
			return
		}
		obs.Logger().Error("audit export aborted", zap.Error(err), zap.Int("rows", rows),
			zap.String("request_id", RequestIDFromContext(r.Context())))
	}
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 0 {
		notFound(w, r)
		return
	}
	actor := actorOf(r)
	switch r.Method {
	case http.MethodGet:
		items, err := a.svc.Settings.List(r.Context(), actor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, items)
	case http.MethodPut:
		var raw map[string]json.RawMessage
		if err := decodeJSON(w, r, &raw); err != nil {
			writeError(w, r, err)
			return
		}
		values, err := settingValues(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		changes, err := a.svc.Settings.Apply(r.Context(), actor, values)
		if err != nil {
			writeError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "settings updated", changes)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

// settingValues accepts strings, numbers and booleans and stores them as text.
func settingValues(raw map[string]json.RawMessage) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	var fields []apperr.FieldError
	for key, msg := range raw {
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			fields = append(fields, apperr.FieldError{Field: key, Message: "invalid value"})
			continue
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case bool:
			out[key] = strconv.FormatBool(val)
		case float64:
			out[key] = strings.TrimSpace(string(msg))
		default:
			fields = append(fields, apperr.FieldError{Field: key, Message: "value must be a string, number or boolean"})
		}
	}
	if len(fields) > 0 {
		sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return nil, apperr.Validation("invalid settings", fields...)
	}
	return out, nil
}

func (a *API) handleBackups(w http.ResponseWriter, r *http.Request, rest []string) {
	actor := actorOf(r)
	switch {
	case len(rest) == 0:
		switch r.Method {
		case http.MethodGet:
			items, err := a.svc.Backups.List(r.Context(), actor)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respond(w, r, http.StatusOK, items)
		case http.MethodPost:
			b, err := a.svc.Backups.Create(r.Context(), actor)
			if err != nil {
				writeError(w, r, err)
				return
			}
			respondMessage(w, r, http.StatusCreated, "backup created", b)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case len(rest) == 2 && rest[1] == "download":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.downloadBackup(w, r, rest[0])
	case len(rest) == 1:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		if err := a.svc.Backups.Delete(r.Context(), actor, rest[0]); err != nil {
			writeError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "backup deleted", nil)
	default:
		notFound(w, r)
	}
}

func (a *API) downloadBackup(w http.ResponseWriter, r *http.Request, name string) {
	f, b, err := a.svc.Backups.Open(r.Context(), actorOf(r), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", b.Name))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, b.Name, b.CreatedAt, f)
}

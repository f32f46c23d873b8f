package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/pagination"
)

const maxJSONBody = 1 << 20

// envelope is the body of every /api response.
type envelope struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message,omitempty"`
	Data      any                 `json:"data,omitempty"`
	Errors    []apperr.FieldError `json:"errors,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, r *http.Request, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data, RequestID: RequestIDFromContext(r.Context())})
}

func respondMessage(w http.ResponseWriter, r *http.Request, code int, msg string, data any) {
	writeJSON(w, code, envelope{Success: true, Message: msg, Data: data, RequestID: RequestIDFromContext(r.Context())})
}

// statusFor maps an error kind onto the HTTP status returned to clients.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindPaymentRequired:
		return http.StatusPaymentRequired
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the envelope. Infrastructure detail only reaches the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := apperr.PublicMessage(err)
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	rid := RequestIDFromContext(r.Context())
	if code >= http.StatusInternalServerError {
		obs.Logger().Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("route", obs.CanonicalPath(r.URL.Path)),
			zap.String("request_id", rid),
		)
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="skillarc"`)
	}
	writeJSON(w, code, envelope{Message: msg, Errors: apperr.FieldsOf(err), RequestID: rid})
}

// writeStatus is for failures raised by the transport itself rather than a service.
func writeStatus(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, envelope{Message: msg, RequestID: RequestIDFromContext(r.Context())})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusNotFound, "resource not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// decodeJSON reads a single JSON object, rejecting unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	reader := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return apperr.Validation("request body is required")
		}
		return bodyError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return apperr.Validation("unexpected data after JSON body")
		}
		return bodyError(err)
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooLarge):
		return apperr.Validation(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.Field(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperr.Field(name, fmt.Sprintf("unknown field %q", name))
	}
	return apperr.Validation("malformed JSON body")
}

func queryPage(r *http.Request) (pagination.Page, error) {
	q := r.URL.Query()
	return pagination.Parse(q.Get("limit"), q.Get("offset"))
}

// parseInt reads an optional integer query value bounded to [min, max].
func parseInt(raw, field string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperr.Field(field, field+" must be an integer")
	}
	if val < min || val > max {
		return 0, apperr.Field(field, fmt.Sprintf("%s must be between %d and %d", field, min, max))
	}
	return val, nil
}

func parseBool(raw, field string) (*bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperr.Field(field, field+" must be true or false")
	}
	return &v, nil
}

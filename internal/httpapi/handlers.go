// Package httpapi is the JSON HTTP surface of the LMS and its gRPC health service.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/app"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/apperr"
	"github.com/shemaarafati2020/SkillArc-Learning-Management-System-sub000/internal/obs"
)

const serviceName = "skillarc-api"

// Pinger is the readiness dependency, normally the storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks that the backend answers.
type ReadyProbe struct {
	DB Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.Ping(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        *app.Services
	readyProbe ReadyProbe
	version    string

	corsOrigins    []string
	rateBurst      int
	ratePerSec     int
	requestTimeout time.Duration
	maxBodyBytes   int64
	now            func() time.Time
}

// Option tunes an API.
type Option func(*API)

func WithVersion(v string) Option { return func(a *API) { a.version = v } }

func WithCORSOrigins(origins []string) Option { return func(a *API) { a.corsOrigins = origins } }

// WithRateLimit sets the per-IP token bucket. Zero disables limiting.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) { a.rateBurst, a.ratePerSec = burst, perSecond }
}

func WithRequestTimeout(d time.Duration) Option { return func(a *API) { a.requestTimeout = d } }

func WithMaxBodyBytes(n int64) Option { return func(a *API) { a.maxBodyBytes = n } }

func New(svc *app.Services, opts ...Option) *API {
	a := &API{
		mux:            http.NewServeMux(),
		svc:            svc,
		readyProbe:     ReadyProbe{DB: svc.Backend},
		version:        "dev",
		rateBurst:      40,
		ratePerSec:     20,
		requestTimeout: 30 * time.Second,
		maxBodyBytes:   maxJSONBody,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())
	a.mux.HandleFunc("/api/", a.serveAPI)
	a.mux.HandleFunc("/", notFound)

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.maintenanceGate(h)
	h = a.withAuth(h)
	h = Timeout(h, a.requestTimeout)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  "database unavailable",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	respond(w, r, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    a.now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// splitAPIPath turns /api/courses/42/modules into [courses 42 modules].
func splitAPIPath(path string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, "/api/"), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// serveAPI dispatches by resource name. Every route outside isPublic needs an actor.
func (a *API) serveAPI(w http.ResponseWriter, r *http.Request) {
	parts := splitAPIPath(r.URL.Path)
	if len(parts) == 0 {
		notFound(w, r)
		return
	}
	for _, p := range parts {
		if p == "" {
			notFound(w, r)
			return
		}
	}
	if !isPublic(r.Method, parts) && actorOf(r).IsSystem() {
		writeError(w, r, apperr.Unauthenticated(""))
		return
	}
	resource, rest := parts[0], parts[1:]
	switch resource {
	case "info":
		a.info(w, r)
	case "auth":
		a.handleAuth(w, r, rest)
	case "users":
		a.handleUsers(w, r, rest)
	case "courses":
		a.handleCourses(w, r, rest)
	case "modules":
		a.handleModules(w, r, rest)
	case "lessons":
		a.handleLessons(w, r, rest)
	case "assignments":
		a.handleAssignments(w, r, rest)
	case "quizzes":
		a.handleQuizzes(w, r, rest)
	case "forums":
		a.handleForums(w, r, rest)
	case "enrollments":
		a.handleEnrollments(w, r, rest)
	case "certificates":
		a.handleCertificates(w, r, rest)
	case "submissions":
		a.handleSubmissions(w, r, rest)
	case "payments":
		a.handlePayments(w, r, rest)
	case "analytics":
		a.handleAnalytics(w, r, rest)
	case "audit-logs":
		a.handleAuditLogs(w, r, rest)
	case "settings":
		a.handleSettings(w, r, rest)
	case "backup":
		a.handleBackups(w, r, rest)
	default:
		notFound(w, r)
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/obs"
	"forecast.kathykuohome.com/internal/store/pg"
)

const (
	msgInternal         = "internal error"
	msgNotAuthenticated = "Not authenticated"
	msgSessionExpired   = "Session expired"
	msgInvalidLogin     = "Invalid email or password"
	msgTooManyLogins    = "Too many login attempts"
	msgInvalidBody      = "Invalid request body"

	defaultRevocationTimeout = 500 * time.Millisecond
)

// Pinger reports database reachability for the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DepartmentStore is the department data access the handlers need.
type DepartmentStore interface {
	ListDepartments(ctx context.Context) ([]pg.Department, error)
	CreateDepartment(ctx context.Context, name, category string) (pg.Department, error)
	DeleteDepartment(ctx context.Context, id string) error
	SeedDepartments(ctx context.Context, names []string) (int, error)
	DepartmentExists(ctx context.Context, id string) (bool, error)
}

// EntryStore reads and writes monthly actuals and forecasts.
type EntryStore interface {
	ListEntries(ctx context.Context, f pg.Filter) ([]pg.Entry, error)
	UpsertEntries(ctx context.Context, entries []pg.Entry, updatedBy string) (int, error)
}

// AnnotationStore holds the notes pinned to department months.
type AnnotationStore interface {
	ListAnnotations(ctx context.Context, f pg.Filter) ([]pg.Annotation, error)
	CreateAnnotation(ctx context.Context, a pg.Annotation) (pg.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
}

// Deps are the constructed collaborators handed to the HTTP layer.
type Deps struct {
	Auth        *auth.Service
	Users       auth.UserStore
	Departments DepartmentStore
	Entries     EntryStore
	Annotations AnnotationStore
	Ready       Pinger
	Policy      *auth.Policy
	Cookies     CookieConfig
	Logger      *zap.Logger
	Version     string
	StaticDir   string

	LoginRatePerMinute int
	LoginBurst         int
	RevocationTimeout  time.Duration
}

// API is the HTTP layer: gate, session endpoint and the dashboard handlers.
type API struct {
	router            chi.Router
	auth              *auth.Service
	users             auth.UserStore
	departments       DepartmentStore
	entries           EntryStore
	annotations       AnnotationStore
	ready             Pinger
	policy            *auth.Policy
	cookies           CookieConfig
	log               *zap.Logger
	version           string
	staticDir         string
	loginLimiter      *ipLimiter
	revocationTimeout time.Duration
	pages             *template.Template
}

func New(d Deps) (*API, error) {
	if d.Auth == nil {
		return nil, errors.New("httpapi: auth service is required")
	}
	if d.Users == nil {
		return nil, errors.New("httpapi: user store is required")
	}
	if d.Departments == nil {
		return nil, errors.New("httpapi: department store is required")
	}
	if d.Entries == nil || d.Annotations == nil {
		return nil, errors.New("httpapi: entry and annotation stores are required")
	}
	a := &API{
		auth:              d.Auth,
		users:             d.Users,
		departments:       d.Departments,
		entries:           d.Entries,
		annotations:       d.Annotations,
		ready:             d.Ready,
		policy:            d.Policy,
		cookies:           d.Cookies.withDefaults(),
		log:               d.Logger,
		version:           d.Version,
		staticDir:         d.StaticDir,
		loginLimiter:      newIPLimiter(d.LoginRatePerMinute, d.LoginBurst),
		revocationTimeout: d.RevocationTimeout,
		pages:             pageTemplates,
	}
	if a.policy == nil {
		a.policy = auth.DefaultPolicy
	}
	if a.log == nil {
		a.log = obs.Logger()
	}
	if a.revocationTimeout <= 0 {
		a.revocationTimeout = defaultRevocationTimeout
	}
	a.router = a.routes()
	return a, nil
}

// Handler returns the root handler wrapped with metrics.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.router)
}

func (a *API) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(Recover(a.log))
	r.Use(RequestID)
	r.Use(Logging(a.log))
	r.Use(SecurityHeaders)
	r.Use(a.Gate)

	r.NotFound(a.notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Handle("/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(RateLimit(a.loginLimiter, msgTooManyLogins, func(*http.Request) {
				obs.RecordLogin("rate_limited")
			})).Post("/", a.handleLogin)
			r.Get("/", a.handleWhoami)
			r.Patch("/", a.handleChangePassword)
			r.Delete("/", a.handleLogout)
		})
		r.Route("/users", func(r chi.Router) {
			r.Get("/", a.handleListUsers)
			r.Post("/", a.handleCreateUser)
			r.Delete("/{id}", a.handleDeleteUser)
		})
		r.Route("/departments", func(r chi.Router) {
			r.Get("/", a.handleListDepartments)
			r.Post("/", a.handleCreateDepartment)
			r.Delete("/", a.handleDeleteDepartment)
		})
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", a.handleListEntries)
			r.Post("/", a.handleSaveEntries)
		})
		r.Route("/annotations", func(r chi.Router) {
			r.Get("/", a.handleListAnnotations)
			r.Post("/", a.handleCreateAnnotation)
			r.Delete("/", a.handleDeleteAnnotation)
		})
		r.Post("/seed", a.handleSeed)
	})

	r.Get("/login", a.handleLoginPage)
	r.Get("/", a.handleDashboardPage)
	r.Get("/input", a.handleInputPage)
	r.Get("/admin", a.handleAdminPage)
	r.Get("/department/{id}", a.handleDepartmentPage)

	if a.staticDir != "" {
		files := http.FileServer(http.Dir(a.staticDir))
		r.Handle("/_next/*", files)
		r.Handle("/static/*", files)
		r.Handle("/favicon.ico", files)
	}
	return r
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	if a.policy.IsAPI(r.URL.Path) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	http.NotFound(w, r)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "forecast",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready.Ping(ctx); err != nil {
			a.log.Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the single-field rejection body used for every denial.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// internalError logs the cause and returns a generic 500.
func (a *API) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	a.log.Error(op,
		zap.Error(err),
		zap.String("request_id", audit.RequestIDFromContext(r.Context())),
	)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// validationMessage returns the caller-safe message of a validation error.
func validationMessage(err error) (string, bool) {
	var ve *auth.ValidationError
	if errors.As(err, &ve) {
		return ve.Msg, true
	}
	return "", false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

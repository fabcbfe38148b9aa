package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"infiagentic.io/api/spec"
	"infiagentic.io/internal/auth"
	"infiagentic.io/internal/obs"
)

const defaultRateLimitPerMinute = 100

// ReadyProbe reports whether the service's dependencies are reachable.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	readyProbe ReadyProbe
	version    string
	production bool

	rateLimitPerMinute int
}

// New wires the routes. The auth service is required; every route outside
// the public set is resolved through it.
func New(rp ReadyProbe, version string, production bool, svc *auth.Service) *API {
	a := &API{
		mux:                http.NewServeMux(),
		auth:               svc,
		readyProbe:         rp,
		version:            version,
		production:         production,
		rateLimitPerMinute: defaultRateLimitPerMinute,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	a.mux.HandleFunc("/v1/org", a.handleOrg)
	a.mux.HandleFunc("/v1/org/users", a.handleOrgUsers)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler assembles the middleware chain around the mux. RequestID runs
// first so every later layer, including the rate limiter's rejections, can
// carry the correlation id.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h, a.production)
	h = CORS(h)
	h = RateLimit(h, a.rateLimitPerMinute)
	h = LoggingJSON(h)
	h = Recover(h, a.production)
	h = obs.Instrument(h)
	h = RequestID(h)
	return h
}

// SetRateLimit overrides the per-client request budget per minute.
func (a *API) SetRateLimit(perMinute int) {
	a.rateLimitPerMinute = perMinute
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "infiagentic-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "infiagentic-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

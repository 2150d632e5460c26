/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     httplog request logging (ECS schema, JSON)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Heartbeat:  /healthz liveness probe
  5. CORS:       Cross-origin requests for the dashboard frontend
  6. Metrics:    Request count and latency per route pattern

ROUTE GROUPS:
  /api/*                Ledger, reports, refresh runs (see handlers.go)
  /metrics              Prometheus exposition
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. The API is read-only apart from
  POST /api/refresh, which only re-reads the configured file.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/warp/leave-ledger/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// CORSOrigins allowed to call the API.
	CORSOrigins []string

	// AccessLog receives request logs. Nil means stdout.
	AccessLog io.Writer

	// AccessLogLevel is the level request logs are emitted at.
	AccessLogLevel slog.Level

	// Metrics records request metrics and serves /metrics. May be nil.
	Metrics *metrics.Manager
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	out := opts.AccessLog
	if out == nil {
		out = os.Stdout
	}
	logFormat := httplog.SchemaECS.Concise(false)
	accessLog := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(slog.String("app", "leave-ledger"))

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(accessLog, &httplog.Options{
		Level:  opts.AccessLogLevel,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if opts.Metrics != nil {
		r.Use(metricsMiddleware(opts.Metrics))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/summaries", h.ListSummaries)
		r.Get("/daily", h.ListDaily)
		r.Get("/departments", h.ListDepartments)
		r.Get("/window", h.GetWindow)
		r.Get("/stats", h.GetStats)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/monthly", h.MonthlyReport)
			r.Get("/departments", h.DepartmentReport)
			r.Get("/usage", h.UsageReport)
			r.Get("/rolling", h.RollingReport)
			r.Get("/weekday", h.WeekdayReport)
			r.Get("/burn-rate", h.BurnRateReport)
			r.Get("/remaining", h.RemainingReport)
		})

		r.Get("/applicants/{name}/detail", h.ApplicantDetail)

		// Refresh routes
		r.Route("/refresh-runs", func(r chi.Router) {
			r.Get("/", h.ListRefreshRuns)
			r.Get("/{id}", h.GetRefreshRun)
			r.Get("/{id}/summaries", h.GetArchivedSummaries)
		})
		r.Post("/refresh", h.TriggerRefresh)
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	return r
}

// metricsMiddleware records every request under its route pattern, so
// /api/applicants/{name}/detail is one series rather than one per name.
func metricsMiddleware(m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(route, r.Method, status, time.Since(start))
		})
	}
}

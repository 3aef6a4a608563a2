package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/data"
	"github.com/sokosumi/aikido-reviewer/internal/service"
)

// RouterServices holds the services needed by the buyer-facing API router.
type RouterServices struct {
	Manager          *service.JobManager
	CanaryMarkerName string
	Time             data.TimeProvider // Optional: clock for uptime reporting
	Logger           *slog.Logger      // Optional
}

// NewRouter wires the MIP-003 API routes.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	tp := services.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	jobHandlers := &JobHandlers{
		Manager:          services.Manager,
		CanaryMarkerName: services.CanaryMarkerName,
	}
	metaHandlers := &MetaHandlers{Time: tp, StartAt: tp.Now()}

	mux.HandleFunc("POST /start_job", jobHandlers.StartJob)
	mux.HandleFunc("GET /status", jobHandlers.GetStatus)
	mux.HandleFunc("GET /availability", metaHandlers.Availability)
	mux.HandleFunc("GET /input_schema", metaHandlers.InputSchema)
	mux.HandleFunc("GET /healthz", metaHandlers.Health)

	return withRequestLogging(mux, services.Logger)
}

// WorkerRouterServices holds the services needed by the worker router.
type WorkerRouterServices struct {
	Analyzer     core.Analyzer
	Scanner      core.Scanner
	SharedSecret string
	Time         data.TimeProvider // Optional
	Logger       *slog.Logger      // Optional
}

// NewWorkerRouter wires the worker's internal routes.
func NewWorkerRouter(services WorkerRouterServices) http.Handler {
	mux := http.NewServeMux()

	tp := services.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	workerHandlers := &WorkerHandlers{
		Analyzer:     services.Analyzer,
		Scanner:      services.Scanner,
		SharedSecret: services.SharedSecret,
		Logger:       services.Logger,
	}
	metaHandlers := &MetaHandlers{Time: tp, StartAt: tp.Now()}

	mux.HandleFunc("POST /internal/execute", workerHandlers.RequireSharedSecret(workerHandlers.Execute))
	mux.HandleFunc("GET /healthz", metaHandlers.Health)

	return withRequestLogging(mux, services.Logger)
}

// withRequestLogging logs each request at debug level when a logger is set.
func withRequestLogging(next http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nucleusd/pkg/types"
)

// Service defines the read-only view the ops HTTP surface exposes.
// The orchestrator's App satisfies it.
type Service interface {
	Status() types.StatusReport
	Ready() bool
	Plugins() []types.PluginInfo
	Plugin(name string) (types.PluginInfo, bool)
	Tasks() []types.TaskInfo
}

// NewMux builds the ops router. gatherer is the monitoring manager's
// registry; /metrics also serves the default registry so the HTTP
// request metrics below are visible on the same endpoint.
func NewMux(svc Service, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: "degraded"})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/plugins", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.PluginsResponse{Plugins: svc.Plugins()})
	})

	r.Get("/plugins/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		info, ok := svc.Plugin(name)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "plugin not found: "+name)
			return
		}
		writeJSON(w, http.StatusOK, info)
	})

	r.Get("/tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.TasksResponse{Tasks: svc.Tasks()})
	})

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if gatherer != nil {
		gatherers = append(prometheus.Gatherers{gatherer}, gatherers...)
	}
	r.Get("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}).ServeHTTP)

	MountSwagger(r)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/tradegate/internal/api/handlers"
	"github.com/wonny/tradegate/pkg/logger"
)

// Routes groups the handlers mounted by NewRouter. Nil members are not mounted.
type Routes struct {
	Evaluation *handlers.EvaluationHandler
	Indicators *handlers.IndicatorHandler
	Jobs       *handlers.JobHandler
	Hub        *Hub
	Metrics    bool
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: route table
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if routes.Metrics {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}
	if routes.Hub != nil {
		r.HandleFunc("/ws/decisions", routes.Hub.ServeWS).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	if h := routes.Evaluation; h != nil {
		api.HandleFunc("/evaluate", h.Evaluate).Methods("POST")
		api.HandleFunc("/config/validate", h.ValidateConfig).Methods("POST")
	}
	if h := routes.Indicators; h != nil {
		api.HandleFunc("/indicators", h.Compute).Methods("POST")
	}
	if h := routes.Jobs; h != nil {
		api.HandleFunc("/jobs", h.Stats).Methods("GET")
		api.HandleFunc("/jobs/{name}/history", h.History).Methods("GET")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"tradegate"}`))
}

// statusRecorder captures the response code for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack is needed by the websocket upgrade on /ws/decisions
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

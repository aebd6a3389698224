package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rohanmb/swingline/pkg/logger"
)

// NewRouter wires the API routes
// SSOT: routing lives only here.
func NewRouter(h *Handler, metricsHandler http.Handler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pipeline/run", h.TriggerRun).Methods("POST")
	api.HandleFunc("/recommendation/latest", h.LatestRecommendation).Methods("GET")
	api.HandleFunc("/recommendation/{week}", h.RecommendationByWeek).Methods("GET")
	api.HandleFunc("/recommendation/{week}/status", h.UpdateStatus).Methods("POST")
	api.HandleFunc("/regime/latest", h.LatestRegime).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/rohanmb/swingline/internal/brain"
	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/database"
	"github.com/rohanmb/swingline/pkg/logger"
)

// PipelineRunner triggers the weekly pipeline
type PipelineRunner interface {
	Run(ctx context.Context, at time.Time) (*brain.RunResult, error)
}

// Handler serves the collaborator API
type Handler struct {
	runner          PipelineRunner
	recommendations contracts.RecommendationRepository
	portfolio       contracts.PortfolioRepository
	regimes         contracts.RegimeRepository
	db              *database.DB
	log             *logger.Logger

	// one pipeline run at a time
	running atomic.Bool
}

// NewHandler creates the API handler
func NewHandler(
	runner PipelineRunner,
	recommendations contracts.RecommendationRepository,
	portfolio contracts.PortfolioRepository,
	regimes contracts.RegimeRepository,
	db *database.DB,
	log *logger.Logger,
) *Handler {
	return &Handler{
		runner:          runner,
		recommendations: recommendations,
		portfolio:       portfolio,
		regimes:         regimes,
		db:              db,
		log:             log.WithField("component", "api"),
	}
}

// Health reports service and database health
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": "swingline",
	}
	if h.db != nil {
		dbHealth, err := h.db.HealthCheck(r.Context())
		if err != nil {
			body["status"] = "degraded"
			body["database"] = err.Error()
		} else {
			body["database"] = dbHealth
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// TriggerRun starts a weekly pipeline run in the background
// POST /api/pipeline/run
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if !h.running.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a pipeline run is already in progress")
		return
	}

	week := contracts.WeekStart(time.Now())
	go func() {
		defer h.running.Store(false)
		if _, err := h.runner.Run(context.Background(), time.Now()); err != nil {
			h.log.WithError(err).Error("Triggered pipeline run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"week":   week.Format("2006-01-02"),
	})
}

// LatestRecommendation returns the newest recommendation
// GET /api/recommendation/latest
func (h *Handler) LatestRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recommendations.GetLatest(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, "no recommendation available")
		return
	}
	writeRecommendation(w, rec)
}

// RecommendationByWeek returns the recommendation for a week
// GET /api/recommendation/{week}
func (h *Handler) RecommendationByWeek(w http.ResponseWriter, r *http.Request) {
	week, err := parseWeek(mux.Vars(r)["week"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "week must be YYYY-MM-DD")
		return
	}

	rec, err := h.recommendations.GetByWeek(r.Context(), week)
	if err != nil {
		writeError(w, http.StatusNotFound, "no recommendation for that week")
		return
	}
	writeRecommendation(w, rec)
}

// statusRequest is the body for a status transition
type statusRequest struct {
	Status contracts.AllocationStatus `json:"status"`
}

// UpdateStatus transitions a recommendation through its lifecycle and
// keeps the portfolio allocation in step. The approved allocation is
// what Monday's gap analysis executes against.
// POST /api/recommendation/{week}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	week, err := parseWeek(mux.Vars(r)["week"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "week must be YYYY-MM-DD")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.recommendations.GetByWeek(r.Context(), week)
	if err != nil {
		writeError(w, http.StatusNotFound, "no recommendation for that week")
		return
	}

	if !validTransition(rec.Status, req.Status) {
		writeError(w, http.StatusUnprocessableEntity,
			"cannot transition from "+string(rec.Status)+" to "+string(req.Status))
		return
	}

	if err := h.recommendations.UpdateStatus(r.Context(), week, req.Status); err != nil {
		h.log.WithError(err).Error("Recommendation status update failed")
		writeError(w, http.StatusInternalServerError, "status update failed")
		return
	}
	if err := h.portfolio.UpdateStatus(r.Context(), week, req.Status); err != nil {
		// the recommendation moved; log the divergence rather than
		// failing the request
		h.log.WithError(err).Warn("Allocation status update failed")
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"week":   week.Format("2006-01-02"),
		"status": string(req.Status),
	})
}

// LatestRegime returns the newest regime assessment
// GET /api/regime/latest
func (h *Handler) LatestRegime(w http.ResponseWriter, r *http.Request) {
	regime, err := h.regimes.GetLatest(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, "no regime assessment available")
		return
	}
	writeJSON(w, http.StatusOK, regime)
}

// validTransition enforces the draft → approved → executed lifecycle;
// draft and approved can also expire
func validTransition(from, to contracts.AllocationStatus) bool {
	switch from {
	case contracts.StatusDraft:
		return to == contracts.StatusApproved || to == contracts.StatusExpired
	case contracts.StatusApproved:
		return to == contracts.StatusExecuted || to == contracts.StatusExpired
	default:
		return false
	}
}

func writeRecommendation(w http.ResponseWriter, rec *contracts.Recommendation) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendation": rec,
		"stale":          rec.Stale(time.Now()),
	})
}

func parseWeek(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return contracts.WeekStart(t), nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

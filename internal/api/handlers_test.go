package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/brain"
	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/logger"
)

type fakeRecRepo struct {
	rec      *contracts.Recommendation
	statuses []contracts.AllocationStatus
}

func (f *fakeRecRepo) GetByWeek(ctx context.Context, week time.Time) (*contracts.Recommendation, error) {
	if f.rec == nil || !f.rec.Week.Equal(week) {
		return nil, errors.New("no rows")
	}
	return f.rec, nil
}

func (f *fakeRecRepo) GetLatest(ctx context.Context) (*contracts.Recommendation, error) {
	if f.rec == nil {
		return nil, errors.New("no rows")
	}
	return f.rec, nil
}

func (f *fakeRecRepo) Upsert(ctx context.Context, rec *contracts.Recommendation) error {
	f.rec = rec
	return nil
}

func (f *fakeRecRepo) UpdateStatus(ctx context.Context, week time.Time, status contracts.AllocationStatus) error {
	f.statuses = append(f.statuses, status)
	f.rec.Status = status
	return nil
}

func (f *fakeRecRepo) ExpireOlderThan(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type fakePortfolioRepo struct {
	statuses []contracts.AllocationStatus
}

func (f *fakePortfolioRepo) GetByWeek(ctx context.Context, week time.Time) (*contracts.PortfolioAllocation, error) {
	return nil, errors.New("no rows")
}

func (f *fakePortfolioRepo) GetLatestApproved(ctx context.Context) (*contracts.PortfolioAllocation, error) {
	return nil, errors.New("no rows")
}

func (f *fakePortfolioRepo) Upsert(ctx context.Context, allocation *contracts.PortfolioAllocation) error {
	return nil
}

func (f *fakePortfolioRepo) UpdateStatus(ctx context.Context, week time.Time, status contracts.AllocationStatus) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeRegimeRepo struct{ regime *contracts.Regime }

func (f *fakeRegimeRepo) GetByWeek(ctx context.Context, week time.Time) (*contracts.Regime, error) {
	return nil, errors.New("no rows")
}

func (f *fakeRegimeRepo) GetLatest(ctx context.Context) (*contracts.Regime, error) {
	if f.regime == nil {
		return nil, errors.New("no rows")
	}
	return f.regime, nil
}

func (f *fakeRegimeRepo) Upsert(ctx context.Context, regime *contracts.Regime) error { return nil }

type fakeRunner struct{ runs int }

func (f *fakeRunner) Run(ctx context.Context, at time.Time) (*brain.RunResult, error) {
	f.runs++
	return &brain.RunResult{}, nil
}

func newTestRouter(recs *fakeRecRepo, ports *fakePortfolioRepo) http.Handler {
	h := NewHandler(&fakeRunner{}, recs, ports, &fakeRegimeRepo{}, nil, logger.NewNop())
	return NewRouter(h, nil, logger.NewNop())
}

func draftRecommendation(week time.Time) *contracts.Recommendation {
	return &contracts.Recommendation{
		Week:      week,
		Status:    contracts.StatusDraft,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to contracts.AllocationStatus
		want     bool
	}{
		{contracts.StatusDraft, contracts.StatusApproved, true},
		{contracts.StatusDraft, contracts.StatusExpired, true},
		{contracts.StatusDraft, contracts.StatusExecuted, false},
		{contracts.StatusApproved, contracts.StatusExecuted, true},
		{contracts.StatusApproved, contracts.StatusExpired, true},
		{contracts.StatusApproved, contracts.StatusDraft, false},
		{contracts.StatusExecuted, contracts.StatusExpired, false},
		{contracts.StatusExpired, contracts.StatusApproved, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestUpdateStatus_ApproveSyncsAllocation(t *testing.T) {
	week := contracts.WeekStart(time.Now())
	recs := &fakeRecRepo{rec: draftRecommendation(week)}
	ports := &fakePortfolioRepo{}
	router := newTestRouter(recs, ports)

	body := strings.NewReader(`{"status":"approved"}`)
	req := httptest.NewRequest("POST", "/api/recommendation/"+week.Format("2006-01-02")+"/status", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []contracts.AllocationStatus{contracts.StatusApproved}, recs.statuses)
	assert.Equal(t, []contracts.AllocationStatus{contracts.StatusApproved}, ports.statuses)
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	week := contracts.WeekStart(time.Now())
	recs := &fakeRecRepo{rec: draftRecommendation(week)}
	router := newTestRouter(recs, &fakePortfolioRepo{})

	body := strings.NewReader(`{"status":"executed"}`)
	req := httptest.NewRequest("POST", "/api/recommendation/"+week.Format("2006-01-02")+"/status", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Empty(t, recs.statuses)
}

func TestRecommendationByWeek_BadWeek(t *testing.T) {
	router := newTestRouter(&fakeRecRepo{}, &fakePortfolioRepo{})

	req := httptest.NewRequest("GET", "/api/recommendation/not-a-date", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLatestRecommendation_StaleFlag(t *testing.T) {
	week := contracts.WeekStart(time.Now().AddDate(0, 0, -21))
	rec := draftRecommendation(week)
	rec.ExpiresAt = time.Now().AddDate(0, 0, -14)
	router := newTestRouter(&fakeRecRepo{rec: rec}, &fakePortfolioRepo{})

	req := httptest.NewRequest("GET", "/api/recommendation/latest", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Stale bool `json:"stale"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Stale)
}

func TestTriggerRun_ConflictWhileRunning(t *testing.T) {
	h := NewHandler(&fakeRunner{}, &fakeRecRepo{}, &fakePortfolioRepo{}, &fakeRegimeRepo{}, nil, logger.NewNop())
	h.running.Store(true)
	router := NewRouter(h, nil, logger.NewNop())

	req := httptest.NewRequest("POST", "/api/pipeline/run", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

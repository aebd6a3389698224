package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Metrics is the process-wide prometheus registry. One instance is
// created at startup and threaded to the orchestrator and API server.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageOutput   *prometheus.GaugeVec
	runsTotal     *prometheus.CounterVec
	regimeState   *prometheus.GaugeVec
	gapDecisions  *prometheus.CounterVec
	healthScore   prometheus.Gauge
}

// New creates a registry with process collectors attached
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swingline_stage_duration_seconds",
			Help:    "Wall time per pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		stageOutput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swingline_stage_symbols_kept",
			Help: "Symbols surviving each stage in the latest run",
		}, []string{"stage"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swingline_pipeline_runs_total",
			Help: "Completed pipeline runs by outcome",
		}, []string{"status"}),
		regimeState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "swingline_regime_state",
			Help: "Current regime, 1 on the active state's series",
		}, []string{"state"}),
		gapDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swingline_gap_decisions_total",
			Help: "Monday gap decisions by action",
		}, []string{"action"}),
		healthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swingline_system_health_score",
			Help: "Friday system health score, 0-100",
		}),
	}

	registry.MustRegister(
		m.stageDuration, m.stageOutput, m.runsTotal,
		m.regimeState, m.gapDecisions, m.healthScore,
	)
	return m
}

// Handler serves the registry for /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage execution
func (m *Metrics) ObserveStage(stage contracts.Stage, duration time.Duration, kept int) {
	m.stageDuration.WithLabelValues(stage.ShortName()).Observe(duration.Seconds())
	m.stageOutput.WithLabelValues(stage.ShortName()).Set(float64(kept))
}

// RecordRun counts a completed pipeline run
func (m *Metrics) RecordRun(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

// SetRegime flips the active regime series
func (m *Metrics) SetRegime(state contracts.RegimeState) {
	for _, s := range []contracts.RegimeState{contracts.RegimeRiskOn, contracts.RegimeChoppy, contracts.RegimeRiskOff} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		m.regimeState.WithLabelValues(string(s)).Set(v)
	}
}

// RecordGapDecision counts one Monday gap decision
func (m *Metrics) RecordGapDecision(action contracts.GapAction) {
	m.gapDecisions.WithLabelValues(string(action)).Inc()
}

// SetHealthScore publishes the latest Friday health score
func (m *Metrics) SetHealthScore(score float64) {
	m.healthScore.Set(score)
}

package scheduler

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
}

func (j stubJob) Name() string                  { return j.name }
func (j stubJob) Schedule() string              { return j.schedule }
func (j stubJob) Run(ctx context.Context) error { return nil }

func TestAddJob(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(stubJob{name: "a", schedule: "0 0 10 * * SAT"}))

	err := s.AddJob(stubJob{name: "a", schedule: "0 0 10 * * SAT"})
	assert.ErrorContains(t, err, "already exists")

	err = s.AddJob(stubJob{name: "b", schedule: "not a schedule"})
	assert.ErrorContains(t, err, "failed to schedule")

	assert.ErrorContains(t, s.RunJob("missing"), "not found")
}

func TestJobSchedulesParse(t *testing.T) {
	parser := cron.NewParser(
		cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	jobs := []Job{
		NewWeeklyPipelineJob(nil),
		NewMondayGapJob(nil, nil, nil, logger.NewNop()),
		NewFridayReviewJob(nil, nil, nil, logger.NewNop()),
		NewExpirySweepJob(nil, logger.NewNop()),
	}
	for _, job := range jobs {
		_, err := parser.Parse(job.Schedule())
		assert.NoError(t, err, "schedule for %s", job.Name())
	}
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.SuccessRate())

	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false})
	assert.InDelta(t, 2.0/3.0, h.SuccessRate(), 1e-9)

	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{Success: true})
	}
	assert.Len(t, h.Results, 100)
}

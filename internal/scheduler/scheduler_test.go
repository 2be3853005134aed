package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunsScheduledJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_Trigger(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "archive_runs"}
	failing := &countingJob{name: "broken", err: errors.New("boom")}
	s.Register(ok)
	require.NoError(t, s.AddJob("0 0 3 * * *", failing))

	assert.Equal(t, []string{"archive_runs", "broken"}, s.Jobs())

	require.NoError(t, s.Trigger("archive_runs"))
	assert.Equal(t, int32(1), ok.runs.Load())

	assert.EqualError(t, s.Trigger("broken"), "boom")
	assert.Error(t, s.Trigger("missing"))
}

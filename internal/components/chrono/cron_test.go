package chrono

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gugu/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestSchedulerAdd(t *testing.T) {
	s := NewScheduler(NewStandardCalendar(), nil)
	noop := func(context.Context) {}

	next, err := s.Add(context.Background(), Job{Name: "margins", Schedule: "30 17 * * 1-5", Run: noop})
	require.NoError(t, err)
	require.Equal(t, 17, next.In(Shanghai()).Hour())
	require.Equal(t, 30, next.In(Shanghai()).Minute())

	_, err = s.Add(context.Background(), Job{Name: "margins", Schedule: "@hourly", Run: noop})
	require.ErrorContains(t, err, "already scheduled")

	_, err = s.Add(context.Background(), Job{Name: "broken", Schedule: "every tuesday", Run: noop})
	require.Error(t, err)

	_, err = s.Add(context.Background(), Job{Schedule: "@hourly", Run: noop})
	require.Error(t, err)

	_, ok := s.Next("margins")
	require.False(t, ok)
	s.Start()
	defer s.Stop(context.Background())

	_, ok = s.Next("margins")
	require.True(t, ok)
	_, ok = s.Next("unknown")
	require.False(t, ok)
}

func TestSchedulerRunsJobs(t *testing.T) {
	recorder := &telemetry.Recorder{}
	s := NewScheduler(NewStandardCalendar(), recorder)

	var runs atomic.Int32
	_, err := s.Add(context.Background(), Job{
		Name:     "latest",
		Schedule: "@every 1s",
		Run:      func(context.Context) { runs.Add(1) },
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	require.True(t, recorder.Has("debug", "scheduler: job-run"))
}

func TestSchedulerSkipsClosedDays(t *testing.T) {
	recorder := &telemetry.Recorder{}
	// a saturday
	calendar := NewStandardCalendar().WithNow(fixedNow("2019-01-12 10:00"))
	s := NewScheduler(calendar, recorder)

	var runs atomic.Int32
	_, err := s.Add(context.Background(), Job{
		Name:          "top-list",
		Schedule:      "@every 1s",
		TradeDaysOnly: true,
		Run:           func(context.Context) { runs.Add(1) },
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool {
		return recorder.Has("debug", "scheduler: job-skip")
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	require.Zero(t, runs.Load())
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	recorder := &telemetry.Recorder{}
	s := NewScheduler(NewStandardCalendar(), recorder)

	release := make(chan struct{})
	var runs atomic.Int32
	_, err := s.Add(context.Background(), Job{
		Name:     "history-ticks",
		Schedule: "@every 1s",
		Run: func(context.Context) {
			runs.Add(1)
			<-release
		},
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool {
		return recorder.Has("debug", "scheduler: skip")
	}, 5*time.Second, 20*time.Millisecond)
	require.EqualValues(t, 1, runs.Load())

	close(release)
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerRecoversPanics(t *testing.T) {
	recorder := &telemetry.Recorder{}
	s := NewScheduler(NewStandardCalendar(), recorder)

	_, err := s.Add(context.Background(), Job{
		Name:     "ipo",
		Schedule: "@every 1s",
		Run:      func(context.Context) { panic("boom") },
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool {
		return recorder.Has("broken", "scheduler: panic")
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

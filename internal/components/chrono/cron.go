package chrono

import (
	"context"
	"errors"
	"fmt"
	"gugu/internal/components/telemetry"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one task run on a cron schedule.
type Job struct {
	Name string
	// Schedule is a standard 5 field cron expression or a descriptor like
	// "@hourly", evaluated in exchange time.
	Schedule string
	// TradeDaysOnly skips firings on days the calendar marks closed.
	TradeDaysOnly bool
	Run           func(ctx context.Context)
}

// Scheduler runs jobs in exchange time. A firing that comes while the
// previous run of the same job is still going is skipped, and a job that
// panics is reported instead of stopping the scheduler.
type Scheduler struct {
	cron     *cron.Cron
	calendar Calendar
	tel      telemetry.API

	mutex sync.Mutex
	ids   map[string]cron.EntryID
}

func NewScheduler(calendar Calendar, tel telemetry.API) *Scheduler {
	if tel == nil {
		tel = telemetry.NoopAPI{}
	}
	tel = telemetry.NewScopedAPI("scheduler", tel)
	logger := cronLogger{tel: tel}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(shanghai),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		calendar: calendar,
		tel:      tel,
		ids:      map[string]cron.EntryID{},
	}
}

// Add registers job, ctx is handed to every run. It returns the first time
// the job fires.
func (s *Scheduler) Add(ctx context.Context, job Job) (time.Time, error) {
	if job.Name == "" {
		return time.Time{}, errors.New("job has no name")
	}
	if job.Run == nil {
		return time.Time{}, fmt.Errorf("job %s has nothing to run", job.Name)
	}
	schedule, err := cron.ParseStandard(job.Schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("job %s: %w", job.Name, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, exists := s.ids[job.Name]; exists {
		return time.Time{}, fmt.Errorf("job %s is already scheduled", job.Name)
	}
	s.ids[job.Name] = s.cron.Schedule(schedule, cron.FuncJob(func() {
		s.fire(ctx, job)
	}))
	return schedule.Next(time.Now().In(shanghai)), nil
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if job.TradeDaysOnly && s.calendar != nil && !s.calendar.IsTradeDay(s.calendar.Today()) {
		s.tel.ReportDebug("job-skip", job.Name, "closed day")
		return
	}
	s.tel.ReportDebug("job-run", job.Name)
	job.Run(ctx)
}

// Next returns when the named job fires next. It is only known once the
// scheduler is started.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mutex.Lock()
	id, ok := s.ids[name]
	s.mutex.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops new firings and waits for running jobs to return or for ctx
// to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger forwards the scheduler's own logs, key value pairs are passed
// through as report params.
type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(msg, append([]any{err}, keysAndValues...)...)
}

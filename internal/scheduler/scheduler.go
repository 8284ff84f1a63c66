// Package scheduler runs the daily and monthly reset jobs on wall-clock
// boundaries.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
	"github.com/robfig/cron/v3"
	"golang.org/x/xerrors"

	"github.com/SoarinFerret/BreakWarden/internal/config"
	"github.com/SoarinFerret/BreakWarden/internal/delivery"
	"github.com/SoarinFerret/BreakWarden/internal/observability"
	"github.com/SoarinFerret/BreakWarden/internal/report"
	"github.com/SoarinFerret/BreakWarden/internal/state"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// DailySpec is the cron expression firing every day at tod.
func DailySpec(tod config.TimeOfDay) string {
	return fmt.Sprintf("%d %d %d * * *", tod.Second, tod.Minute, tod.Hour)
}

// MonthlySpec is the cron expression firing on day of every month at tod.
// Months without that day are skipped.
func MonthlySpec(day int, tod config.TimeOfDay) string {
	return fmt.Sprintf("%d %d %d %d * *", tod.Second, tod.Minute, tod.Hour, day)
}

type Job struct {
	Kind     report.Kind
	Schedule cron.Schedule
}

type Options struct {
	Logger    slog.Logger
	Clock     quartz.Clock
	Config    *config.Config
	Registry  *state.Registry
	Generator *report.Generator
	Deliverer delivery.Deliverer
}

// Scheduler owns one timer loop per job. Runs never overlap, whether they
// come from a timer or from Fire.
type Scheduler struct {
	logger    slog.Logger
	clock     quartz.Clock
	location  *time.Location
	registry  *state.Registry
	generator *report.Generator
	deliverer delivery.Deliverer
	jobs      []Job

	runMu sync.Mutex

	mu   sync.Mutex
	last map[report.Kind]time.Time
}

func New(opts Options) (*Scheduler, error) {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}

	sched := opts.Config.Schedule
	daily, err := parser.Parse(DailySpec(*sched.DailyReset))
	if err != nil {
		return nil, xerrors.Errorf("parse daily schedule: %w", err)
	}
	monthly, err := parser.Parse(MonthlySpec(sched.MonthlyResetDay, *sched.MonthlyReset))
	if err != nil {
		return nil, xerrors.Errorf("parse monthly schedule: %w", err)
	}

	return &Scheduler{
		logger:    opts.Logger,
		clock:     opts.Clock,
		location:  opts.Config.Location(),
		registry:  opts.Registry,
		generator: opts.Generator,
		deliverer: opts.Deliverer,
		jobs: []Job{
			{Kind: report.KindDaily, Schedule: daily},
			{Kind: report.KindMonthly, Schedule: monthly},
		},
		last: make(map[report.Kind]time.Time),
	}, nil
}

// Next returns the first fire time of job strictly after now, and after the
// job's previous fire.
func (s *Scheduler) Next(job Job, now time.Time) time.Time {
	from := now
	s.mu.Lock()
	if last, ok := s.last[job.Kind]; ok && last.After(from) {
		from = last
	}
	s.mu.Unlock()
	return job.Schedule.Next(from.In(s.location))
}

// Run blocks until ctx is done. A job that has already fired runs to
// completion even if ctx is cancelled meanwhile.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info(ctx, "scheduler started", slog.F("jobs", len(s.jobs)))

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()

	s.logger.Info(context.Background(), "scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	logger := s.logger.With(slog.F("job", job.Kind))
	for {
		now := s.clock.Now()
		next := s.Next(job, now)
		if next.IsZero() {
			logger.Error(ctx, "schedule has no upcoming fire time")
			return
		}
		logger.Debug(ctx, "next run scheduled", slog.F("at", next))

		timer := s.clock.NewTimer(next.Sub(now), "scheduler", string(job.Kind))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.run(context.WithoutCancel(ctx), job.Kind, next)
	}
}

// Fire runs the job of kind immediately and returns the number of tenants it
// processed.
func (s *Scheduler) Fire(ctx context.Context, kind report.Kind) (int, error) {
	if kind != report.KindDaily && kind != report.KindMonthly {
		return 0, xerrors.Errorf("fire %q: no such job", kind)
	}
	return s.run(context.WithoutCancel(ctx), kind, s.clock.Now()), nil
}

func (s *Scheduler) run(ctx context.Context, kind report.Kind, firedAt time.Time) int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	if last, ok := s.last[kind]; !ok || firedAt.After(last) {
		s.last[kind] = firedAt
	}
	s.mu.Unlock()

	logger := s.logger.With(slog.F("job", kind))
	tenants := s.registry.ListTenants()
	logger.Info(ctx, "running reset", slog.F("tenants", len(tenants)), slog.F("fired_at", firedAt))

	failed := 0
	for _, tenantID := range tenants {
		var summary report.Summary
		switch kind {
		case report.KindDaily:
			summary = s.generator.Daily(tenantID, firedAt)
		case report.KindMonthly:
			summary = s.generator.Monthly(tenantID, firedAt)
		}
		observability.RecordReset(string(kind))

		if s.deliverer == nil {
			continue
		}
		if err := s.deliverer.Deliver(ctx, summary); err != nil {
			failed++
			logger.Error(ctx, "deliver summary",
				slog.F("tenant_id", tenantID),
				slog.Error(err),
			)
		}
	}

	observability.RecordResetRun(string(kind), firedAt)
	logger.Info(ctx, "reset finished", slog.F("tenants", len(tenants)), slog.F("failed_deliveries", failed))
	return len(tenants)
}

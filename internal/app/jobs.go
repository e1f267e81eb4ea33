package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/ledger"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// jobTimeout bounds one scheduled run.
const jobTimeout = 30 * time.Second

// StartScheduler registers the recovery and export jobs from the schedule
// config and starts the cron scheduler. Empty specs are skipped.
func (a *App) StartScheduler() error {
	if a.sched != nil {
		return fmt.Errorf("scheduler already running")
	}
	sched := cron.New(cron.WithLocation(time.UTC), cron.WithParser(cronParser))

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"recover", a.Config.Schedule.Recover, a.SchedRecoverTask},
		{"export", a.Config.Schedule.Export, a.SchedExportTask},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := sched.AddFunc(j.spec, j.run); err != nil {
			return fmt.Errorf("schedule %s job %q: %w", j.name, j.spec, err)
		}
		a.Log.Info("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}

	a.sched = sched
	a.sched.Start()
	return nil
}

// StopScheduler stops the scheduler and waits for running jobs.
func (a *App) StopScheduler() {
	if a.sched == nil {
		return
	}
	<-a.sched.Stop().Done()
	a.sched = nil
}

// Run starts the scheduler and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.StartScheduler(); err != nil {
		return err
	}
	<-ctx.Done()
	a.StopScheduler()
	return nil
}

// SchedRecoverTask applies pending deductions.
func (a *App) SchedRecoverTask() {
	defer func() {
		if err := recover(); err != nil {
			a.Log.Error("recover job panic", zap.Any("panic", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := a.Recover(ctx)
	if err != nil {
		a.Log.Error("scheduled recovery failed", zap.Error(err))
		return
	}
	if len(report.Sales) > 0 {
		a.Log.Info("scheduled recovery applied deductions",
			zap.Int("sales", len(report.Sales)),
			zap.Int("applied", report.Applied),
			zap.Int("skipped", report.Skipped))
	}
}

// SchedExportTask writes the JSON export to the configured directory.
func (a *App) SchedExportTask() {
	defer func() {
		if err := recover(); err != nil {
			a.Log.Error("export job panic", zap.Any("panic", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	path, err := a.Export(ctx, "", ledger.FormatJSON)
	switch {
	case IsNothingToExport(err):
		a.Log.Debug("scheduled export skipped, no sales")
	case err != nil:
		a.Log.Error("scheduled export failed", zap.Error(err))
	default:
		a.Log.Info("scheduled export written", zap.String("path", path))
	}
}

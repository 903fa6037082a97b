package commands

import (
	"context"
	"fmt"
	"gugu/internal/components/chrono"
	"gugu/internal/datasets"
	"gugu/internal/store"
	"gugu/lib/telemetry"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Fetches the datasets listed under `watch` in the configuration on their schedules and saves them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(config.Watch) == 0 {
			return fmt.Errorf("the configuration has no watch jobs")
		}
		if config.Database.Empty() {
			return fmt.Errorf("watch needs a database in the configuration")
		}
		a, err := newApp(config)
		if err != nil {
			return err
		}
		db, err := config.Database.Open()
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		s := store.New(db)

		ctx := cmd.Context()
		scheduler := chrono.NewScheduler(a.env.Calendar, a.tel)

		for i, job := range config.Watch {
			d, err := a.registry.Lookup(job.Dataset)
			if err != nil {
				return err
			}
			args := datasets.Args(job.Args)
			next, err := scheduler.Add(ctx, chrono.Job{
				Name:          fmt.Sprintf("%d:%s", i, d.Name),
				Schedule:      job.Schedule,
				TradeDaysOnly: job.TradeDaysOnly,
				Run: func(ctx context.Context) {
					runJob(ctx, a, s, d, args)
				},
			})
			if err != nil {
				return fmt.Errorf("schedule %s: %w", job.Dataset, err)
			}
			slog.Info("scheduled", "dataset", d.Name, "schedule", job.Schedule, "next", next)
		}

		scheduler.Start()
		stopStats := telemetry.PerfStats{Interval: 30 * time.Second}.Start(ctx)
		defer stopStats()

		<-ctx.Done()
		slog.Info("stopping watch, waiting for running jobs")
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return scheduler.Stop(stopCtx)
	},
}

func runJob(ctx context.Context, a app, s store.Store, d datasets.Dataset, args datasets.Args) {
	start := time.Now()
	result, err := d.Run(ctx, a.pipeline, a.env, args, a.params())
	if err != nil {
		slog.Error("watch job failed", "dataset", d.Name, "err", err)
		return
	}
	err = s.WriteTable(ctx, d.Name, result, store.Append)
	if err != nil {
		slog.Error("watch job failed to save", "dataset", d.Name, "err", err)
		return
	}
	slog.Info(
		"watch job done",
		"dataset", d.Name,
		"records", result.Len(),
		"seconds", time.Since(start).Seconds(),
	)
}

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var perfMeter = otel.Meter("gugu.perf_stats")

var (
	cpuGauge, _       = perfMeter.Float64Gauge("cpu_usage", metric.WithUnit("%"))
	rssGauge, _       = perfMeter.Int64Gauge("resident_mb", metric.WithUnit("MB"))
	heapGauge, _      = perfMeter.Int64Gauge("heap_alloc_mb", metric.WithUnit("MB"))
	goroutineGauge, _ = perfMeter.Int64Gauge("goroutine_count")
)

// PerfSample is one reading of the process statistics.
type PerfSample struct {
	CPUPercent  float64
	ResidentMB  int64
	HeapAllocMB int64
	Goroutines  int
}

// SamplePerf reads the process statistics, cpu usage is measured over
// window. Fields that could not be read are left zero and reported in the
// joined error.
func SamplePerf(ctx context.Context, window time.Duration) (PerfSample, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	sample := PerfSample{
		HeapAllocMB: int64(memStats.HeapAlloc / 1_000_000),
		Goroutines:  runtime.NumGoroutine(),
	}

	var errs []error
	usage, err := cpu.PercentWithContext(ctx, window, false)
	switch {
	case err != nil:
		errs = append(errs, err)
	case len(usage) > 0:
		sample.CPUPercent = usage[0]
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err == nil {
		var info *process.MemoryInfoStat
		info, err = proc.MemoryInfoWithContext(ctx)
		if err == nil {
			sample.ResidentMB = int64(info.RSS / 1_000_000)
		}
	}
	if err != nil {
		errs = append(errs, err)
	}
	return sample, errors.Join(errs...)
}

// PerfStats records a PerfSample into gauges every Interval.
type PerfStats struct {
	Interval time.Duration
	// CPUWindow is how long every cpu reading measures, it is capped at
	// Interval.
	CPUWindow time.Duration
}

func (p PerfStats) window() time.Duration {
	window := p.CPUWindow
	if window <= 0 {
		window = time.Second
	}
	return min(window, p.Interval)
}

// Start samples in the background until ctx is done or stop is called.
// stop waits for the sampler to exit.
func (p PerfStats) Start(ctx context.Context) (stop func()) {
	if p.Interval <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.record(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (p PerfStats) record(ctx context.Context) {
	sample, err := SamplePerf(ctx, p.window())
	if err != nil && ctx.Err() == nil {
		slog.WarnContext(ctx, "incomplete perf sample", "err", err)
	}
	cpuGauge.Record(ctx, sample.CPUPercent)
	rssGauge.Record(ctx, sample.ResidentMB)
	heapGauge.Record(ctx, sample.HeapAllocMB)
	goroutineGauge.Record(ctx, int64(sample.Goroutines))
}

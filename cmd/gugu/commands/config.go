package commands

import (
	"errors"
	"gugu/internal/components/chrono"
	"gugu/internal/components/telemetry"
	"gugu/internal/datasets"
	"gugu/internal/extract"
	"gugu/internal/output"
	"gugu/internal/store"
	"gugu/lib/configutil"
	"gugu/lib/restyutil"
	"os"
	"time"
)

type WatchJob struct {
	// Schedule is a cron expression in exchange time.
	Schedule string            `json:"schedule"`
	Dataset  string            `json:"dataset"`
	Args     map[string]string `json:"args"`
	// TradeDaysOnly skips the job on weekends and holidays.
	TradeDaysOnly bool `json:"trade_days_only"`
}

type Config struct {
	Retry   int    `json:"retry"`
	PauseMs int    `json:"pause_ms"`
	Output  string `json:"output"`
	Debug   bool   `json:"debug"`

	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
	Cloudflare        bool    `json:"cloudflare"`
	// DumpDir receives every http message when set.
	DumpDir string `json:"dump_dir"`

	Database store.Config `json:"database"`
	// Holidays are the exchange holidays (YYYY-MM-DD) on top of weekends.
	Holidays []string   `json:"holidays"`
	Watch    []WatchJob `json:"watch"`
}

func readConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{Output: string(output.ModeTable)}, nil
	}
	if err != nil {
		return Config{}, err
	}
	if config.Output == "" {
		config.Output = string(output.ModeTable)
	}
	return config, nil
}

// app holds everything a command needs to run datasets.
type app struct {
	config   Config
	registry datasets.Registry
	pipeline extract.Pipeline
	env      datasets.Env
	tel      telemetry.API
}

func newApp(config Config) (app, error) {
	tel := telemetry.SlogAPI{}

	opts := extract.FetcherOptions{
		UserAgent:         config.UserAgent,
		RequestsPerSecond: config.RequestsPerSecond,
		CloudflareBypass:  config.Cloudflare,
	}
	if config.DumpDir != "" {
		dump, err := restyutil.NewFilesystemOutput(config.DumpDir)
		if err != nil {
			return app{}, err
		}
		opts.Dump = dump
	}
	fetcher, err := extract.NewFetcher(opts, tel)
	if err != nil {
		return app{}, err
	}

	return app{
		config:   config,
		registry: datasets.Builtin(),
		pipeline: extract.NewPipeline(fetcher, tel),
		env:      datasets.Env{Calendar: chrono.NewStandardCalendar(config.Holidays...)},
		tel:      tel,
	}, nil
}

func (a app) params() extract.Params {
	return extract.Params{
		Retry: a.config.Retry,
		Pause: time.Duration(a.config.PauseMs) * time.Millisecond,
	}
}

package commands

import (
	"context"
	"fmt"
	"gugu/lib/telemetry"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	debugFlag  *bool
	retryFlag  *int
	pauseFlag  *int
	outputFlag *string

	config   Config
	otelStop func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:           "gugu",
	Short:         "gugu fetches chinese stock market datasets from public quote sites.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = readConfig(*configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		flags := cmd.Flags()
		if flags.Changed("debug") {
			config.Debug = *debugFlag
		}
		if flags.Changed("retry") {
			config.Retry = *retryFlag
		}
		if flags.Changed("pause") {
			config.PauseMs = *pauseFlag
		}
		if flags.Changed("output") {
			config.Output = *outputFlag
		}

		telemetry.InitSlog(config.Debug)
		tel, err := telemetry.SetupFromEnv(cmd.Context(), "gugu")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
		}
		otelStop = tel.Shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if otelStop == nil {
			return
		}
		err := otelStop(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	configPath = flags.String("config", "gugu.json5", "The configuration file, a sibling .local.json5 file overrides it.")
	debugFlag = flags.Bool("debug", false, "Log debug messages.")
	retryFlag = flags.Int("retry", 0, "Attempts per page, defaults to 3.")
	pauseFlag = flags.Int("pause", 0, "Milliseconds to wait between attempts.")
	outputFlag = flags.StringP("output", "o", "", "Output mode: table, records or csv.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

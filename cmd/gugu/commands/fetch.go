package commands

import (
	"fmt"
	"gugu/internal/datasets"
	"gugu/internal/extract"
	"gugu/internal/output"
	"gugu/internal/store"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	fetchArgs   *map[string]string
	fetchMax    *int
	fetchQuiet  *bool
	fetchSave   *bool
	fetchAppend *bool
)

func init() {
	flags := fetchCmd.Flags()
	fetchArgs = flags.StringToStringP("arg", "a", nil, "Dataset arguments as key=value, see `gugu list`.")
	fetchMax = flags.Int("max", 0, "Keep at most this many records, whole pages are still fetched.")
	fetchQuiet = flags.BoolP("quiet", "q", false, "Do not print progress to stderr.")
	fetchSave = flags.Bool("save", false, "Write the result into the configured database.")
	fetchAppend = flags.Bool("append", false, "Append to the database table instead of replacing it.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <dataset> [--arg key=value]...",
	Short: "Fetches a dataset and prints it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := output.ParseMode(config.Output)
		if err != nil {
			return err
		}
		a, err := newApp(config)
		if err != nil {
			return err
		}
		d, err := a.registry.Lookup(args[0])
		if err != nil {
			return err
		}

		params := a.params()
		params.MaxRecords = *fetchMax
		if !*fetchQuiet {
			params.Sink = extract.ConsoleSink{Out: os.Stderr}
		}

		result, err := d.Run(cmd.Context(), a.pipeline, a.env, datasets.Args(*fetchArgs), params)
		if !*fetchQuiet {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		if *fetchSave {
			if config.Database.Empty() {
				return fmt.Errorf("--save needs a database in the configuration")
			}
			db, err := config.Database.Open()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			writeMode := store.Replace
			if *fetchAppend {
				writeMode = store.Append
			}
			err = store.New(db).WriteTable(cmd.Context(), d.Name, result, writeMode)
			if err != nil {
				return err
			}
			slog.Info("saved", "table", store.TableName(d.Name), "records", result.Len())
		}

		return output.Render(os.Stdout, mode, result)
	},
}

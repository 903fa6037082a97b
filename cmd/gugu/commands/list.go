package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [filter...]",
	Short: "Prints every dataset and the arguments it takes.",
	Long:  "Prints every dataset and the arguments it takes. Filters keep the datasets whose name or group contains one of them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Dataset", "Group", "Arguments", "Description"})
		matched := a.registry.Match(args...)
		if len(matched) == 0 {
			return fmt.Errorf("no dataset matches %s", strings.Join(args, ", "))
		}
		for _, d := range matched {
			t.AppendRow(table.Row{d.Name, d.Group, strings.Join(d.ArgNames, ", "), d.Description})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

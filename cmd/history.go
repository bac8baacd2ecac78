package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/regswap/internal/infrastructure/sqlite"
	"github.com/zjrosen/regswap/internal/presentation"
)

var (
	historyName     string
	historyScenario string
	historyLimit    int
	historyClear    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded substitution runs",
	Long: `List recorded substitution runs as JSON, newest first.

Run history is recorded by 'regswap run' when history.enabled is set in
the config file.

Examples:
  # List the most recent runs
  regswap history

  # Filter by substituted name
  regswap history --name pkg.child

  # Filter by scenario and cap the result count
  regswap history --scenario smoke --limit 10

  # Clear all recorded runs
  regswap history --clear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := sqlite.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer func() { _ = db.Close() }()

		if historyClear {
			if err := db.Runs().DeleteAll(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "run history cleared")
			return nil
		}

		runs, err := db.Runs().List(sqlite.RunFilter{
			Name:     historyName,
			Scenario: historyScenario,
			Limit:    historyLimit,
		})
		if err != nil {
			return err
		}
		if runs == nil {
			runs = []*sqlite.Run{}
		}

		formatter := presentation.NewFormatter(os.Stdout)
		return formatter.FormatJSON(runs)
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyName, "name", "n", "", "filter by substituted name")
	historyCmd.Flags().StringVarP(&historyScenario, "scenario", "s", "", "filter by scenario name")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 50, "maximum number of runs to list (0 = no limit)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all recorded runs")
	rootCmd.AddCommand(historyCmd)
}

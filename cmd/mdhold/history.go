package cmd

import (
	"errors"
	"fmt"

	"github.com/kerbaras/mdhold/pkg/app/components"
	"github.com/kerbaras/mdhold/pkg/app/styles"
	"github.com/kerbaras/mdhold/pkg/data"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show journalled runs, or the changes of one run",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if !cfg.JournalEnabled() {
			cobra.CheckErr(errors.New("the run journal is turned off"))
		}

		controller, err := newController()
		cobra.CheckErr(err)
		defer controller.Close()

		journal, err := controller.Journal()
		cobra.CheckErr(err)

		out := cmd.OutOrStdout()
		runID, _ := cmd.Flags().GetString("run")
		if runID == "" {
			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := journal.ListRuns(limit)
			cobra.CheckErr(err)
			if len(runs) == 0 {
				fmt.Fprintln(out, "📜 No runs journalled yet.")
				return
			}
			fmt.Fprintln(out, styles.TitleStyle.Render("📜 Runs"))
			fmt.Fprintln(out, components.RunsTable(runs))
			return
		}

		run, err := journal.GetRun(runID)
		cobra.CheckErr(err)
		changes, err := journal.GetChanges(runID)
		cobra.CheckErr(err)

		fmt.Fprintln(out, components.RunsTable([]*data.Run{run}))
		if len(changes) == 0 {
			fmt.Fprintln(out, "No changes in this run.")
			return
		}
		fmt.Fprintln(out, components.ChangesTable(changes))
	},
}

func init() {
	historyCmd.Flags().String("run", "", "show the changes of this run")
	historyCmd.Flags().Int("limit", 20, "how many runs to list (0 for all)")
}

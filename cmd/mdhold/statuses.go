package cmd

import (
	"fmt"

	"github.com/kerbaras/mdhold/pkg/app/components"
	"github.com/kerbaras/mdhold/pkg/app/styles"
	"github.com/kerbaras/mdhold/pkg/mangadex"
	"github.com/spf13/cobra"
)

var statusesCmd = &cobra.Command{
	Use:   "statuses",
	Short: "Show the reading status of every manga",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var filter mangadex.Status
		if v, _ := cmd.Flags().GetString("status"); v != "" {
			var err error
			filter, err = mangadex.ParseStatus(v)
			cobra.CheckErr(err)
		}

		controller, err := newController()
		cobra.CheckErr(err)
		defer controller.Close()

		out := cmd.OutOrStdout()
		if mangaID, _ := cmd.Flags().GetString("manga"); mangaID != "" {
			status, err := controller.Client.MangaStatus(cmd.Context(), mangaID)
			cobra.CheckErr(err)
			fmt.Fprintln(out, components.StatusTable(mangadex.StatusMap{mangaID: status}))
			return
		}

		statuses, err := controller.Client.Statuses(cmd.Context(), filter)
		cobra.CheckErr(err)

		if len(statuses) == 0 {
			fmt.Fprintln(out, "📚 No manga with a reading status.")
			return
		}

		fmt.Fprintln(out, styles.TitleStyle.Render(fmt.Sprintf("📚 Reading statuses (%d manga)", len(statuses))))
		fmt.Fprintln(out, components.StatusTable(statuses))

		if filter == "" {
			for _, s := range mangadex.Statuses {
				if n := statuses.Count(s); n > 0 {
					fmt.Fprintf(out, "%s %d  ", styles.StatusStyle(string(s)).Render(string(s)), n)
				}
			}
			fmt.Fprintln(out)
		}
	},
}

func init() {
	statusesCmd.Flags().String("status", "", "only show manga in this status")
	statusesCmd.Flags().String("manga", "", "show the status of this one manga id")
	statusesCmd.MarkFlagsMutuallyExclusive("status", "manga")
}

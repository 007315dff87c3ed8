package cmd

import (
	"fmt"

	"github.com/kerbaras/mdhold/pkg/app/components"
	"github.com/kerbaras/mdhold/pkg/app/styles"
	"github.com/spf13/cobra"
)

var followsCmd = &cobra.Command{
	Use:   "follows",
	Short: "List the manga you follow",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		controller, err := newController()
		cobra.CheckErr(err)
		defer controller.Close()

		manga, err := controller.Client.FollowedManga(cmd.Context())
		cobra.CheckErr(err)

		out := cmd.OutOrStdout()
		if len(manga) == 0 {
			fmt.Fprintln(out, "📚 You are not following any manga.")
			return
		}
		fmt.Fprintln(out, styles.TitleStyle.Render(fmt.Sprintf("📚 Followed manga (%d)", len(manga))))
		fmt.Fprintln(out, components.FollowsTable(manga))
	},
}

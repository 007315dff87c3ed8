package cmd

import (
	"fmt"

	"github.com/kerbaras/mdhold/pkg/app/components"
	"github.com/kerbaras/mdhold/pkg/app/styles"
	"github.com/spf13/cobra"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show your custom lists",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		controller, err := newController()
		cobra.CheckErr(err)
		defer controller.Close()

		lists, err := controller.Client.UserLists(cmd.Context())
		cobra.CheckErr(err)

		out := cmd.OutOrStdout()
		if len(lists) == 0 {
			fmt.Fprintln(out, "📚 No custom lists.")
			return
		}
		fmt.Fprintln(out, styles.TitleStyle.Render(fmt.Sprintf("📚 Custom lists (%d)", len(lists))))
		fmt.Fprintln(out, components.ListsTable(lists))
	},
}

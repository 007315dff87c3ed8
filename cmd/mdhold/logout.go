package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored refresh token",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		controller, err := newController()
		cobra.CheckErr(err)
		defer controller.Close()

		cobra.CheckErr(controller.Auth.Logout())
		fmt.Fprintln(cmd.OutOrStdout(), "👋 Refresh token removed")
	},
}

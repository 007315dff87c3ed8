package cmd

import (
	"fmt"
	"time"

	"github.com/kerbaras/mdhold/pkg/config"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the refresh token",
	Long: `Start a MangaDex session and keep the refresh token so later runs can
skip the password. Uses the stored refresh token when there is one, unless
--force is given.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		controller, err := newController()
		cobra.CheckErr(err)
		defer controller.Close()

		force, _ := cmd.Flags().GetBool("force")
		if force {
			_, err = controller.Auth.Login(cmd.Context())
		} else {
			_, err = controller.Auth.Authenticate(cmd.Context())
		}
		cobra.CheckErr(err)

		session := controller.Auth.Session()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ Logged in, session valid until %s\n", session.ExpiresAt.Local().Format(time.DateTime))
		where := cfg.EnvFile
		if cfg.TokenStore == config.TokenStoreKeyring {
			where = "the system keyring"
		}
		fmt.Fprintf(out, "🔑 Refresh token %s kept in %s\n", config.MaskSecret(session.RefreshToken), where)
	},
}

func init() {
	loginCmd.Flags().Bool("force", false, "log in with username and password even if a refresh token is stored")
}

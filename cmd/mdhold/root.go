package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kerbaras/mdhold/pkg/config"
	"github.com/kerbaras/mdhold/pkg/logger"
	"github.com/kerbaras/mdhold/pkg/services"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cfg is loaded once per invocation, before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mdhold",
	Short: "Bulk-manage your MangaDex reading statuses",
	Long: `Put every manga you are reading on hold, and unfollow it, in one go.

Without a subcommand mdhold logs in (refresh token first, then username and
password), moves every "reading" manga to "on_hold" and unfollows the whole
list. Use "mdhold hold" to pick other statuses or keep your follows.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(setup(cmd))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		opts := services.DefaultOptions()
		opts.Unfollow = true
		cobra.CheckErr(runHold(cmd, opts, !isInteractive()))
	},
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(holdCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusesCmd)
	rootCmd.AddCommand(followsCmd)
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(historyCmd)
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String("env-file", config.DefaultEnvFile, "dotenv file with credentials and the refresh token")
	flags.String("base-url", "", "MangaDex API base URL")
	flags.Int("rate-calls", 0, "requests allowed per rate period (default 5)")
	flags.Duration("rate-period", 0, "rate limit window (default 1s)")
	flags.String("rate-strategy", "", "rate limiter strategy: window or smooth")
	flags.String("token-store", "", "where to keep the refresh token: envfile or keyring")
	flags.String("journal", "", `run journal database path, or "off"`)
	flags.BoolP("verbose", "v", false, "debug logging")
}

// setup loads configuration, lets flags override it and starts logging.
func setup(cmd *cobra.Command) error {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")

	loaded, err := config.Load(envFile)
	if err != nil {
		return err
	}

	if flags.Changed("base-url") {
		loaded.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("rate-calls") {
		loaded.RateCalls, _ = flags.GetInt("rate-calls")
	}
	if flags.Changed("rate-period") {
		loaded.RatePeriod, _ = flags.GetDuration("rate-period")
	}
	if flags.Changed("rate-strategy") {
		loaded.RateStrategy, _ = flags.GetString("rate-strategy")
	}
	if flags.Changed("token-store") {
		loaded.TokenStore, _ = flags.GetString("token-store")
	}
	if flags.Changed("journal") {
		loaded.JournalPath, _ = flags.GetString("journal")
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		loaded.LogLevel = "debug"
	}

	if err := loaded.Validate(); err != nil {
		return err
	}
	if err := logger.Init(loaded.LogLevel); err != nil {
		return err
	}

	cfg = loaded
	logger.Log.Debugw("configuration loaded",
		"env_file", cfg.EnvFile,
		"base_url", cfg.BaseURL,
		"rate", cfg.RateCalls, "period", cfg.RatePeriod, "strategy", cfg.RateStrategy,
		"token_store", cfg.TokenStore,
		"journal", cfg.JournalPath,
		"refresh_token", config.MaskSecret(cfg.RefreshToken))
	return nil
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

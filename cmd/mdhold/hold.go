package cmd

import (
	"fmt"

	"github.com/kerbaras/mdhold/pkg/app"
	"github.com/kerbaras/mdhold/pkg/app/components"
	"github.com/kerbaras/mdhold/pkg/mangadex"
	"github.com/kerbaras/mdhold/pkg/services"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var holdCmd = &cobra.Command{
	Use:   "hold",
	Short: "Move every manga in one status to another",
	Long: `Fetch your reading statuses and move every manga in --from to --to.

With --unfollow each manga is also unfollowed: all of them with
--unfollow-scope all (the default), or only the moved ones with
--unfollow-scope matched. Nothing is rolled back if a call fails.`,
	Example: `  mdhold hold
  mdhold hold --from reading --to dropped --dry-run
  mdhold hold --unfollow --unfollow-scope matched --continue-on-error`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := holdOptions(cmd)
		cobra.CheckErr(err)

		noTUI, _ := cmd.Flags().GetBool("no-tui")
		cobra.CheckErr(runHold(cmd, opts, noTUI || !isInteractive()))
	},
}

func init() {
	addHoldFlags(holdCmd.Flags())
}

func addHoldFlags(flags *pflag.FlagSet) {
	flags.String("from", string(mangadex.StatusReading), "status to move manga out of")
	flags.String("to", string(mangadex.StatusOnHold), `status to move manga into ("none" clears it)`)
	flags.Bool("unfollow", false, "also unfollow manga")
	flags.String("unfollow-scope", string(services.ScopeAll), "which manga to unfollow: all or matched")
	flags.Bool("dry-run", false, "show what would change without changing it")
	flags.Bool("continue-on-error", false, "keep going when a manga fails")
	flags.Bool("no-tui", false, "print plain progress lines instead of the progress bar")
}

func holdOptions(cmd *cobra.Command) (services.Options, error) {
	flags := cmd.Flags()
	opts := services.DefaultOptions()

	from, _ := flags.GetString("from")
	to, _ := flags.GetString("to")
	scope, _ := flags.GetString("unfollow-scope")

	var err error
	if opts.From, err = mangadex.ParseStatus(from); err != nil {
		return opts, fmt.Errorf("--from: %w", err)
	}
	if opts.To, err = mangadex.ParseStatus(to); err != nil {
		return opts, fmt.Errorf("--to: %w", err)
	}
	if opts.UnfollowScope, err = services.ParseUnfollowScope(scope); err != nil {
		return opts, err
	}
	opts.Unfollow, _ = flags.GetBool("unfollow")
	opts.DryRun, _ = flags.GetBool("dry-run")
	opts.ContinueOnError, _ = flags.GetBool("continue-on-error")
	return opts, nil
}

func runHold(cmd *cobra.Command, opts services.Options, plain bool) error {
	ctx := cmd.Context()

	controller, err := newController()
	if err != nil {
		return err
	}
	defer controller.Close()

	// log in before any progress display so prompts stay readable
	if _, err := controller.Auth.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	updater := controller.NewUpdater()

	var res *services.Result
	if plain {
		res, err = runPlain(cmd, updater, opts)
	} else {
		res, err = app.NewApp(updater).Run(ctx, opts)
	}

	if res != nil {
		fmt.Fprintln(cmd.OutOrStdout(), components.Summary(res, string(opts.To)))
	}
	return err
}

func runPlain(cmd *cobra.Command, updater *services.Updater, opts services.Options) (*services.Result, error) {
	out := cmd.OutOrStdout()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for p := range updater.GetProgressChannel() {
			if p.Action == services.ActionSkip {
				continue
			}
			line := fmt.Sprintf("[%d/%d] %s %s -> %s", p.Index, p.Total, p.MangaID, p.Status, p.Action)
			if p.Err != nil {
				line += ": " + p.Err.Error()
			}
			fmt.Fprintln(out, line)
		}
	}()

	res, err := updater.Transition(cmd.Context(), opts)
	updater.Close()
	<-printed
	return res, err
}

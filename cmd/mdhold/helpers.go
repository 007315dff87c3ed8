package cmd

import (
	"os"

	"github.com/kerbaras/mdhold/pkg/auth"
	"github.com/kerbaras/mdhold/pkg/services"
	"github.com/mattn/go-isatty"
)

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

// newController wires the client stack. Credentials are prompted for only
// when a terminal is attached.
func newController() (*services.Controller, error) {
	var prompter auth.Prompter
	if isInteractive() {
		prompter = auth.TerminalPrompter{}
	}
	return services.NewController(cfg, prompter)
}

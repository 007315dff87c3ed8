package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// Prompter asks the user for credentials when none are configured.
type Prompter interface {
	Credentials() (username, password string, err error)
}

// TerminalPrompter prompts on the terminal, masking the password.
type TerminalPrompter struct{}

func (TerminalPrompter) Credentials() (string, string, error) {
	notEmpty := func(v string) error {
		if strings.TrimSpace(v) == "" {
			return errors.New("must not be empty")
		}
		return nil
	}

	userPrompt := promptui.Prompt{
		Label:    "Username",
		Validate: notEmpty,
	}
	username, err := userPrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("username prompt: %w", err)
	}

	passPrompt := promptui.Prompt{
		Label:    "Password",
		Mask:     '*',
		Validate: notEmpty,
	}
	password, err := passPrompt.Run()
	if err != nil {
		return "", "", fmt.Errorf("password prompt: %w", err)
	}

	return strings.TrimSpace(username), password, nil
}

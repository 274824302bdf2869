package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/pkg/sshutil"
)

// authAutomatic is the form's "figure it out" choice: key file from
// ssh_config if one is known, agent if one is running, password otherwise.
const authAutomatic = "automatic"

// promptForTarget runs the interactive connect form when no target was
// given on the command line. It fills f's auth fields as a side effect.
func promptForTarget(cfg *config.Config, f *connectFlags) (string, error) {
	if !stdinIsTerminal() {
		return "", errors.New(errors.ErrConfig,
			"No target given and stdin is not a terminal",
			"Pass a target: vigil watch user@host")
	}

	var target string
	authMethod := authAutomatic
	keyFile := ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Remote host").
				Description("Hostname, user@host[:port], host book name, or SSH config alias").
				Placeholder("admin@203.0.113.7").
				Suggestions(targetSuggestions(cfg)).
				Value(&target).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a target is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Authentication").
				Options(
					huh.NewOption("Automatic (key, agent, or password)", authAutomatic),
					huh.NewOption("SSH agent", config.AuthAgent),
					huh.NewOption("Private key file", config.AuthKey),
					huh.NewOption("Password", config.AuthPassword),
				).
				Value(&authMethod),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Private key file").
				Placeholder("~/.ssh/id_ed25519").
				Value(&keyFile).
				Validate(func(s string) error {
					if authMethod == config.AuthKey && strings.TrimSpace(s) == "" {
						return fmt.Errorf("a key file is required for key authentication")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return authMethod != config.AuthKey }),
	)

	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Connect form cancelled", "")
	}

	switch authMethod {
	case config.AuthKey:
		f.Key = config.ExpandPath(strings.TrimSpace(keyFile))
	case config.AuthPassword:
		f.Password = true
	case config.AuthAgent:
		f.Agent = true
	}

	return strings.TrimSpace(target), nil
}

// targetSuggestions merges host book names with ~/.ssh/config aliases.
func targetSuggestions(cfg *config.Config) []string {
	suggestions := cfg.HostNames()

	seen := make(map[string]bool, len(suggestions))
	for _, name := range suggestions {
		seen[name] = true
	}

	if entries, err := sshutil.ListConfigHosts(); err == nil {
		for _, e := range entries {
			if !seen[e.Alias] {
				suggestions = append(suggestions, e.Alias)
				seen[e.Alias] = true
			}
		}
	}
	return suggestions
}

package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/dashboard"
	"github.com/vigil-dev/vigil/internal/logger"
	"github.com/vigil-dev/vigil/internal/session"
)

// watchCommand resolves the target, then hands the terminal over to the
// dashboard. All prompting happens before the alternate screen goes up;
// the dashboard itself only ever redials with the credential it was given.
func watchCommand(target string, f *connectFlags) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	spec, err := resolveSpec(cfg, target, f)
	if err != nil {
		return err
	}
	if err := ensurePassphrase(spec); err != nil {
		return err
	}

	mgr := session.NewManager()
	defer mgr.Disconnect()

	connect := func() (*session.Session, error) {
		return openSession(mgr, spec)
	}

	model := dashboard.New(spec.Display, connect, dashboard.Options{
		Interval:       spec.Interval,
		CommandTimeout: spec.CommandTimeout,
	})

	// Debug logging writes to stderr, which would bleed through the
	// alternate screen while the dashboard owns the terminal.
	prev := logger.Default()
	logger.SetDefault(logger.Noop())
	defer logger.SetDefault(prev)

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

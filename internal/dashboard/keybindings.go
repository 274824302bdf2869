package dashboard

import tea "github.com/charmbracelet/bubbletea"

// Key bindings as constants for consistency.
const (
	KeyQuit         = "q"
	KeyQuitAlt      = "ctrl+c"
	KeyRefresh      = "r"
	KeySelectPrev   = "up"
	KeySelectPrevK  = "k"
	KeySelectNext   = "down"
	KeySelectNextJ  = "j"
	KeyKill         = "x"
	KeyToggleEvents = "e"
	KeyToggleHelp   = "?"
	KeyClose        = "esc"
)

// HandleKeyMsg processes keyboard input. Returns true when the key was
// handled, along with any follow-up command.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Help toggle takes priority over everything else.
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	// Esc closes whichever panel is open.
	if key == KeyClose {
		switch {
		case m.showHelp:
			m.showHelp = false
		case m.showEvents:
			m.showEvents = false
		}
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyRefresh:
		m.notice = ""
		return true, m.refreshNow()

	case KeyToggleEvents:
		m.showEvents = !m.showEvents
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.processes())-1 {
			m.selected++
		}
		return true, nil

	case KeyKill:
		proc, ok := m.selectedProcess()
		if !ok || m.phase != phaseWatching {
			return true, nil
		}
		return true, m.killCmd(proc.PID, proc.Name)
	}

	return false, nil
}

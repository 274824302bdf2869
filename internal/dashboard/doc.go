// Package dashboard implements the live watch TUI for a single remote host.
//
// The package uses the Bubble Tea framework, which follows The Elm
// Architecture (Model-Update-View pattern):
//
//   - Model: connection phase, latest snapshot, history rings, selection
//   - Update: processes messages (keystrokes, ticks, snapshots, dial results)
//   - View: renders the current state to a string for display
//
// # Message Flow
//
// The dashboard runs a tick-based refresh cycle on one session:
//
//  1. connectCmd dials the target; a bubbles spinner animates meanwhile
//  2. tickMsg fires at the configured interval (default 2s)
//  3. collectCmd runs one collection cycle in a tea.Cmd
//  4. snapshotMsg lands the result; cards and sparklines re-render
//
// A closed session Done channel moves the model back to the connecting
// phase, and redials are paced by a rate limiter so a dead host is not
// hammered. Metric kinds that produced no data render dimmed as
// unavailable instead of as zeros.
//
// # History and Sparklines
//
// The History type keeps ring buffers of CPU percentage, memory
// percentage, and network throughput for sparkline rendering. History is
// a display concern: it lives here, fed from snapshots, never inside the
// collector.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Refresh now
//	j/k, ↑/↓    - Select process
//	x           - Terminate selected process
//	e           - Toggle the event log
//	?           - Toggle help overlay
package dashboard

package dashboard

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"

	"github.com/vigil-dev/vigil/internal/collector"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/metrics"
	"github.com/vigil-dev/vigil/internal/session"
	"github.com/vigil-dev/vigil/internal/ui"
)

// DefaultInterval is the refresh cadence when the config names none.
const DefaultInterval = 2 * time.Second

// reconnectEvery paces redial attempts after a lost session. The first
// attempt runs immediately; later ones wait their turn.
const reconnectEvery = 5 * time.Second

// processRows caps how many processes the table shows at once.
const processRows = 10

// phase is where the dashboard is in its connection lifecycle.
type phase int

const (
	phaseConnecting phase = iota
	phaseWatching
	phaseLost
)

// ConnectFunc opens (or reopens) the session being watched. The dashboard
// calls it once at startup and again after every connection loss.
type ConnectFunc func() (*session.Session, error)

// Options configures a dashboard model.
type Options struct {
	// Interval between collection cycles. Zero means DefaultInterval.
	Interval time.Duration
	// CommandTimeout bounds each remote command. Zero means the session
	// default.
	CommandTimeout time.Duration
}

// Model is the Bubble Tea model for the live watch dashboard. It drives
// one session: connect, poll on a timer, redial on loss.
type Model struct {
	connect ConnectFunc
	sess    *session.Session
	coll    *collector.Collector

	target   string // display name until the session reports its own
	interval time.Duration
	timeout  time.Duration

	phase      phase
	snap       *metrics.Snapshot
	history    *History
	limiter    *rate.Limiter
	lastUpdate time.Time
	connectErr string // why the last dial failed, shown while retrying

	selected   int // process table row
	showEvents bool
	showHelp   bool
	collecting bool
	quitting   bool
	notice     string // outcome of the last kill, shown in the footer

	spin   spinner.Model
	width  int
	height int
}

// tickMsg signals a periodic refresh.
type tickMsg time.Time

// connectedMsg carries the outcome of a dial attempt.
type connectedMsg struct {
	sess *session.Session
	err  error
}

// snapshotMsg carries the outcome of one collection cycle.
type snapshotMsg struct {
	snap  *metrics.Snapshot
	err   error
	taken time.Time
}

// sessionLostMsg signals that the watched session's Done channel closed.
type sessionLostMsg struct{}

// killDoneMsg carries the outcome of a terminate request.
type killDoneMsg struct {
	pid  int
	name string
	err  error
}

// New creates a dashboard model that will dial via connect and poll at the
// configured cadence. target is the name shown while connecting.
func New(target string, connect ConnectFunc, opts Options) Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = session.DefaultCommandTimeout
	}

	sp := spinner.New()
	sp.Spinner = ui.SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return Model{
		connect:  connect,
		target:   target,
		interval: interval,
		timeout:  timeout,
		phase:    phaseConnecting,
		history:  NewHistory(DefaultHistorySize),
		limiter:  rate.NewLimiter(rate.Every(reconnectEvery), 1),
		spin:     sp,
	}
}

// Init starts the spinner, the refresh timer, and the first dial.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.tickCmd(), m.connectCmd())
}

// Update handles messages and advances the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		// The spinner only animates while there is no live session.
		if m.phase != phaseWatching {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}

	case tickMsg:
		if m.phase == phaseWatching && !m.collecting {
			m.collecting = true
			return m, tea.Batch(m.tickCmd(), m.collectCmd())
		}
		return m, m.tickCmd()

	case connectedMsg:
		if m.quitting {
			return m, nil
		}
		if msg.err != nil {
			m.phase = phaseLost
			m.connectErr = msg.err.Error()
			return m, m.connectCmd()
		}
		m.sess = msg.sess
		m.coll = collector.New(msg.sess)
		m.coll.SetCommandTimeout(m.timeout)
		m.phase = phaseWatching
		m.connectErr = ""
		m.collecting = true
		return m, tea.Batch(m.collectCmd(), watchDoneCmd(msg.sess))

	case snapshotMsg:
		m.collecting = false
		if msg.err != nil {
			// Collect only errors when the session is gone; the Done
			// watcher drives the redial.
			return m, nil
		}
		m.snap = msg.snap
		m.lastUpdate = msg.taken
		m.history.Push(msg.snap)
		m.clampSelection()

	case sessionLostMsg:
		if m.quitting || m.phase != phaseWatching {
			return m, nil
		}
		m.phase = phaseLost
		m.collecting = false
		return m, tea.Batch(m.spin.Tick, m.connectCmd())

	case killDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("kill %d failed: %s", msg.pid, errorSummary(msg.err))
			return m, nil
		}
		m.notice = fmt.Sprintf("terminated %d (%s)", msg.pid, msg.name)
		return m, m.refreshNow()
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.phase != phaseWatching {
		return m.renderConnecting()
	}
	return m.renderDashboard()
}

// tickCmd schedules the next periodic refresh.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// connectCmd dials the target. The limiter makes back-to-back redials wait
// out the pacing interval instead of hammering a dead host.
func (m Model) connectCmd() tea.Cmd {
	connect := m.connect
	limiter := m.limiter
	return func() tea.Msg {
		_ = limiter.Wait(context.Background())
		sess, err := connect()
		return connectedMsg{sess: sess, err: err}
	}
}

// collectCmd runs one collection cycle. The budget leaves room for every
// kind to burn its full per-command timeout once.
func (m Model) collectCmd() tea.Cmd {
	coll := m.coll
	budget := m.timeout * time.Duration(len(metrics.AllKinds())+1)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		snap, err := coll.Collect(ctx)
		return snapshotMsg{snap: snap, err: err, taken: time.Now()}
	}
}

// killCmd terminates one remote process and reports the outcome.
func (m Model) killCmd(pid int, name string) tea.Cmd {
	coll := m.coll
	sess := m.sess
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
		defer cancel()

		err := coll.TerminateProcess(ctx, pid)
		if err != nil {
			sess.AddEvent("kill %d (%s) refused: %v", pid, name, err)
		} else {
			sess.AddEvent("terminated process %d (%s)", pid, name)
		}
		return killDoneMsg{pid: pid, name: name, err: err}
	}
}

// watchDoneCmd resolves when the session stops being usable.
func watchDoneCmd(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-sess.Done()
		return sessionLostMsg{}
	}
}

// refreshNow starts a collection cycle immediately when one can run.
func (m *Model) refreshNow() tea.Cmd {
	if m.phase != phaseWatching || m.collecting {
		return nil
	}
	m.collecting = true
	return m.collectCmd()
}

// processes returns the process list from the latest snapshot.
func (m Model) processes() []metrics.ProcessInfo {
	if m.snap == nil {
		return nil
	}
	return m.snap.Processes
}

// selectedProcess returns the process under the cursor.
func (m Model) selectedProcess() (metrics.ProcessInfo, bool) {
	procs := m.processes()
	if m.selected < 0 || m.selected >= len(procs) {
		return metrics.ProcessInfo{}, false
	}
	return procs[m.selected], true
}

// clampSelection keeps the cursor inside the refreshed process list.
func (m *Model) clampSelection() {
	procs := m.processes()
	if len(procs) == 0 {
		m.selected = 0
		return
	}
	if m.selected >= len(procs) {
		m.selected = len(procs) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// SecondsSinceUpdate returns how long ago the last snapshot landed.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(time.Since(m.lastUpdate).Seconds())
}

// TargetName returns the best available name for the watched host.
func (m Model) TargetName() string {
	if m.sess != nil && m.sess.Target() != "" {
		return m.sess.Target()
	}
	return m.target
}

// errorSummary reduces a structured error to its message line for the
// footer, where there is no room for suggestions.
func errorSummary(err error) string {
	var verr *errors.Error
	if stderrors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

package session

import (
	"sync"
	"time"

	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/pkg/sshutil"
	"github.com/vigil-dev/vigil/pkg/winrmutil"
)

// Transport selects how the remote host is reached.
type Transport string

const (
	// TransportSSH is the default transport.
	TransportSSH Transport = "ssh"
	// TransportWinRM reaches Windows hosts that expose WinRM instead of SSH.
	TransportWinRM Transport = "winrm"
)

// ConnectOptions describes one connection attempt.
type ConnectOptions struct {
	Target     sshutil.Target
	Credential sshutil.Credential
	Transport  Transport     // empty means TransportSSH
	Timeout    time.Duration // dial + handshake bound, 0 means the transport default

	// OnWarning receives host identity warnings. Warnings are always
	// recorded in the session event log as well.
	OnWarning func(message string)
}

// DialFunc opens a transport. Swapped out in tests.
type DialFunc func(opts ConnectOptions) (sshutil.Runner, error)

func defaultDial(opts ConnectOptions) (sshutil.Runner, error) {
	switch opts.Transport {
	case "", TransportSSH:
		return sshutil.Dial(sshutil.Options{
			Address:    opts.Target.Host,
			Port:       opts.Target.Port,
			User:       opts.Target.User,
			Credential: opts.Credential,
			Timeout:    opts.Timeout,
			OnWarning:  opts.OnWarning,
		})
	case TransportWinRM:
		password, ok := opts.Credential.(sshutil.Password)
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				"WinRM supports password authentication only",
				"Provide a password or switch to the ssh transport")
		}
		return winrmutil.Dial(winrmutil.Options{
			Address:  opts.Target.Host,
			Port:     opts.Target.Port,
			User:     opts.Target.User,
			Password: password.Secret,
			Timeout:  opts.Timeout,
		})
	default:
		return nil, errors.Newf(errors.ErrConfig,
			"Unknown transport '%s'", opts.Transport)
	}
}

// Manager holds at most one live session. Connecting while a session exists
// tears the old one down first, so a host is never watched twice.
type Manager struct {
	mu      sync.Mutex
	current *Session
	dial    DialFunc
}

// NewManager creates a manager that dials real SSH or WinRM transports.
func NewManager() *Manager {
	return &Manager{dial: defaultDial}
}

// NewManagerWithDialer creates a manager with a custom transport factory.
func NewManagerWithDialer(dial DialFunc) *Manager {
	return &Manager{dial: dial}
}

// Connect establishes a new session, replacing any existing one. On failure
// the failed session remains available through Current for inspection.
func (m *Manager) Connect(opts ConnectOptions) (*Session, error) {
	m.mu.Lock()
	prev := m.current
	m.mu.Unlock()
	if prev != nil {
		_ = prev.Disconnect()
	}

	credKind := "none"
	if opts.Credential != nil {
		credKind = opts.Credential.Name()
	}

	s := newSession(opts.Target.Host, credKind)
	s.events.addf("connecting to %s (%s, %s auth)", describeTarget(opts.Target), transportName(opts.Transport), credKind)

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	// Host identity warnings go to the event log and then to the caller.
	userWarn := opts.OnWarning
	opts.OnWarning = func(msg string) {
		s.events.add(msg)
		if userWarn != nil {
			userWarn(msg)
		}
	}

	runner, err := m.dial(opts)
	if err != nil {
		s.failDial(err)
		return nil, err
	}

	s.attach(runner)
	return s, nil
}

// Current returns the most recent session, connected or not. Nil before the
// first Connect.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Disconnect closes the current session, if any.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Disconnect()
}

func describeTarget(t sshutil.Target) string {
	name := t.Host
	if t.Alias != "" && t.Alias != t.Host {
		name = t.Alias + " -> " + t.Host
	}
	if t.User != "" {
		name = t.User + "@" + name
	}
	return name
}

func transportName(t Transport) string {
	if t == "" {
		return string(TransportSSH)
	}
	return string(t)
}

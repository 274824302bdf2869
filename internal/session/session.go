// Package session owns the lifecycle of one remote connection: the state
// machine around it, serialized command execution on it, and the bounded
// event log describing what happened to it. A Manager holds at most one
// live session; connecting again tears the previous one down.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/vigil-dev/vigil/internal/dialect"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/logger"
	"github.com/vigil-dev/vigil/pkg/sshutil"
)

// State represents where a session is in its lifecycle.
type State string

const (
	// StateDisconnected means no connection is open. The zero session
	// starts here and Disconnect returns here.
	StateDisconnected State = "disconnected"
	// StateAuthenticating means a dial and handshake are in progress.
	StateAuthenticating State = "authenticating"
	// StateConnected means commands can run.
	StateConnected State = "connected"
	// StateFailed means the connection was lost or never came up. A failed
	// session stays inspectable but runs nothing.
	StateFailed State = "failed"
)

// DefaultCommandTimeout bounds a single remote command when the caller
// passes no timeout.
const DefaultCommandTimeout = 10 * time.Second

// ExecutionResult describes one completed remote command.
type ExecutionResult struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

// Session is one connection to one remote host. Command execution is
// serialized: concurrent Run calls queue rather than interleave on the
// underlying channel.
type Session struct {
	runner   sshutil.Runner
	target   string
	credKind string

	execMu sync.Mutex // serializes command execution

	mu           sync.Mutex // guards state and timestamps
	state        State
	connectedAt  time.Time
	lastActivity time.Time

	dialectMu sync.Mutex
	dialect   dialect.Dialect
	probed    bool

	events   *eventLog
	done     chan struct{}
	shutdown sync.Once
}

func newSession(target string, credKind string) *Session {
	return &Session{
		target:   target,
		credKind: credKind,
		state:    StateAuthenticating,
		events:   &eventLog{},
		done:     make(chan struct{}),
	}
}

// attach completes the handshake phase with a live transport.
func (s *Session) attach(runner sshutil.Runner) {
	now := time.Now()
	s.mu.Lock()
	s.runner = runner
	s.state = StateConnected
	s.connectedAt = now
	s.lastActivity = now
	s.mu.Unlock()

	logger.Default().Debug("session %s: connected to %s", s.target, runner.Addr())
	if fp := runner.Fingerprint(); fp != "" {
		s.events.addf("connected to %s (%s)", runner.Addr(), fp)
	} else {
		s.events.addf("connected to %s", runner.Addr())
	}
}

// failDial marks a session whose connection never came up.
func (s *Session) failDial(err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.mu.Unlock()

	s.events.addf("connection failed: %v", err)
	s.close()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns the host identifier this session was opened against.
func (s *Session) Target() string {
	return s.target
}

// CredentialKind names the credential used ("password", "private-key",
// "agent"). Secret material is never retained here.
func (s *Session) CredentialKind() string {
	return s.credKind
}

// Fingerprint returns the remote host key fingerprint, or "" before the
// handshake completed.
func (s *Session) Fingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return ""
	}
	return s.runner.Fingerprint()
}

// Addr returns the resolved remote address, or "" before the handshake
// completed.
func (s *Session) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return ""
	}
	return s.runner.Addr()
}

// ConnectedAt returns when the session reached StateConnected.
func (s *Session) ConnectedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedAt
}

// LastActivity returns when a command last completed on this session.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Done returns a channel closed when the session stops being usable,
// whether by Disconnect or by a transport failure. Pollers select on it.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Events returns a copy of the session's activity log, oldest first.
func (s *Session) Events() []Event {
	return s.events.snapshot()
}

// AddEvent records a caller-supplied entry in the activity log.
func (s *Session) AddEvent(format string, args ...any) {
	s.events.addf(format, args...)
}

// Run executes one command on the remote host, waiting at most timeout
// (DefaultCommandTimeout if zero). A non-zero exit status is not an error;
// it comes back in the result. The error is non-nil when the command never
// ran or never finished: session not connected, deadline expired, or the
// channel died mid-command. A dead channel also moves the session to
// StateFailed.
func (s *Session) Run(ctx context.Context, command string, timeout time.Duration) (ExecutionResult, error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	if s.State() != StateConnected {
		return ExecutionResult{Command: command}, errors.New(errors.ErrNotConnected,
			"Session is not connected",
			"Connect to a host first")
	}

	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := s.runner.Exec(runCtx, command)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()

	result := ExecutionResult{
		Command:  command,
		ExitCode: exitCode,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		Elapsed:  elapsed,
	}

	if err != nil && errors.IsCode(err, errors.ErrConnection) {
		s.fail(err)
	}
	return result, err
}

// Dialect returns the remote host's command dialect, probing it on first
// use and caching the answer for the life of the connection.
func (s *Session) Dialect(ctx context.Context) (dialect.Dialect, error) {
	s.dialectMu.Lock()
	defer s.dialectMu.Unlock()

	if s.probed {
		return s.dialect, nil
	}

	if s.State() != StateConnected {
		return dialect.Unknown, errors.New(errors.ErrNotConnected,
			"Session is not connected",
			"Connect to a host first")
	}

	s.execMu.Lock()
	d, err := dialect.Detect(ctx, s.runner)
	s.execMu.Unlock()
	if err != nil {
		// A probe failing at the transport level means the connection is
		// gone; tear down like Run does so Done fires and pollers redial.
		if errors.IsCode(err, errors.ErrConnection) {
			s.fail(err)
		}
		return dialect.Unknown, err
	}

	s.dialect = d
	s.probed = true
	s.events.addf("dialect detected: %s", d)
	return d, nil
}

// Disconnect closes the session. Idempotent and safe in any state; an
// in-flight Run resolves with a connection error.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	already := s.state == StateDisconnected
	s.state = StateDisconnected
	s.mu.Unlock()

	if !already {
		s.events.add("disconnected")
	}
	s.close()
	return nil
}

// fail moves an active session to StateFailed after a transport error.
// Sessions already torn down by Disconnect stay as they are.
func (s *Session) fail(err error) {
	s.mu.Lock()
	wasActive := s.state == StateConnected || s.state == StateAuthenticating
	if wasActive {
		s.state = StateFailed
	}
	s.mu.Unlock()

	if wasActive {
		logger.Default().Debug("session %s: connection lost: %v", s.target, err)
		s.events.addf("connection lost: %v", err)
		s.close()
	}
}

// close releases the transport and signals Done exactly once.
func (s *Session) close() {
	s.shutdown.Do(func() {
		close(s.done)
		s.mu.Lock()
		runner := s.runner
		s.mu.Unlock()
		if runner != nil {
			_ = runner.Close()
		}
	})
}

// Package testing provides a scriptable in-memory Runner so transport
// consumers can be tested without a live host.
package testing

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/vigil-dev/vigil/internal/errors"
)

// CommandResponse defines a canned response for a command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
	// Delay simulates execution time. Exec honors context deadlines and
	// Close during the delay, which is how timeout and disconnect
	// behavior get exercised in tests.
	Delay time.Duration
}

// MockRunner simulates a remote command channel. Commands are matched
// against registered patterns (exact string first, then regex in
// registration order); unmatched commands fail like a missing binary.
type MockRunner struct {
	mu          sync.Mutex
	target      string
	address     string
	fingerprint string
	closed      bool
	closedCh    chan struct{}
	patterns    []string
	commands    map[string]CommandResponse
	calls       []string
}

// NewMockRunner creates a mock transport for the given target name.
func NewMockRunner(target string) *MockRunner {
	return &MockRunner{
		target:      target,
		address:     target + ":22",
		fingerprint: "SHA256:mockmockmockmockmockmockmockmockmockmockmoc",
		closedCh:    make(chan struct{}),
		commands:    make(map[string]CommandResponse),
	}
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex.
func (m *MockRunner) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commands[pattern]; !exists {
		m.patterns = append(m.patterns, pattern)
	}
	m.commands[pattern] = resp
}

// Exec matches cmd against the registered responses.
func (m *MockRunner) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New(errors.ErrConnection, "connection closed", "")
	}
	m.calls = append(m.calls, cmd)
	resp, found := m.lookupLocked(cmd)
	m.mu.Unlock()

	if !found {
		resp = CommandResponse{
			Stderr:   []byte(fmt.Sprintf("sh: %s: command not found\n", firstWord(cmd))),
			ExitCode: 127,
		}
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
					fmt.Sprintf("Command timed out: %s", cmd), "")
			}
			return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
				fmt.Sprintf("Command abandoned: %s", cmd), "")
		case <-m.closedCh:
			return nil, nil, -1, errors.New(errors.ErrConnection,
				fmt.Sprintf("Channel failed mid-command: %s", cmd), "")
		}
	}

	if resp.Err != nil {
		return nil, nil, -1, resp.Err
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, nil
}

// lookupLocked finds the response for cmd. Exact matches win; otherwise
// patterns are tried as regexes in registration order.
func (m *MockRunner) lookupLocked(cmd string) (CommandResponse, bool) {
	if resp, ok := m.commands[cmd]; ok {
		return resp, true
	}
	for _, pattern := range m.patterns {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return m.commands[pattern], true
		}
	}
	return CommandResponse{}, false
}

// Close marks the transport closed and unblocks any in-flight Exec.
// Safe to call more than once.
func (m *MockRunner) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closedCh)
	}
	return nil
}

// Target returns the target name given to NewMockRunner.
func (m *MockRunner) Target() string { return m.target }

// Addr returns the simulated host:port address.
func (m *MockRunner) Addr() string { return m.address }

// Fingerprint returns the simulated host key fingerprint.
func (m *MockRunner) Fingerprint() string { return m.fingerprint }

// SetFingerprint overrides the simulated host key fingerprint.
func (m *MockRunner) SetFingerprint(fp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerprint = fp
}

// Calls returns every command executed so far, in order.
func (m *MockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many executed commands matched the pattern
// (regex, or exact substring of the command).
func (m *MockRunner) CallCount(pattern string) int {
	re, err := regexp.Compile(pattern)
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if err == nil && re.MatchString(c) {
			count++
		}
	}
	return count
}

// ResetCalls clears the recorded call log, keeping registered responses.
func (m *MockRunner) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func firstWord(cmd string) string {
	for i := 0; i < len(cmd); i++ {
		if cmd[i] == ' ' {
			return cmd[:i]
		}
	}
	return cmd
}

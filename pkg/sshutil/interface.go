package sshutil

import "context"

// Runner is the command-execution surface a transport must provide.
// The real SSH Client, the WinRM client, and the test mock all satisfy it.
//
// This interface is what lets metric collection be tested without a live
// host: the mock replays canned command output.
type Runner interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	// The context bounds execution time.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Close tears down the transport. Safe to call more than once.
	Close() error

	// Target returns what the caller asked to connect to.
	Target() string

	// Addr returns the resolved address (host:port).
	Addr() string

	// Fingerprint returns the transport's host identity fingerprint, or
	// "" when the transport has no such concept.
	Fingerprint() string
}

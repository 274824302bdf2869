package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"github.com/vigil-dev/vigil/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
// A non-zero exit code with nil error means the command ran but failed.
//
// The context bounds the whole execution: when it expires the remote
// process is signalled and the channel torn down, and the error carries
// the TIMEOUT code (deadline) or EXEC code (cancellation).
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnection,
			"Failed to open an SSH channel",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf

	if err := session.Start(cmd); err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		// Best effort: ask the remote process to die, then sever the
		// channel so Wait unblocks. Output is discarded because the
		// session may still be writing into the buffers.
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
				fmt.Sprintf("Command timed out: %s", cmd),
				"Raise the command timeout if the host is just slow")
		}
		return nil, nil, -1, errors.WrapWithCode(ctx.Err(), errors.ErrExec,
			fmt.Sprintf("Command abandoned: %s", cmd), "")
	}

	exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			exitCode = exitErr.ExitStatus()
			err = nil // Command ran, just had non-zero exit
		} else if _, ok := err.(*ssh.ExitMissingError); ok {
			// Remote died without reporting status (killed, channel lost).
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnection,
				fmt.Sprintf("Command ended without an exit status: %s", cmd),
				"The connection was probably interrupted")
		} else {
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnection,
				fmt.Sprintf("Channel failed mid-command: %s", cmd),
				"Try reconnecting.")
		}
	}

	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}

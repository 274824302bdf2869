package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/internal/errors"
)

func TestMockRunner_ExactMatch(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse("uname -s", CommandResponse{Stdout: []byte("Linux\n")})

	stdout, stderr, code, err := m.Exec(context.Background(), "uname -s")
	require.NoError(t, err)
	assert.Equal(t, "Linux\n", string(stdout))
	assert.Empty(t, stderr)
	assert.Equal(t, 0, code)
}

func TestMockRunner_PatternMatch(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse(`^ps aux`, CommandResponse{Stdout: []byte("USER PID\n")})

	stdout, _, code, err := m.Exec(context.Background(), "ps aux --sort=-%cpu")
	require.NoError(t, err)
	assert.Equal(t, "USER PID\n", string(stdout))
	assert.Equal(t, 0, code)
}

func TestMockRunner_ExactWinsOverPattern(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse(`uname`, CommandResponse{Stdout: []byte("pattern\n")})
	m.SetCommandResponse("uname -s", CommandResponse{Stdout: []byte("exact\n")})

	stdout, _, _, err := m.Exec(context.Background(), "uname -s")
	require.NoError(t, err)
	assert.Equal(t, "exact\n", string(stdout))
}

func TestMockRunner_PatternOrderIsRegistrationOrder(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse(`^cat /proc/`, CommandResponse{Stdout: []byte("first\n")})
	m.SetCommandResponse(`^cat`, CommandResponse{Stdout: []byte("second\n")})

	stdout, _, _, err := m.Exec(context.Background(), "cat /proc/stat")
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(stdout))
}

func TestMockRunner_UnknownCommandFailsLikeMissingBinary(t *testing.T) {
	m := NewMockRunner("testhost")

	stdout, stderr, code, err := m.Exec(context.Background(), "sar 1 1")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, string(stderr), "command not found")
	assert.Equal(t, 127, code)
}

func TestMockRunner_NonZeroExit(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse("free -b", CommandResponse{
		Stderr:   []byte("free: invalid option\n"),
		ExitCode: 1,
	})

	_, stderr, code, err := m.Exec(context.Background(), "free -b")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, string(stderr), "invalid option")
}

func TestMockRunner_RecordsCalls(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse("uname -s", CommandResponse{Stdout: []byte("Linux\n")})

	_, _, _, _ = m.Exec(context.Background(), "uname -s")
	_, _, _, _ = m.Exec(context.Background(), "hostname")

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "uname -s", calls[0])
	assert.Equal(t, "hostname", calls[1])

	assert.Equal(t, 1, m.CallCount(`^uname`))
	assert.Equal(t, 0, m.CallCount(`^ps`))

	m.ResetCalls()
	assert.Empty(t, m.Calls())
}

func TestMockRunner_ClosedReturnsConnectionError(t *testing.T) {
	m := NewMockRunner("testhost")
	require.NoError(t, m.Close())

	_, _, code, err := m.Exec(context.Background(), "uname -s")
	assert.Equal(t, -1, code)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnection))

	// Closed commands are not recorded
	assert.Empty(t, m.Calls())
}

func TestMockRunner_CloseIsIdempotent(t *testing.T) {
	m := NewMockRunner("testhost")
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestMockRunner_DelayHonorsDeadline(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse("sleep 60", CommandResponse{Delay: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, code, err := m.Exec(ctx, "sleep 60")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, -1, code)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
}

func TestMockRunner_DelayHonorsClose(t *testing.T) {
	m := NewMockRunner("testhost")
	m.SetCommandResponse("sleep 60", CommandResponse{Delay: 5 * time.Second})

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = m.Close()
	}()

	start := time.Now()
	_, _, _, err := m.Exec(context.Background(), "sleep 60")
	assert.Less(t, time.Since(start), time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnection))
}

func TestMockRunner_Metadata(t *testing.T) {
	m := NewMockRunner("web-01")
	assert.Equal(t, "web-01", m.Target())
	assert.Equal(t, "web-01:22", m.Addr())
	assert.Contains(t, m.Fingerprint(), "SHA256:")

	m.SetFingerprint("SHA256:custom")
	assert.Equal(t, "SHA256:custom", m.Fingerprint())
}

func TestWithResponses(t *testing.T) {
	m := NewMockRunner("testhost")
	WithResponses(m, map[string]CommandResponse{
		"uname -s": {Stdout: []byte("Darwin\n")},
		"hostname": {Stdout: []byte("mac-mini\n")},
	})

	stdout, _, _, err := m.Exec(context.Background(), "uname -s")
	require.NoError(t, err)
	assert.Equal(t, "Darwin\n", string(stdout))

	stdout, _, _, err = m.Exec(context.Background(), "hostname")
	require.NoError(t, err)
	assert.Equal(t, "mac-mini\n", string(stdout))
}

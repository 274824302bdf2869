// Package collector reads metrics from a connected session by running
// dialect-appropriate commands and parsing their output. Each metric kind
// has an ordered chain of candidate commands; the first one that runs and
// parses wins, so a missing binary on the remote host degrades to the
// next candidate instead of failing the cycle.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/metrics"
	"github.com/vigil-dev/vigil/internal/session"
)

// Collector turns one session into metric snapshots. It carries the
// previous CPU and network counter samples so percentages and rates can
// be computed by differencing; bind a fresh Collector to each new
// session so stale counters never cross a reconnect.
type Collector struct {
	sess    *session.Session
	timeout time.Duration

	deltas deltaState
}

// New creates a Collector bound to the given session.
func New(sess *session.Session) *Collector {
	return &Collector{
		sess:    sess,
		timeout: session.DefaultCommandTimeout,
	}
}

// SetCommandTimeout bounds each candidate command. Zero restores the
// default.
func (c *Collector) SetCommandTimeout(d time.Duration) {
	if d <= 0 {
		d = session.DefaultCommandTimeout
	}
	c.timeout = d
}

// Collect gathers the requested metric kinds (all of them when none are
// named) into one snapshot. The only error is a not-connected session at
// entry; everything after that degrades per kind: a kind that could not
// be read appears in Snapshot.Errors and the rest of the snapshot stands.
// If the session dies mid-cycle the remaining kinds are marked and the
// partial snapshot is still returned.
func (c *Collector) Collect(ctx context.Context, kinds ...metrics.Kind) (*metrics.Snapshot, error) {
	if len(kinds) == 0 {
		kinds = metrics.AllKinds()
	}

	if c.sess.State() != session.StateConnected {
		return nil, errors.New(errors.ErrNotConnected,
			"Session is not connected",
			"Connect to a host before collecting metrics")
	}

	snap := &metrics.Snapshot{
		Target:  c.sess.Target(),
		Taken:   time.Now(),
		Sources: make(map[metrics.Kind]string),
		Errors:  make(map[metrics.Kind]string),
	}

	d, err := c.sess.Dialect(ctx)
	if err != nil {
		// The probe itself could not run, so nothing else will either.
		for _, kind := range kinds {
			snap.Errors[kind] = errText(err)
		}
		return snap, nil
	}

	var fatal error
	for _, kind := range kinds {
		if fatal == nil {
			select {
			case <-c.sess.Done():
				fatal = errors.New(errors.ErrConnection, "Session closed during collection", "")
			default:
			}
		}
		if fatal != nil {
			snap.Errors[kind] = errText(fatal)
			continue
		}

		value, source, err := c.tryKind(ctx, d, kind)
		if err != nil {
			snap.Errors[kind] = errText(err)
			if cycleFatal(err) {
				fatal = err
			}
			continue
		}

		snap.Sources[kind] = source
		c.assign(snap, kind, value)
	}

	return snap, nil
}

// assign folds one parsed value into the snapshot, applying delta state
// where the kind needs it.
func (c *Collector) assign(snap *metrics.Snapshot, kind metrics.Kind, value any) {
	switch v := value.(type) {
	case *metrics.CPUStats:
		snap.CPU = c.finishCPU(v)
	case *metrics.MemoryMetrics:
		snap.Memory = v
	case []metrics.DiskUsage:
		snap.Disks = v
	case []metrics.NetworkInterface:
		snap.Network = c.finishNetwork(v, snap.Taken)
	case []metrics.ProcessInfo:
		snap.Processes = v
	case *metrics.SystemInfo:
		snap.System = v
	}
}

// TerminateProcess sends the dialect's termination command to the given
// pid. A refusal from the remote host (permission, unknown pid) comes back
// as an EXEC-coded error with the remote stderr attached.
func (c *Collector) TerminateProcess(ctx context.Context, pid int) error {
	d, err := c.sess.Dialect(ctx)
	if err != nil {
		return err
	}

	res, err := c.sess.Run(ctx, KillCommand(d, pid), c.timeout)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		return errors.New(errors.ErrExec,
			fmt.Sprintf("Could not terminate process %d", pid),
			msg)
	}
	return nil
}

package collector

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/vigil-dev/vigil/internal/dialect"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/logger"
	"github.com/vigil-dev/vigil/internal/metrics"
)

// tryKind walks one metric's candidate chain in table order. A candidate
// is skipped when its command exits non-zero, times out, or its output
// fails to parse; the first candidate that parses wins and its name is
// returned. The error is coded UNSUPPORTED when the dialect has no
// candidates, UNAVAILABLE when every candidate was tried and failed, or
// passes through the transport error when the session died mid-chain.
func (c *Collector) tryKind(ctx context.Context, d dialect.Dialect, kind metrics.Kind) (any, string, error) {
	cands := Candidates(d, kind)
	if len(cands) == 0 {
		return nil, "", errors.Newf(errors.ErrUnsupported,
			"%s metrics are not supported on %s hosts", kind, d)
	}

	var attempts []string
	for _, cand := range cands {
		res, err := c.sess.Run(ctx, cand.Command, c.timeout)
		if err != nil {
			if errors.IsCode(err, errors.ErrTimeout) && ctx.Err() == nil {
				// The candidate's own deadline expired; the cycle lives on.
				attempts = append(attempts, cand.Name+": timed out")
				continue
			}
			return nil, "", err
		}

		if res.ExitCode != 0 {
			logger.Default().Debug("%s: candidate %s exited %d, falling through",
				kind, cand.Name, res.ExitCode)
			attempts = append(attempts, fmt.Sprintf("%s: exit status %d%s",
				cand.Name, res.ExitCode, stderrNote(res.Stderr)))
			continue
		}

		value, perr := cand.Parse(res.Stdout)
		if perr != nil {
			logger.Default().Debug("%s: candidate %s output did not parse: %v",
				kind, cand.Name, perr)
			attempts = append(attempts, fmt.Sprintf("%s: %v", cand.Name, perr))
			continue
		}
		return value, cand.Name, nil
	}

	logger.Default().Debug("%s: no candidate succeeded on %s", kind, d)
	return nil, "", errors.Newf(errors.ErrUnavailable,
		"%s unavailable: %s", kind, strings.Join(attempts, "; "))
}

// cycleFatal reports whether an error from tryKind means the session is
// gone and the remaining kinds in this cycle should not be attempted.
func cycleFatal(err error) bool {
	switch errors.Code(err) {
	case errors.ErrExec, errors.ErrConnection, errors.ErrNotConnected:
		return true
	}
	return stderrors.Is(err, context.Canceled)
}

// errText reduces an error to its one-line message for the snapshot's
// per-kind error map.
func errText(err error) string {
	var verr *errors.Error
	if stderrors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

func stderrNote(stderr string) string {
	line := strings.TrimSpace(stderr)
	if idx := strings.IndexByte(line, '\n'); idx != -1 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return ""
	}
	if len(line) > 80 {
		line = line[:80] + "..."
	}
	return " (" + line + ")"
}

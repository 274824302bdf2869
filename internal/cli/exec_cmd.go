package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/ui"
)

// execCommand runs one command on the remote host and mirrors its output
// and exit code.
func execCommand(target string, command []string, f *connectFlags) error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	spec, err := resolveSpec(cfg, target, f)
	if err != nil {
		return err
	}
	spec.OnWarning = ui.PrintWarning

	sess, _, err := dialForCommand(spec)
	if err != nil {
		return err
	}
	defer sess.Disconnect()

	ctx := context.Background()
	result, err := sess.Run(ctx, strings.Join(command, " "), spec.CommandTimeout)
	if err != nil {
		return err
	}

	fmt.Print(result.Stdout)
	fmt.Fprint(os.Stderr, result.Stderr)

	if result.ExitCode != 0 {
		return errors.NewExitError(result.ExitCode)
	}
	return nil
}

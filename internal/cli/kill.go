package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/ui"
)

// killCommand terminates one process on the remote host.
func killCommand(target, pidArg string, f *connectFlags) error {
	pid, err := strconv.Atoi(pidArg)
	if err != nil || pid <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' is not a valid pid", pidArg),
			"Give a positive process id, e.g.: vigil kill gpu-box 4223")
	}

	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	spec, err := resolveSpec(cfg, target, f)
	if err != nil {
		return err
	}
	spec.OnWarning = ui.PrintWarning

	sess, coll, err := dialForCommand(spec)
	if err != nil {
		return err
	}
	defer sess.Disconnect()

	if err := coll.TerminateProcess(context.Background(), pid); err != nil {
		return err
	}

	fmt.Printf("%s terminated process %d on %s\n",
		ui.SuccessStyle().Render(ui.SymbolSuccess), pid, spec.Display)
	return nil
}

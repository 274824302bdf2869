package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/ui"
)

// Global flags available to all subcommands.
var (
	configFlag  string
	verboseFlag bool
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Watch a remote machine's resources over SSH",
	Long: `vigil connects to one remote machine over SSH (or WinRM) and watches
its resources: CPU, memory, disk, network, and processes.

It figures out what kind of system is on the other end and picks the
diagnostic commands that work there, falling back to alternatives when a
preferred command is missing. Metrics a host can't report show up as
unavailable instead of failing the whole view.

Examples:
  vigil watch gpu-box
  vigil watch admin@203.0.113.7:2222
  vigil snapshot gpu-box --json
  vigil exec gpu-box -- uptime`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			ui.DisableColors()
		}
		if verboseFlag {
			// The env-gated logger reads this on every Debug call, so
			// setting it here turns on debug output everywhere at once.
			os.Setenv("VIGIL_DEBUG", "1")
		}
	},
}

// Execute runs the root command. Remote exit codes pass through untouched;
// everything else prints and exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := errors.GetExitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

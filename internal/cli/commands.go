package cli

import (
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	watchFlags    connectFlags
	snapshotFlags connectFlags
	execFlags     connectFlags
	killFlags     connectFlags

	snapshotJSON  bool
	snapshotKinds []string
)

// watchCmd starts the live dashboard for one host.
var watchCmd = &cobra.Command{
	Use:   "watch [target]",
	Short: "Live metrics dashboard for a remote host",
	Long: `Connect to a remote host and watch its resources live.

The dashboard shows CPU, memory, disk, network, and process metrics,
refreshing on a timer. Lost connections are redialed automatically.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Refresh now
  up/k        Select previous process
  down/j      Select next process
  x           Terminate selected process
  e           Toggle the session event log
  ?           Show help

Examples:
  vigil watch gpu-box
  vigil watch admin@203.0.113.7
  vigil watch win-host --transport winrm
  vigil watch gpu-box --interval 5s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		return watchCommand(target, &watchFlags)
	},
}

// snapshotCmd collects one round of metrics and prints it.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot [target]",
	Short: "Collect one round of metrics and print it",
	Long: `Connect, collect each requested metric once, print, and disconnect.

By default every metric kind is collected and printed as text. Use
--json for machine-readable output and --kinds to restrict collection
to what you need.

Examples:
  vigil snapshot gpu-box
  vigil snapshot gpu-box --json
  vigil snapshot gpu-box --kinds cpu,memory`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) > 0 {
			target = args[0]
		}
		return snapshotCommand(target, &snapshotFlags, snapshotJSON, snapshotKinds)
	},
}

// execCmd runs a one-off command on the remote host.
var execCmd = &cobra.Command{
	Use:   "exec <target> -- <command...>",
	Short: "Run a command on the remote host",
	Long: `Execute a command on the remote host and stream its output.

The remote exit code becomes vigil's exit code.

Examples:
  vigil exec gpu-box -- uptime
  vigil exec gpu-box -- df -h /
  vigil exec admin@203.0.113.7 -- "ps aux | head"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return execCommand(args[0], args[1:], &execFlags)
	},
}

// killCmd terminates one process on the remote host.
var killCmd = &cobra.Command{
	Use:   "kill <target> <pid>",
	Short: "Terminate a process on the remote host",
	Long: `Send the remote system's termination command to the given pid.

Examples:
  vigil kill gpu-box 4223`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return killCommand(args[0], args[1], &killFlags)
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for vigil.

Examples:
  # Bash
  vigil completion bash > /etc/bash_completion.d/vigil

  # Zsh
  vigil completion zsh > "${fpath[1]}/_vigil"

  # Fish
  vigil completion fish > ~/.config/fish/completions/vigil.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		default:
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		}
	},
}

func init() {
	addConnectFlags(watchCmd, &watchFlags)
	watchCmd.Flags().StringVar(&watchFlags.Interval, "interval", "", "refresh interval (e.g., 2s, 5s)")

	addConnectFlags(snapshotCmd, &snapshotFlags)
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "print the snapshot as JSON")
	snapshotCmd.Flags().StringSliceVar(&snapshotKinds, "kinds", nil,
		"metric kinds to collect (cpu, memory, disk, network, processes, system)")

	addConnectFlags(execCmd, &execFlags)
	addConnectFlags(killCmd, &killFlags)

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(completionCmd)
}

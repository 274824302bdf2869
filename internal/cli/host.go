package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/ui"
)

// host add flags
var (
	hostAddAddress   string
	hostAddPort      int
	hostAddUser      string
	hostAddAuth      string
	hostAddKeyFile   string
	hostAddTransport string
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Manage the host book",
	Long: `Manage named host entries in the config file.

A host book entry bundles the address, port, user, auth method, and
transport under one name, so "vigil watch gpu-box" is all you need.

Examples:
  vigil host add gpu-box --address 203.0.113.7 --user admin --auth key --key-file ~/.ssh/id_ed25519
  vigil host list
  vigil host remove gpu-box`,
}

var hostAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a host entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostAddCommand(args[0])
	},
}

var hostListCmd = &cobra.Command{
	Use:   "list",
	Short: "List host entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostListCommand()
	},
}

var hostRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a host entry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRemoveCommand(args[0])
	},
}

// hostBookPath is where host edits land: the config file in use, or the
// global one when none exists yet.
func hostBookPath() (string, error) {
	path, err := config.Find(configFlag)
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}
	return config.GlobalPath()
}

func hostAddCommand(name string) error {
	if hostAddAddress == "" {
		return errors.New(errors.ErrConfig,
			"--address is required",
			"Example: vigil host add gpu-box --address 203.0.113.7")
	}

	path, err := hostBookPath()
	if err != nil {
		return err
	}

	h := config.Host{
		Name:      name,
		Address:   hostAddAddress,
		Port:      hostAddPort,
		User:      hostAddUser,
		Auth:      hostAddAuth,
		KeyFile:   hostAddKeyFile,
		Transport: hostAddTransport,
	}

	if err := config.UpsertHost(path, h); err != nil {
		return err
	}

	fmt.Printf("%s added '%s' (%s) to %s\n",
		ui.SuccessStyle().Render(ui.SymbolSuccess), name, h.String(), path)
	return nil
}

func hostListCommand() error {
	cfg, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return err
	}

	if len(cfg.Hosts) == 0 {
		fmt.Println("No hosts configured. Add one with 'vigil host add'.")
		return nil
	}

	for _, h := range cfg.Hosts {
		fmt.Println(config.Describe(h))
	}
	return nil
}

func hostRemoveCommand(name string) error {
	path, err := hostBookPath()
	if err != nil {
		return err
	}

	removed, err := config.RemoveHost(path, name)
	if err != nil {
		return err
	}
	if !removed {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("No host named '%s'", name),
			"See what exists with 'vigil host list'")
	}

	fmt.Printf("%s removed '%s'\n", ui.SuccessStyle().Render(ui.SymbolSuccess), name)
	return nil
}

func init() {
	hostAddCmd.Flags().StringVar(&hostAddAddress, "address", "", "hostname or IP to dial")
	hostAddCmd.Flags().IntVar(&hostAddPort, "port", 0, "remote port (0 for the transport default)")
	hostAddCmd.Flags().StringVar(&hostAddUser, "user", "", "remote username")
	hostAddCmd.Flags().StringVar(&hostAddAuth, "auth", "", "auth method: password, key, or agent")
	hostAddCmd.Flags().StringVar(&hostAddKeyFile, "key-file", "", "private key path for auth: key")
	hostAddCmd.Flags().StringVar(&hostAddTransport, "transport", "", "transport: ssh or winrm")

	hostCmd.AddCommand(hostAddCmd)
	hostCmd.AddCommand(hostListCmd)
	hostCmd.AddCommand(hostRemoveCmd)
	rootCmd.AddCommand(hostCmd)
}

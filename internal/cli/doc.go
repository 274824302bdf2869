// Package cli implements the vigil command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to a workflow function for the actual work. The general
// structure follows a clean separation between:
//
//   - Command definitions (cobra.Command instances in commands.go)
//   - Target and credential resolution (connect.go)
//   - Implementation details (in other internal packages)
//
// # Command Structure
//
// The root command is "vigil" with subcommands for different operations:
//
//	vigil watch [target]      - Live metrics dashboard for one host
//	vigil snapshot [target]   - One collection cycle, text or JSON
//	vigil exec <target> [cmd] - Run a one-off remote command
//	vigil kill <target> <pid> - Terminate a remote process
//	vigil host [add|remove|list] - Manage the host book
//	vigil version             - Build metadata
//
// # Target Resolution
//
// A target argument is resolved in order: a host-book entry by name, then
// a "[user@]host[:port]" literal, with anything ~/.ssh/config knows about
// the host (HostName, User, Port, IdentityFile) filled in underneath.
// Flags (--user, --port, --key, --transport) override whatever resolution
// produced. When no target is given, an interactive form asks for one.
//
// # Credentials
//
// Credential selection, most specific first: --key, the host book entry's
// auth method, an IdentityFile from ~/.ssh/config, a running ssh-agent,
// and finally a password prompt. Passwords are read from the terminal
// with echo off and never accepted as command-line arguments.
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color) are defined on the root
// command and available to all subcommands. Connection flags like --user
// and --timeout are shared by the commands that dial a host.
package cli

package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vigil-dev/vigil/internal/config"
	"github.com/vigil-dev/vigil/internal/errors"
	"github.com/vigil-dev/vigil/internal/logger"
	"github.com/vigil-dev/vigil/internal/session"
	"github.com/vigil-dev/vigil/pkg/sshutil"
)

// connectFlags holds the connection flags shared by commands that dial a
// host. The --password flag is a switch that triggers a prompt; the
// password itself never appears on the command line.
type connectFlags struct {
	User      string
	Port      int
	Key       string
	Password  bool
	Transport string
	Timeout   string
	Interval  string

	// Agent is set by the interactive form's explicit agent choice; it
	// has no flag because agent auth is already the non-interactive
	// default when an agent is running.
	Agent bool
}

// addConnectFlags registers the shared connection flags on a command.
func addConnectFlags(cmd *cobra.Command, f *connectFlags) {
	cmd.Flags().StringVarP(&f.User, "user", "u", "", "remote username")
	cmd.Flags().IntVarP(&f.Port, "port", "p", 0, "remote port")
	cmd.Flags().StringVarP(&f.Key, "key", "i", "", "private key file")
	cmd.Flags().BoolVar(&f.Password, "password", false, "prompt for a password")
	cmd.Flags().StringVar(&f.Transport, "transport", "", "transport: ssh or winrm")
	cmd.Flags().StringVar(&f.Timeout, "timeout", "", "per-command timeout (e.g., 10s)")
}

// connectSpec is everything needed to open a session: where, how, and
// with which timeouts.
type connectSpec struct {
	Display    string // name shown to the user while dialing
	Target     sshutil.Target
	Transport  session.Transport
	Credential sshutil.Credential

	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	Interval       time.Duration

	// OnWarning receives host identity warnings. Nil keeps them in the
	// session event log only, which is what the full-screen dashboard
	// wants; plain CLI commands print them to stderr.
	OnWarning func(message string)
}

// resolveSpec turns a target argument plus flags into a full connection
// spec, prompting for whatever is missing. An empty target raises the
// interactive connect form.
func resolveSpec(cfg *config.Config, targetArg string, f *connectFlags) (*connectSpec, error) {
	spec := &connectSpec{
		ConnectTimeout: cfg.Defaults.ConnectTimeout,
		CommandTimeout: cfg.Defaults.CommandTimeout,
		Interval:       cfg.Defaults.Interval,
	}

	if f.Timeout != "" {
		d, err := parseFlagDuration("--timeout", f.Timeout)
		if err != nil {
			return nil, err
		}
		spec.CommandTimeout = d
	}
	if f.Interval != "" {
		d, err := parseFlagDuration("--interval", f.Interval)
		if err != nil {
			return nil, err
		}
		if d < 500*time.Millisecond {
			return nil, errors.New(errors.ErrConfig,
				"Interval too short",
				"Minimum interval is 500ms to avoid overwhelming the host")
		}
		spec.Interval = d
	}

	if targetArg == "" {
		var err error
		targetArg, err = promptForTarget(cfg, f)
		if err != nil {
			return nil, err
		}
	}

	// A host book name wins over target-string parsing; anything else
	// goes through ~/.ssh/config resolution.
	var bookEntry config.Host
	if h, ok := cfg.Host(targetArg); ok {
		bookEntry = h
		spec.Display = h.Name
		spec.Target = sshutil.Target{
			Host: h.Address,
			Port: h.Port,
			User: h.User,
		}
		logger.Default().Debug("target %q resolved from host book (%s)", targetArg, h.String())
	} else {
		spec.Display = targetArg
		spec.Target = sshutil.ResolveTarget(targetArg)
	}

	if f.User != "" {
		spec.Target.User = f.User
	}
	if f.Port != 0 {
		spec.Target.Port = f.Port
	}

	transport := cfg.Defaults.Transport
	if bookEntry.Transport != "" {
		transport = bookEntry.Transport
	}
	if f.Transport != "" {
		transport = f.Transport
	}
	switch transport {
	case "", config.TransportSSH:
		spec.Transport = session.TransportSSH
	case config.TransportWinRM:
		spec.Transport = session.TransportWinRM
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown transport '%s'", transport),
			"Use ssh or winrm")
	}

	cred, err := resolveCredential(spec, bookEntry, f)
	if err != nil {
		return nil, err
	}
	spec.Credential = cred

	return spec, nil
}

// resolveCredential picks a credential, most specific source first:
// --key, --password, the host book's auth method, an IdentityFile from
// ~/.ssh/config, a running agent, and finally a password prompt.
func resolveCredential(spec *connectSpec, h config.Host, f *connectFlags) (sshutil.Credential, error) {
	if f.Key != "" {
		return sshutil.PrivateKey{Path: f.Key}, nil
	}
	if f.Password {
		return promptPassword(spec)
	}
	if f.Agent {
		return sshutil.Agent{}, nil
	}

	// WinRM is password-only, so nothing else is worth trying.
	if spec.Transport == session.TransportWinRM {
		return promptPassword(spec)
	}

	switch h.Auth {
	case config.AuthKey:
		if h.KeyFile == "" {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' uses key auth but has no key_file", h.Name),
				"Add key_file to the host entry or pass --key")
		}
		return sshutil.PrivateKey{Path: config.ExpandPath(h.KeyFile)}, nil
	case config.AuthPassword:
		return promptPassword(spec)
	case config.AuthAgent:
		return sshutil.Agent{}, nil
	}

	if spec.Target.IdentityFile != "" {
		return sshutil.PrivateKey{Path: spec.Target.IdentityFile}, nil
	}
	if os.Getenv("SSH_AUTH_SOCK") != "" {
		return sshutil.Agent{}, nil
	}
	return promptPassword(spec)
}

// openSession dials the target described by spec. When a key turns out to
// be passphrase protected and we have a terminal, ask once and retry.
func openSession(mgr *session.Manager, spec *connectSpec) (*session.Session, error) {
	opts := session.ConnectOptions{
		Target:     spec.Target,
		Credential: spec.Credential,
		Transport:  spec.Transport,
		Timeout:    spec.ConnectTimeout,
		OnWarning:  spec.OnWarning,
	}

	sess, err := mgr.Connect(opts)
	if err == nil {
		return sess, nil
	}

	var encErr *sshutil.EncryptedKeyError
	if stderrors.As(err, &encErr) {
		key, isKey := spec.Credential.(sshutil.PrivateKey)
		if isKey && key.Passphrase == "" && stdinIsTerminal() {
			phrase, perr := promptSecret(fmt.Sprintf("Passphrase for %s: ", keyLabel(key)))
			if perr != nil {
				return nil, perr
			}
			key.Passphrase = phrase
			spec.Credential = key
			opts.Credential = key
			return mgr.Connect(opts)
		}
	}

	return nil, err
}

// ensurePassphrase front-loads the passphrase prompt for an encrypted key
// file. The watch command calls this before entering the alternate screen,
// where prompting is no longer possible.
func ensurePassphrase(spec *connectSpec) error {
	key, isKey := spec.Credential.(sshutil.PrivateKey)
	if !isKey || key.Passphrase != "" || key.Path == "" {
		return nil
	}

	data, err := os.ReadFile(config.ExpandPath(key.Path))
	if err != nil {
		// Let the dial surface the real read error.
		return nil
	}
	if !strings.Contains(string(data), "ENCRYPTED") {
		return nil
	}

	phrase, err := promptSecret(fmt.Sprintf("Passphrase for %s: ", keyLabel(key)))
	if err != nil {
		return err
	}
	key.Passphrase = phrase
	spec.Credential = key
	return nil
}

// promptPassword asks for the target's password on the terminal.
func promptPassword(spec *connectSpec) (sshutil.Credential, error) {
	user := spec.Target.User
	label := spec.Display
	if user != "" {
		label = user + "@" + label
	}
	secret, err := promptSecret(fmt.Sprintf("Password for %s: ", label))
	if err != nil {
		return nil, err
	}
	return sshutil.Password{Secret: secret}, nil
}

// promptSecret reads a line from the terminal with echo off.
func promptSecret(label string) (string, error) {
	if !stdinIsTerminal() {
		return "", errors.New(errors.ErrConfig,
			"A password or passphrase is needed but stdin is not a terminal",
			"Use key or agent authentication for non-interactive runs")
	}

	fmt.Fprint(os.Stderr, label)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read from the terminal", "")
	}
	return string(secret), nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// keyLabel names a key credential for prompts without exposing material.
func keyLabel(k sshutil.PrivateKey) string {
	if k.Path != "" {
		return k.Path
	}
	return "private key"
}

// parseFlagDuration parses a duration flag value.
func parseFlagDuration(flag, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' is not a valid duration for %s", value, flag),
			"Try something like 5s, 2m, or 500ms")
	}
	if d <= 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must be positive", flag), "")
	}
	return d, nil
}

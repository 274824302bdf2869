package config

import (
	"fmt"
	"strings"

	"github.com/vigil-dev/vigil/internal/errors"
)

// Validate checks a loaded config for mistakes worth stopping on.
func Validate(cfg *Config) error {
	if err := validateDefaults(cfg.Defaults); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check the 'defaults' section of your config")
	}

	seen := make(map[string]bool, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		if err := validateHost(h); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
				"Check the 'hosts' section of your config")
		}
		if seen[h.Name] {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Two hosts are both named '%s'", h.Name),
				"Host names have to be unique - rename one of them")
		}
		seen[h.Name] = true
	}

	return nil
}

func validateDefaults(d Defaults) error {
	if d.Interval < 0 {
		return fmt.Errorf("defaults.interval can't be negative")
	}
	if d.CommandTimeout < 0 {
		return fmt.Errorf("defaults.command_timeout can't be negative")
	}
	if d.ConnectTimeout < 0 {
		return fmt.Errorf("defaults.connect_timeout can't be negative")
	}
	return validateTransport("defaults.transport", d.Transport)
}

func validateHost(h Host) error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("a host entry is missing its 'name'")
	}
	// Names are typed on the command line where @ and : already mean
	// user@host:port, so keep them out of names.
	if strings.ContainsAny(h.Name, "@:/ ") {
		return fmt.Errorf("host name '%s' can't contain @, :, / or spaces - put connection details in the other fields", h.Name)
	}

	if strings.TrimSpace(h.Address) == "" {
		return fmt.Errorf("host '%s' needs an 'address' to connect to", h.Name)
	}

	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("host '%s' has port %d - ports go from 1 to 65535", h.Name, h.Port)
	}

	switch h.Auth {
	case "", AuthPassword, AuthKey, AuthAgent:
	default:
		return fmt.Errorf("host '%s' has auth '%s' - use 'password', 'key', or 'agent'", h.Name, h.Auth)
	}

	if h.Auth == AuthKey && strings.TrimSpace(h.KeyFile) == "" {
		return fmt.Errorf("host '%s' uses key auth but has no 'key_file'", h.Name)
	}
	if strings.Contains(h.KeyFile, "${") {
		return fmt.Errorf("host '%s' has an unexpanded variable in key_file: %s", h.Name, h.KeyFile)
	}

	return validateTransport(fmt.Sprintf("host '%s' transport", h.Name), h.Transport)
}

func validateTransport(field, transport string) error {
	switch transport {
	case "", TransportSSH, TransportWinRM:
		return nil
	default:
		return fmt.Errorf("%s is '%s' - use 'ssh' or 'winrm'", field, transport)
	}
}

// Package config owns vigil's configuration file: collection defaults and
// the host book. Secrets never live here; passwords are prompted for and
// key files are referenced by path only.
package config

import (
	"fmt"
	"time"
)

// Auth method names accepted in a host entry. Empty means "decide at
// connect time": key file if one is configured, agent if one is running,
// password prompt otherwise.
const (
	AuthPassword = "password"
	AuthKey      = "key"
	AuthAgent    = "agent"
)

// Transport names accepted in a host entry or the defaults block.
const (
	TransportSSH   = "ssh"
	TransportWinRM = "winrm"
)

// Config is the whole vigil.yaml file.
type Config struct {
	Defaults Defaults `yaml:"defaults" mapstructure:"defaults"`
	Hosts    []Host   `yaml:"hosts,omitempty" mapstructure:"hosts"`
}

// Defaults holds the knobs that apply to every connection unless a flag
// or host entry overrides them.
type Defaults struct {
	// Interval between dashboard refresh cycles.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// CommandTimeout bounds each remote command.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// ConnectTimeout bounds dial plus handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// Transport is "ssh" or "winrm".
	Transport string `yaml:"transport" mapstructure:"transport"`
}

// Host is one entry in the host book.
type Host struct {
	// Name is how the entry is referenced on the command line.
	Name string `yaml:"name" mapstructure:"name"`

	// Address is the hostname or IP to dial.
	Address string `yaml:"address" mapstructure:"address"`

	// Port of the remote service. Zero means the transport default
	// (22 for SSH, 5985 for WinRM).
	Port int `yaml:"port,omitempty" mapstructure:"port"`

	User string `yaml:"user,omitempty" mapstructure:"user"`

	// Auth is "password", "key", "agent", or empty for automatic.
	Auth string `yaml:"auth,omitempty" mapstructure:"auth"`

	// KeyFile is the private key path for auth: key. Supports ~ and
	// $VAR expansion. The key itself is read at connect time, never
	// stored in config.
	KeyFile string `yaml:"key_file,omitempty" mapstructure:"key_file"`

	// Transport overrides the default transport for this host.
	Transport string `yaml:"transport,omitempty" mapstructure:"transport"`
}

// String renders the entry the way it would be typed: user@address:port.
func (h Host) String() string {
	s := h.Address
	if h.User != "" {
		s = h.User + "@" + s
	}
	if h.Port != 0 {
		s = fmt.Sprintf("%s:%d", s, h.Port)
	}
	return s
}

// DefaultConfig returns a Config with vigil's stock defaults.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			Interval:       2 * time.Second,
			CommandTimeout: 10 * time.Second,
			ConnectTimeout: 10 * time.Second,
			Transport:      TransportSSH,
		},
	}
}

// Host looks up a host-book entry by name.
func (c *Config) Host(name string) (Host, bool) {
	for _, h := range c.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}

// HostNames returns the host book's names in file order.
func (c *Config) HostNames() []string {
	names := make([]string, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		names = append(names, h.Name)
	}
	return names
}

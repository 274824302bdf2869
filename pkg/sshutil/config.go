package sshutil

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kevinburke/ssh_config"
)

// Target holds connection parameters for one remote host, either parsed
// from a "[user@]host[:port]" string or resolved from ~/.ssh/config.
type Target struct {
	Host         string // hostname or IP to dial
	Alias        string // the name the user typed, if it was a config alias
	User         string
	Port         int
	IdentityFile string
}

// matchWarningOnce ensures the SSH config Match directive warning is only
// shown once per process.
var matchWarningOnce sync.Once

// ConfigWarningHandler receives non-fatal SSH config parsing warnings.
// If nil, warnings are printed via log.Printf.
var ConfigWarningHandler func(message string)

func emitConfigWarning(message string) {
	if ConfigWarningHandler != nil {
		ConfigWarningHandler(message)
	} else {
		log.Printf("Warning: %s", message)
	}
}

// ParseTarget splits a "[user@]host[:port]" string. It does not consult
// ~/.ssh/config; see ResolveTarget for that.
func ParseTarget(s string) Target {
	t := Target{Host: s}

	if atIdx := strings.Index(t.Host, "@"); atIdx != -1 {
		t.User = t.Host[:atIdx]
		t.Host = t.Host[atIdx+1:]
	}

	if colonIdx := strings.LastIndex(t.Host, ":"); colonIdx != -1 {
		if port, err := strconv.Atoi(t.Host[colonIdx+1:]); err == nil && port > 0 {
			t.Port = port
			t.Host = t.Host[:colonIdx]
		}
	}

	return t
}

// ResolveTarget parses the target string and fills in anything ~/.ssh/config
// knows about it (HostName, Port, User, IdentityFile). Explicit values in the
// target string win over config values.
func ResolveTarget(s string) Target {
	return resolveTargetFile(s, filepath.Join(homeDir(), ".ssh", "config"))
}

func resolveTargetFile(s, configPath string) Target {
	t := ParseTarget(s)

	content, matchLine, err := preprocessSSHConfig(configPath)
	if err != nil {
		// Config doesn't exist or can't be read, that's fine
		return t
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		// Decoding failed even after preprocessing, just return what we parsed
		return t
	}

	alias := t.Host
	found := false

	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		t.Alias = alias
		t.Host = hostname
		found = true
	}
	if t.Port == 0 {
		if port, _ := cfg.Get(alias, "Port"); port != "" {
			if p, err := strconv.Atoi(port); err == nil {
				t.Port = p
				found = true
			}
		}
	}
	if t.User == "" {
		if user, _ := cfg.Get(alias, "User"); user != "" {
			t.User = user
			found = true
		}
	}
	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
		t.IdentityFile = expandPath(identity)
		found = true
	}

	// Only warn about a Match block if the host wasn't found - it might be
	// defined after the Match.
	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			emitConfigWarning(fmt.Sprintf(
				"Host '%s' not found in SSH config (config has a Match block at line %d that may hide later entries). "+
					"If this host is defined after line %d, move it earlier in ~/.ssh/config.",
				alias, matchLine, matchLine))
		})
	}

	return t
}

// preprocessSSHConfig reads the SSH config and returns content up to the
// first Match directive (the ssh_config library doesn't support Match).
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Match directive check (case insensitive)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1 // 1-indexed line number
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

// HostEntry represents a parsed host entry from SSH config, used to offer
// known hosts in the interactive connect form.
type HostEntry struct {
	Alias        string
	Hostname     string
	User         string
	Port         string
	IdentityFile string
}

// Description returns a short human-readable summary of the entry.
func (h HostEntry) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// ListConfigHosts parses ~/.ssh/config and returns the concrete host
// aliases (wildcards skipped), sorted by name.
func ListConfigHosts() ([]HostEntry, error) {
	return listConfigHostsFile(filepath.Join(homeDir(), ".ssh", "config"))
}

func listConfigHostsFile(configPath string) ([]HostEntry, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No SSH config is fine
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []HostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			// Skip wildcards and special patterns
			if strings.Contains(alias, "*") || strings.Contains(alias, "?") {
				continue
			}
			if seen[alias] {
				continue
			}
			seen[alias] = true

			entry := HostEntry{Alias: alias}

			if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
				entry.Hostname = hostname
			}
			if user, _ := cfg.Get(alias, "User"); user != "" {
				entry.User = user
			}
			if port, _ := cfg.Get(alias, "Port"); port != "" {
				entry.Port = port
			}
			if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
				entry.IdentityFile = expandPath(identity)
			}

			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}

// Package sshutil is the SSH transport layer: it dials a single remote
// host with an explicit credential, verifies the host key against
// known_hosts with a warn-don't-abort policy, and runs commands with a
// bounded deadline.
package sshutil

import (
	stderrors "errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultPort is used when Options.Port is zero.
const DefaultPort = 22

// DefaultTimeout bounds the TCP dial and SSH handshake when Options.Timeout
// is zero.
const DefaultTimeout = 10 * time.Second

// StrictHostKeys controls what happens on a known_hosts mismatch.
// When false (default), mismatches and unknown hosts are reported through
// Options.OnWarning and the connection proceeds (trust-on-first-use).
// When true, a mismatch aborts the handshake.
var StrictHostKeys = false

// Options describes one connection attempt.
type Options struct {
	Address    string // hostname or IP, without port
	Port       int    // 0 means DefaultPort
	User       string
	Credential Credential
	Timeout    time.Duration // 0 means DefaultTimeout

	// KnownHostsPath overrides ~/.ssh/known_hosts. Mostly for tests.
	KnownHostsPath string

	// OnWarning receives host identity warnings (unknown host, key
	// mismatch). If nil, warnings go to log.Printf.
	OnWarning func(message string)
}

func (o *Options) addr() string {
	port := o.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(o.Address, strconv.Itoa(port))
}

func (o *Options) warn(message string) {
	if o.OnWarning != nil {
		o.OnWarning(message)
		return
	}
	log.Printf("Warning: %s", message)
}

// Client wraps an SSH connection with resolved metadata.
type Client struct {
	*ssh.Client
	target      string // what the caller asked to connect to
	address     string // resolved host:port
	fingerprint string // SHA256 fingerprint of the presented host key
}

// Dial establishes an SSH connection described by opts.
// Failures carry AUTH, NETWORK, or TIMEOUT codes so callers can tell a bad
// credential from an unreachable host.
func Dial(opts Options) (*Client, error) {
	if opts.Address == "" {
		return nil, errors.New(errors.ErrConfig,
			"No address to connect to",
			"Give a hostname or IP address")
	}
	if opts.Credential == nil {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("No credential for '%s'", opts.Address),
			"Choose password, private key, or agent authentication")
	}

	authMethods, err := opts.Credential.methods()
	if err != nil {
		return nil, err
	}

	var fingerprint string
	hostKeyCallback, err := hostKeyCallback(&opts, &fingerprint)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't set up host key verification",
			"Check that ~/.ssh is readable")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	config := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	address := opts.addr()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return nil, errors.WrapWithCode(err, errors.ErrTimeout,
				fmt.Sprintf("Connecting to %s timed out after %s", address, timeout),
				"Host might be offline or blocked by a firewall")
		}
		return nil, errors.WrapWithCode(err, errors.ErrNetwork,
			fmt.Sprintf("Can't reach %s", address),
			suggestionForDialError(err))
	}

	// The TCP connection is up; enforce the same deadline on the handshake
	// so a wedged server can't hang us.
	_ = conn.SetDeadline(time.Now().Add(timeout))

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, classifyHandshakeError(err, address)
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:      ssh.NewClient(sshConn, chans, reqs),
		target:      opts.Address,
		address:     address,
		fingerprint: fingerprint,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Target returns the host the caller asked to connect to.
func (c *Client) Target() string {
	return c.target
}

// Addr returns the resolved host:port address.
func (c *Client) Addr() string {
	return c.address
}

// Fingerprint returns the SHA256 fingerprint of the host key presented
// during the handshake, in the "SHA256:..." form ssh-keygen prints.
func (c *Client) Fingerprint() string {
	return c.fingerprint
}

// classifyHandshakeError maps handshake failures onto the error taxonomy.
func classifyHandshakeError(err error, address string) error {
	var hostKeyErr *HostKeyMismatchError
	if stderrors.As(err, &hostKeyErr) {
		return errors.New(errors.ErrConnection,
			hostKeyErr.Error(),
			hostKeyErr.Suggestion())
	}

	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods remain") ||
		strings.Contains(errStr, "permission denied") {
		return errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("Authentication failed for %s", address),
			"Check the username and credential")
	}
	if strings.Contains(errStr, "i/o timeout") {
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("SSH handshake with %s timed out", address),
			"Host might be dropping packets mid-handshake")
	}
	return errors.WrapWithCode(err, errors.ErrNetwork,
		fmt.Sprintf("SSH handshake with %s didn't go through", address),
		"Try connecting manually first: ssh "+address)
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "no such host") {
		return "Hostname didn't resolve. Check for typos."
	}
	return "Make sure the host is reachable: ping <host>"
}

// hostKeyCallback builds the callback that records the presented key's
// fingerprint and applies the trust-on-first-use policy: unknown hosts and
// mismatches surface as warnings unless StrictHostKeys is set.
func hostKeyCallback(opts *Options, fingerprint *string) (ssh.HostKeyCallback, error) {
	knownHostsPath := opts.KnownHostsPath
	if knownHostsPath == "" {
		knownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
	}

	// knownhosts.New refuses to start without the file.
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, err
		}
	}

	verify, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		*fingerprint = ssh.FingerprintSHA256(key)

		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) {
			if len(keyErr.Want) == 0 {
				// Host not in known_hosts: trust on first use.
				opts.warn(fmt.Sprintf(
					"Host %s is not in known_hosts; continuing with unverified key %s (%s)",
					hostname, *fingerprint, key.Type()))
				return nil
			}

			mismatch := &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
			if StrictHostKeys {
				return mismatch
			}
			opts.warn(fmt.Sprintf(
				"HOST KEY MISMATCH for %s: server presented %s key %s, known_hosts disagrees. "+
					"Continuing anyway; verify the host if this is unexpected.",
				hostname, key.Type(), *fingerprint))
			return nil
		}

		return err
	}, nil
}

// HostKeyMismatchError provides context when known_hosts verification fails
// under StrictHostKeys.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	// Strip port if present (e.g., "host:22" -> "host")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  To update known_hosts with all key types:\n"+
			"    ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s\n\n"+
			"  Or remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host, e.KnownHosts, host)
}

// Helper functions

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// isEncryptedPEM checks if PEM data contains encryption markers.
func isEncryptedPEM(data []byte) bool {
	return strings.Contains(string(data), "ENCRYPTED") ||
		strings.Contains(string(data), "Proc-Type: 4,ENCRYPTED")
}

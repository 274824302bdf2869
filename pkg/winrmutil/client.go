// Package winrmutil is the WinRM transport layer, for Windows hosts that
// expose WinRM instead of SSH. It satisfies the same Runner contract as the
// SSH transport, so everything above it is transport-agnostic.
package winrmutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/masterzen/winrm"

	"github.com/vigil-dev/vigil/internal/errors"
)

// DefaultPort is the plain-HTTP WinRM port.
const DefaultPort = 5985

// DefaultTLSPort is the HTTPS WinRM port, used when UseTLS is set and no
// port is given.
const DefaultTLSPort = 5986

// DefaultTimeout bounds the connection probe when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Options describes one WinRM connection attempt. Authentication is NTLM;
// Domain, when set, is prepended to the username.
type Options struct {
	Address  string
	Port     int // 0 means DefaultPort (or DefaultTLSPort with UseTLS)
	User     string
	Password string
	Domain   string
	UseTLS   bool
	Timeout  time.Duration
}

func (o *Options) port() int {
	if o.Port != 0 {
		return o.Port
	}
	if o.UseTLS {
		return DefaultTLSPort
	}
	return DefaultPort
}

// Client runs commands over WinRM. The protocol is per-request, so there is
// no long-lived channel underneath; Close just stops further use.
type Client struct {
	client  *winrm.Client
	target  string
	address string

	mu       sync.Mutex
	closed   bool
	closedCh chan struct{}
}

// Dial validates opts, builds the WinRM client, and probes the endpoint
// with a trivial command so that unreachable hosts and bad credentials
// surface here rather than on the first real command.
func Dial(opts Options) (*Client, error) {
	if opts.Address == "" {
		return nil, errors.New(errors.ErrConfig,
			"No address to connect to",
			"Give a hostname or IP address")
	}
	if opts.User == "" || opts.Password == "" {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("WinRM needs a username and password for '%s'", opts.Address),
			"NTLM authentication requires both")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	endpoint := winrm.NewEndpoint(
		opts.Address,
		opts.port(),
		opts.UseTLS,
		true, // skip certificate verification, WinRM certs are almost always self-signed
		nil,  // CA certificate
		nil,  // client certificate
		nil,  // client key
		timeout,
	)

	user := opts.User
	if opts.Domain != "" {
		user = fmt.Sprintf("%s\\%s", opts.Domain, opts.User)
	}

	params := winrm.NewParameters("PT60S", "en-US", 153600)
	params.TransportDecorator = func() winrm.Transporter {
		return &winrm.ClientNTLM{}
	}

	wc, err := winrm.NewClientWithParameters(endpoint, user, opts.Password, params)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't build the WinRM client",
			"")
	}

	c := &Client{
		client:   wc,
		target:   opts.Address,
		address:  fmt.Sprintf("%s:%d", opts.Address, opts.port()),
		closedCh: make(chan struct{}),
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, _, _, err := c.client.RunWithContextWithString(probeCtx, "echo ok", ""); err != nil {
		return nil, classifyDialError(err, c.address, timeout)
	}

	return c, nil
}

func classifyDialError(err error, address string, timeout time.Duration) error {
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized"):
		return errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("Authentication failed for %s", address),
			"Check the username, password, and domain")
	case stderrors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "timeout"):
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("Connecting to %s timed out after %s", address, timeout),
			"Host might be offline or blocked by a firewall")
	default:
		return errors.WrapWithCode(err, errors.ErrNetwork,
			fmt.Sprintf("Can't reach WinRM at %s", address),
			"Check that WinRM is enabled on the host: winrm quickconfig")
	}
}

// Exec runs one command through WinRM. Commands go to cmd.exe, so callers
// that want PowerShell prefix it themselves, same as they would over SSH.
// A non-zero exit status is not an error.
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, -1, errors.New(errors.ErrConnection,
			"Connection is closed",
			"")
	}
	c.mu.Unlock()

	// Tie the request to Close as well as to the caller's deadline.
	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.closedCh:
			cancel()
		case <-execCtx.Done():
		}
	}()

	out, errOut, code, err := c.client.RunWithContextWithString(execCtx, cmd, "")
	if err != nil {
		select {
		case <-c.closedCh:
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnection,
				fmt.Sprintf("Channel failed mid-command: %s", cmd),
				"")
		default:
		}
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrTimeout,
				fmt.Sprintf("Command timed out: %s", cmd),
				"Raise the command timeout if the host is just slow")
		}
		if ctx.Err() != nil {
			return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
				fmt.Sprintf("Command abandoned: %s", cmd),
				"")
		}
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("WinRM request failed: %s", cmd),
			"")
	}

	return []byte(out), []byte(errOut), code, nil
}

// Close stops further use of the client and interrupts any in-flight
// request. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
	}
	return nil
}

// Target returns the host the caller asked to connect to.
func (c *Client) Target() string {
	return c.target
}

// Addr returns the host:port address.
func (c *Client) Addr() string {
	return c.address
}

// Fingerprint returns "". WinRM has no host key to fingerprint; transport
// identity rests on TLS or NTLM instead.
func (c *Client) Fingerprint() string {
	return ""
}

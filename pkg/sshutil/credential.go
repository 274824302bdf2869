package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/vigil-dev/vigil/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Credential is a way of proving identity to the remote host. Implementations
// are Password, PrivateKey, and Agent. Credentials live in memory for the
// duration of a connection and are never written to disk or logged.
type Credential interface {
	// Name identifies the credential kind for event logs ("password",
	// "private-key", "agent"). It never exposes secret material.
	Name() string

	// methods builds the SSH auth methods for this credential.
	methods() ([]ssh.AuthMethod, error)
}

// Password authenticates with a plain password.
type Password struct {
	Secret string
}

func (p Password) Name() string { return "password" }

func (p Password) methods() ([]ssh.AuthMethod, error) {
	if p.Secret == "" {
		return nil, errors.New(errors.ErrAuth,
			"Password credential is empty",
			"Provide a password or switch to key authentication")
	}
	return []ssh.AuthMethod{ssh.Password(p.Secret)}, nil
}

// PrivateKey authenticates with a private key, given either as raw PEM bytes
// or as a file path. Passphrase is required only for encrypted keys.
type PrivateKey struct {
	PEM        []byte
	Path       string
	Passphrase string
}

func (k PrivateKey) Name() string { return "private-key" }

func (k PrivateKey) methods() ([]ssh.AuthMethod, error) {
	pem := k.PEM
	if len(pem) == 0 {
		if k.Path == "" {
			return nil, errors.New(errors.ErrAuth,
				"Private key credential has neither key material nor a path",
				"Set either PEM or Path")
		}
		data, err := os.ReadFile(expandPath(k.Path))
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrAuth,
				fmt.Sprintf("Can't read private key %s", k.Path),
				"Check that the file exists and is readable")
		}
		pem = data
	}

	signer, err := parseSigner(pem, k.Passphrase)
	if err != nil {
		var encErr *EncryptedKeyError
		if stderrors.As(err, &encErr) {
			encErr.Path = k.Path
			return nil, errors.WrapWithCode(encErr, errors.ErrAuth,
				"Private key is encrypted and no passphrase was given",
				"Re-run with the key's passphrase")
		}
		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			"Can't parse private key",
			"Check that the file is a valid OpenSSH or PEM private key")
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func parseSigner(pem []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		var missingErr *ssh.PassphraseMissingError
		if stderrors.As(err, &missingErr) || isEncryptedPEM(pem) {
			return nil, &EncryptedKeyError{}
		}
		return nil, err
	}
	return signer, nil
}

// Agent authenticates with keys held by the local ssh-agent.
type Agent struct{}

func (a Agent) Name() string { return "agent" }

func (a Agent) methods() ([]ssh.AuthMethod, error) {
	auth := sshAgentAuth()
	if auth == nil {
		return nil, errors.New(errors.ErrAuth,
			"SSH agent has no usable keys",
			"Load a key first: ssh-add ~/.ssh/id_ed25519")
	}
	return []ssh.AuthMethod{auth}, nil
}

// agentConn holds the reusable SSH agent connection.
var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns an auth method using the SSH agent if available.
// The agent connection is reused across connections within the process.
// Returns nil if there is no agent or it has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}

	// Only return agent auth if the agent actually has keys.
	// An empty agent causes auth failures when placed before other methods.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the SSH agent connection if one is open.
// This should be called when the application is shutting down.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// EncryptedKeyError is returned when a private key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	if e.Path == "" {
		return "private key is encrypted (passphrase protected)"
	}
	return fmt.Sprintf("private key at %s is encrypted (passphrase protected)", e.Path)
}

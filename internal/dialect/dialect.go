// Package dialect classifies what kind of shell a remote host speaks, so the
// collector knows which command set to use. Detection runs at most two cheap
// probes: a POSIX one (uname) and, if that fails, a PowerShell one.
package dialect

import (
	"context"
	"strings"

	"github.com/vigil-dev/vigil/pkg/sshutil"
)

// Dialect represents the command dialect of a remote host.
type Dialect string

const (
	// Linux indicates a Linux host with the usual /proc interfaces.
	Linux Dialect = "linux"
	// MacOS indicates a macOS host (BSD userland, sysctl, vm_stat).
	MacOS Dialect = "macos"
	// WindowsPowerShell indicates a Windows host reachable through
	// powershell.exe, whether the transport is SSH or WinRM.
	WindowsPowerShell Dialect = "windows-powershell"
	// Unknown indicates a host we couldn't classify. Collection falls back
	// to a minimal portable command set.
	Unknown Dialect = "unknown"
)

// String returns the dialect name.
func (d Dialect) String() string {
	if d == "" {
		return string(Unknown)
	}
	return string(d)
}

// PosixProbeCommand returns the first probe, which succeeds on any
// POSIX-ish host.
func PosixProbeCommand() string {
	return "uname -s"
}

// PowerShellProbeCommand returns the second probe, tried when uname fails.
// Win32NT in the output confirms a Windows host.
func PowerShellProbeCommand() string {
	return `powershell -NoProfile -NonInteractive -Command "[System.Environment]::OSVersion.Platform"`
}

// Parse converts uname output to a Dialect value.
func Parse(unameOutput string) Dialect {
	switch strings.TrimSpace(unameOutput) {
	case "Linux":
		return Linux
	case "Darwin":
		return MacOS
	default:
		return Unknown
	}
}

// looksLikeWindowsUname reports whether uname output came from a POSIX
// emulation layer on Windows (Git Bash, MSYS2, Cygwin). Those hosts have
// PowerShell available, which beats the portable baseline.
func looksLikeWindowsUname(unameOutput string) bool {
	out := strings.TrimSpace(unameOutput)
	return strings.HasPrefix(out, "MSYS_NT") ||
		strings.HasPrefix(out, "MINGW") ||
		strings.HasPrefix(out, "CYGWIN_NT")
}

// Detect probes the remote host and classifies its dialect. The POSIX probe
// runs first; a host that answers uname with something we don't recognize
// stays Unknown rather than being probed further, since it can at least run
// the portable command set. The PowerShell probe runs only when uname failed
// or reported a Windows emulation layer.
//
// The returned error is non-nil only when every probe failed at the
// transport level, meaning the connection itself is in doubt. Probes that
// merely exit non-zero classify the host as Unknown with no error.
func Detect(ctx context.Context, runner sshutil.Runner) (Dialect, error) {
	stdout, _, exitCode, err := runner.Exec(ctx, PosixProbeCommand())
	if err == nil && exitCode == 0 {
		if d := Parse(string(stdout)); d != Unknown {
			return d, nil
		}
		if !looksLikeWindowsUname(string(stdout)) {
			return Unknown, nil
		}
	}
	posixErr := err

	stdout, _, exitCode, err = runner.Exec(ctx, PowerShellProbeCommand())
	if err == nil && exitCode == 0 && strings.Contains(string(stdout), "Win32NT") {
		return WindowsPowerShell, nil
	}

	if posixErr != nil && err != nil {
		return Unknown, err
	}
	return Unknown, nil
}

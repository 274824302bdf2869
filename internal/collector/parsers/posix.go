package parsers

import (
	"bufio"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/metrics"
)

// parseUname fills identity fields from `uname -srm` output: kernel name,
// release, machine architecture.
func parseUname(s string, info *metrics.SystemInfo) {
	fields := strings.Fields(s)
	if len(fields) > 0 {
		info.OS = fields[0]
	}
	if len(fields) > 1 {
		info.Kernel = fields[1]
	}
	if len(fields) > 2 {
		info.Arch = fields[2]
	}
}

// ParseDFPosix parses `df -P -k` output, the portable form every POSIX
// system supports. Sizes are 1024-byte blocks; no filesystem type column.
func ParseDFPosix(output string) ([]metrics.DiskUsage, error) {
	var disks []metrics.DiskUsage

	scanner := bufio.NewScanner(strings.NewReader(output))
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(line, "Filesystem") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}

		total, err1 := Int(fields[1])
		used, err2 := Int(fields[2])
		avail, err3 := Int(fields[3])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		disks = append(disks, metrics.DiskUsage{
			Filesystem:     fields[0],
			TotalBytes:     total * 1024,
			UsedBytes:      used * 1024,
			AvailableBytes: avail * 1024,
			Percent:        percentUsed(used, total),
			Mount:          strings.Join(fields[5:], " "),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning df output: %w", err)
	}
	if len(disks) == 0 {
		return nil, fmt.Errorf("no filesystems found in df output %q", snippet(output))
	}
	return disks, nil
}

// ParsePSAux parses `ps aux` style output. A row whose pid will not parse
// is discarded; a cpu or mem column that will not parse degrades to zero
// but keeps the row.
func ParsePSAux(output string) ([]metrics.ProcessInfo, error) {
	var procs []metrics.ProcessInfo

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 11 {
			continue
		}
		if fields[1] == "PID" {
			continue
		}

		pid, err := Int(fields[1])
		if err != nil {
			continue
		}

		p := metrics.ProcessInfo{
			PID:    int(pid),
			User:   fields[0],
			Status: fields[7],
			Name:   commandName(strings.Join(fields[10:], " ")),
		}
		if cpu, err := Float(fields[2]); err == nil {
			p.CPU = cpu
		}
		if mem, err := Float(fields[3]); err == nil {
			p.Memory = mem
		}
		procs = append(procs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning ps output: %w", err)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processes found in ps output %q", snippet(output))
	}
	return procs, nil
}

// ParsePSPosix parses `ps -A -o pid=,pcpu=,pmem=,comm=` output, the
// portable process listing with headers suppressed. The command path is
// the trailing columns, since application paths can contain spaces.
func ParsePSPosix(output string) ([]metrics.ProcessInfo, error) {
	var procs []metrics.ProcessInfo

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}

		pid, err := Int(fields[0])
		if err != nil {
			continue
		}

		// comm carries the bare command with no arguments, so the whole
		// tail is the path, spaces included.
		name := strings.Join(fields[3:], " ")
		if strings.HasPrefix(name, "/") {
			name = path.Base(name)
		}

		p := metrics.ProcessInfo{
			PID:  int(pid),
			Name: name,
		}
		if cpu, err := Float(fields[1]); err == nil {
			p.CPU = cpu
		}
		if mem, err := Float(fields[2]); err == nil {
			p.Memory = mem
		}
		procs = append(procs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning ps output: %w", err)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processes found in ps output %q", snippet(output))
	}
	return procs, nil
}

// commandName reduces a command line to a display name: the basename of
// the executable, or the bracketed name as-is for kernel threads.
func commandName(cmdline string) string {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return ""
	}
	if strings.HasPrefix(cmdline, "[") {
		return cmdline
	}
	exe := cmdline
	if idx := strings.IndexByte(exe, ' '); idx != -1 {
		exe = exe[:idx]
	}
	return path.Base(exe)
}

// ParsePosixSystem parses the dialect-agnostic system probe: uname -srm,
// hostname, and uptime, separated by "---". The uptime section is best
// effort since its format is locale- and flavor-dependent.
func ParsePosixSystem(output string) (*metrics.SystemInfo, error) {
	sections := SplitSections(output)
	if len(sections) < 2 || sections[0] == "" || sections[1] == "" {
		return nil, fmt.Errorf("system probe output %q is missing uname or hostname", snippet(output))
	}

	info := &metrics.SystemInfo{Hostname: sections[1]}
	parseUname(sections[0], info)

	if len(sections) > 2 {
		if d, ok := parseUptimeDuration(sections[2]); ok {
			info.Uptime = d
		}
	}
	return info, nil
}

// parseUptimeDuration extracts a duration from `uptime` output, e.g.
// "16:23:01 up 5 days,  1:02,  3 users,  load average: 0.00, 0.01, 0.05".
// The segment list after "up" mixes "N days", "H:MM", and "N min" forms.
func parseUptimeDuration(s string) (time.Duration, bool) {
	idx := strings.Index(s, "up ")
	if idx == -1 {
		return 0, false
	}
	s = s[idx+len("up "):]
	if cut := strings.Index(s, "load average"); cut != -1 {
		s = s[:cut]
	}

	var total time.Duration
	found := false
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.Contains(part, "user") {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}

		switch {
		case len(fields) >= 2 && strings.HasPrefix(fields[1], "day"):
			if v, err := Int(fields[0]); err == nil {
				total += time.Duration(v) * 24 * time.Hour
				found = true
			}
		case len(fields) >= 2 && strings.HasPrefix(fields[1], "min"):
			if v, err := Int(fields[0]); err == nil {
				total += time.Duration(v) * time.Minute
				found = true
			}
		case len(fields) >= 2 && (strings.HasPrefix(fields[1], "hr") || strings.HasPrefix(fields[1], "hour")):
			if v, err := Int(fields[0]); err == nil {
				total += time.Duration(v) * time.Hour
				found = true
			}
		case strings.Contains(fields[0], ":"):
			h, m, ok := strings.Cut(fields[0], ":")
			if !ok {
				continue
			}
			hv, err1 := Int(h)
			mv, err2 := Int(m)
			if err1 == nil && err2 == nil {
				total += time.Duration(hv)*time.Hour + time.Duration(mv)*time.Minute
				found = true
			}
		}
	}
	return total, found
}

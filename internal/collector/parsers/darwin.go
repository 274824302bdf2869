package parsers

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/metrics"
)

// ParseTopDarwin parses aggregate CPU usage from `top -l 1 -n 0` output.
// Usage is 100 minus the idle share of the "CPU usage:" line.
func ParseTopDarwin(output string) (*metrics.CPUStats, error) {
	stats := &metrics.CPUStats{Percent: -1}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		// "CPU usage: 5.26% user, 10.52% sys, 84.21% idle"
		if strings.HasPrefix(line, "CPU usage:") {
			for _, part := range strings.Split(line, ",") {
				part = strings.TrimSpace(part)
				if !strings.Contains(part, "idle") {
					continue
				}
				fields := strings.Fields(part)
				if len(fields) == 0 {
					continue
				}
				if idle, err := Float(fields[0]); err == nil {
					stats.Percent = 100 - idle
				}
			}
		}

		// "Load Avg: 1.23, 2.34, 3.45"
		if strings.HasPrefix(line, "Load Avg:") {
			if idx := strings.Index(line, ":"); idx != -1 {
				parseLoadList(line[idx+1:], &stats.LoadAvg)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning top output: %w", err)
	}

	if stats.Percent < 0 {
		return nil, fmt.Errorf("no CPU usage line found in top output %q", snippet(output))
	}
	return stats, nil
}

// ParseVMStat parses memory usage from `vm_stat` output, optionally
// followed by a `sysctl hw.memsize` line giving the true total. Without it
// the total is approximated from the page counters, which undercounts
// kernel reservations.
func ParseVMStat(output string) (*metrics.MemoryMetrics, error) {
	// 4096 on Intel, 16384 on Apple Silicon; the header states which.
	pageSize := int64(4096)
	var memsize int64

	var pagesActive, pagesWired, pagesInactive, pagesSpeculative, pagesFree int64
	var pagesCompressed, pagesPurgeable, pagesCached int64
	foundPages := 0

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		// "Mach Virtual Memory Statistics: (page size of 16384 bytes)"
		if idx := strings.Index(line, "page size of"); idx != -1 {
			fields := strings.Fields(line[idx+len("page size of"):])
			if len(fields) > 0 {
				if size, err := Int(fields[0]); err == nil {
					pageSize = size
				}
			}
			continue
		}

		// "hw.memsize: 17179869184" from the batched sysctl call.
		if strings.HasPrefix(line, "hw.memsize:") {
			if v, err := Int(strings.TrimPrefix(line, "hw.memsize:")); err == nil {
				memsize = v
			}
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:colonIdx])
		val, err := Int(strings.TrimSuffix(strings.TrimSpace(line[colonIdx+1:]), "."))
		if err != nil {
			continue
		}

		switch key {
		case "Pages active":
			pagesActive = val
			foundPages++
		case "Pages wired down":
			pagesWired = val
			foundPages++
		case "Pages inactive":
			pagesInactive = val
			foundPages++
		case "Pages speculative":
			pagesSpeculative = val
			foundPages++
		case "Pages free":
			pagesFree = val
			foundPages++
		case "Pages occupied by compressor":
			pagesCompressed = val
			foundPages++
		case "Pages purgeable":
			pagesPurgeable = val
			foundPages++
		case "File-backed pages":
			pagesCached = val
			foundPages++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning vm_stat output: %w", err)
	}
	if foundPages < 2 {
		return nil, fmt.Errorf("insufficient page counters in vm_stat output %q", snippet(output))
	}

	used := (pagesActive + pagesWired + pagesCompressed + pagesSpeculative) * pageSize
	available := (pagesFree + pagesInactive + pagesPurgeable) * pageSize

	// Approximate the total from the page counters only when the batched
	// sysctl section is missing; the sum undercounts kernel reservations.
	total := memsize
	if total == 0 {
		total = used + available
	} else {
		available = total - used
	}

	return &metrics.MemoryMetrics{
		TotalBytes:     total,
		UsedBytes:      used,
		AvailableBytes: available,
		CachedBytes:    pagesCached * pageSize,
		Percent:        percentUsed(used, total),
	}, nil
}

// ParseNetstatIB parses `netstat -ib` output. Only the link-level row of
// each interface carries byte totals; per-protocol rows are skipped.
func ParseNetstatIB(output string) ([]metrics.NetworkInterface, error) {
	var interfaces []metrics.NetworkInterface
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Name") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}

		name := fields[0]
		if seen[name] {
			continue
		}

		isLinkRow := false
		for _, f := range fields {
			if strings.HasPrefix(f, "<Link#") {
				isLinkRow = true
				break
			}
		}
		if !isLinkRow {
			continue
		}
		seen[name] = true

		// Column positions drift with missing addresses, so collect the
		// numeric fields: mtu ipkts ierrs ibytes opkts oerrs obytes coll.
		var numeric []int64
		for i := 1; i < len(fields); i++ {
			if v, err := Int(fields[i]); err == nil {
				numeric = append(numeric, v)
			}
		}
		if len(numeric) < 7 {
			continue
		}

		interfaces = append(interfaces, metrics.NetworkInterface{
			Name:       name,
			PacketsIn:  numeric[1],
			BytesIn:    numeric[3],
			PacketsOut: numeric[4],
			BytesOut:   numeric[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning netstat output: %w", err)
	}
	if len(interfaces) == 0 {
		return nil, fmt.Errorf("no link-level rows found in netstat output %q", snippet(output))
	}
	return interfaces, nil
}

// ParseDarwinSystem parses the batched system probe: uname -srm, hostname,
// sysctl -n hw.ncpu, sysctl -n kern.boottime, and date +%s, separated by
// "---". Uptime is the distance between the remote clock and the boot time,
// so the parse stays deterministic.
func ParseDarwinSystem(output string) (*metrics.SystemInfo, error) {
	sections := SplitSections(output)
	if len(sections) < 2 || sections[0] == "" || sections[1] == "" {
		return nil, fmt.Errorf("system probe output %q is missing uname or hostname", snippet(output))
	}

	info := &metrics.SystemInfo{Hostname: sections[1]}
	parseUname(sections[0], info)

	if len(sections) > 2 {
		if cores, err := Int(sections[2]); err == nil {
			info.Cores = int(cores)
		}
	}

	// "{ sec = 1692786000, usec = 0 } Wed Aug 23 08:20:00 2026"
	var bootSec int64
	if len(sections) > 3 {
		if idx := strings.Index(sections[3], "sec ="); idx != -1 {
			rest := strings.TrimSpace(sections[3][idx+len("sec ="):])
			end := strings.IndexAny(rest, ",}")
			if end == -1 {
				end = len(rest)
			}
			if v, err := Int(rest[:end]); err == nil {
				bootSec = v
			}
		}
	}
	if len(sections) > 4 && bootSec > 0 {
		if now, err := Int(sections[4]); err == nil && now > bootSec {
			info.Uptime = time.Duration(now-bootSec) * time.Second
		}
	}

	return info, nil
}

package parsers

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/metrics"
)

// ParseProcStat parses CPU counters from /proc/stat, optionally followed by
// a "---" section holding /proc/loadavg. The returned stats carry cumulative
// jiffy counters for delta-based usage and a since-boot percentage as the
// initial reading.
func ParseProcStat(output string) (*metrics.CPUStats, error) {
	sections := SplitSections(output)
	stats := &metrics.CPUStats{}

	var total metrics.CoreTimes
	var perCore []metrics.CoreTimes
	foundAggregate := false

	scanner := bufio.NewScanner(strings.NewReader(sections[0]))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		times, err := coreTimesFromFields(fields[1:])
		if err != nil {
			continue
		}
		if fields[0] == "cpu" {
			total = times
			foundAggregate = true
		} else {
			perCore = append(perCore, times)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning /proc/stat: %w", err)
	}
	if !foundAggregate {
		return nil, fmt.Errorf("no cpu line found in /proc/stat output %q", snippet(output))
	}

	stats.Total = total
	stats.PerCoreTimes = perCore
	stats.HasTimes = true

	// Since-boot percentages; the collector refines these by differencing
	// consecutive samples.
	stats.Percent = total.BusyPercent(metrics.CoreTimes{})
	for _, ct := range perCore {
		stats.PerCore = append(stats.PerCore, ct.BusyPercent(metrics.CoreTimes{}))
	}

	if len(sections) > 1 {
		parseLoadAvg(sections[1], &stats.LoadAvg)
	}
	return stats, nil
}

// coreTimesFromFields sums one cpu line of /proc/stat. Fields are
// user nice system idle iowait irq softirq steal [guest guest_nice];
// idle time is idle plus iowait.
func coreTimesFromFields(fields []string) (metrics.CoreTimes, error) {
	var ct metrics.CoreTimes
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return metrics.CoreTimes{}, err
		}
		ct.Total += v
		if i == 3 || i == 4 {
			ct.Idle += v
		}
	}
	return ct, nil
}

func parseLoadAvg(s string, into *[3]float64) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 3 {
		return
	}
	for i := 0; i < 3; i++ {
		if v, err := Float(fields[i]); err == nil {
			into[i] = v
		}
	}
}

// ParseTopCPU parses aggregate CPU usage from the header of `top -bn1`.
// Usage is 100 minus the idle share from the "%Cpu(s)" line; load averages
// come from the "load average:" tail of the first line.
func ParseTopCPU(output string) (*metrics.CPUStats, error) {
	stats := &metrics.CPUStats{Percent: -1}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		if idx := strings.Index(line, "load average:"); idx != -1 {
			parseLoadList(line[idx+len("load average:"):], &stats.LoadAvg)
		}

		if strings.Contains(line, "Cpu(s)") {
			if idle, ok := topFieldValue(line, "id"); ok {
				stats.Percent = 100 - idle
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning top output: %w", err)
	}

	if stats.Percent < 0 {
		return nil, fmt.Errorf("no Cpu(s) line found in top output %q", snippet(output))
	}
	if stats.Percent > 100 {
		stats.Percent = 100
	}
	return stats, nil
}

// topFieldValue extracts the value carrying the given label from a
// "%Cpu(s):  5.9 us,  2.4 sy, ... 91.2 id, ..." line. Older procps glues
// value and label together ("99.4%id"); locales may print the value with a
// decimal comma, so the line is walked by whitespace, not split on commas.
func topFieldValue(line, label string) (float64, bool) {
	if idx := strings.Index(line, ":"); idx != -1 {
		line = line[idx+1:]
	}
	fields := strings.Fields(line)
	for i, raw := range fields {
		f := strings.TrimSuffix(raw, ",")
		if strings.HasSuffix(f, "%"+label) {
			if v, err := Float(strings.TrimSuffix(f, "%"+label)); err == nil {
				return v, true
			}
		}
		if f == label && i > 0 {
			if v, err := Float(strings.TrimSuffix(fields[i-1], ",")); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func parseLoadList(s string, into *[3]float64) {
	parts := strings.Split(s, ",")
	for i := 0; i < 3 && i < len(parts); i++ {
		if v, err := Float(parts[i]); err == nil {
			into[i] = v
		}
	}
}

// ParseSar parses aggregate CPU usage from `sar -u 1 1` output, preferring
// the Average line. Usage is 100 minus the trailing %idle column.
func ParseSar(output string) (*metrics.CPUStats, error) {
	var dataLine string

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		if strings.HasPrefix(fields[0], "Average") {
			dataLine = line
			break
		}
		// Keep the last sample line as a fallback for truncated output.
		if fields[1] == "all" || fields[0] == "all" {
			dataLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning sar output: %w", err)
	}
	if dataLine == "" {
		return nil, fmt.Errorf("no sample line found in sar output %q", snippet(output))
	}

	fields := strings.Fields(dataLine)
	idle, err := Float(fields[len(fields)-1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse sar idle column: %w", err)
	}

	percent := 100 - idle
	if percent < 0 {
		percent = 0
	}
	return &metrics.CPUStats{Percent: percent}, nil
}

// ParseFree parses `free -b` output. Columns are resolved through the
// header because old and new versions of free print the same number of
// columns with different meanings: the last column is "cached" on old
// procps and "available" on current ones.
func ParseFree(output string) (*metrics.MemoryMetrics, error) {
	var header []string

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if !strings.HasPrefix(fields[0], "Mem") {
			last := fields[len(fields)-1]
			if header == nil && (last == "available" || last == "cached") {
				header = fields
			}
			continue
		}

		values := fields[1:]
		col := func(name string, fallback int) (int64, bool) {
			idx := fallback
			for i, h := range header {
				if h == name {
					idx = i
					break
				}
			}
			if idx < 0 || idx >= len(values) {
				return 0, false
			}
			v, err := Int(values[idx])
			return v, err == nil
		}

		total, ok := col("total", 0)
		if !ok || total == 0 {
			return nil, fmt.Errorf("failed to parse total memory from free line %q", line)
		}
		used, ok := col("used", 1)
		if !ok {
			return nil, fmt.Errorf("failed to parse used memory from free line %q", line)
		}

		m := &metrics.MemoryMetrics{
			TotalBytes: total,
			UsedBytes:  used,
			Percent:    percentUsed(used, total),
		}

		if avail, ok := col("available", -1); ok {
			m.AvailableBytes = avail
		} else if free, ok := col("free", 2); ok {
			m.AvailableBytes = free
		}

		if cached, ok := col("buff/cache", -1); ok {
			m.CachedBytes = cached
		} else if cached, ok := col("cached", -1); ok {
			m.CachedBytes = cached
			if buffers, ok := col("buffers", -1); ok {
				m.CachedBytes += buffers
			}
		}
		return m, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning free output: %w", err)
	}
	return nil, fmt.Errorf("no Mem line found in free output %q", snippet(output))
}

// ParseMeminfo parses /proc/meminfo. Values are reported in kB.
func ParseMeminfo(output string) (*metrics.MemoryMetrics, error) {
	var memTotal, memFree, memAvailable, buffers, cached int64
	foundFields := 0

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		key := strings.TrimSuffix(parts[0], ":")
		val, err := Int(parts[1])
		if err != nil {
			continue
		}
		valBytes := val * 1024

		switch key {
		case "MemTotal":
			memTotal = valBytes
			foundFields++
		case "MemFree":
			memFree = valBytes
			foundFields++
		case "MemAvailable":
			memAvailable = valBytes
			foundFields++
		case "Buffers":
			buffers = valBytes
			foundFields++
		case "Cached":
			cached = valBytes
			foundFields++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning /proc/meminfo: %w", err)
	}

	if foundFields < 2 || memTotal == 0 {
		return nil, fmt.Errorf("insufficient memory info in /proc/meminfo output %q", snippet(output))
	}

	// Kernels before 3.14 have no MemAvailable; approximate it.
	if memAvailable == 0 {
		memAvailable = memFree + buffers + cached
	}

	used := memTotal - memFree - buffers - cached
	if used < 0 {
		used = memTotal - memAvailable
	}

	return &metrics.MemoryMetrics{
		TotalBytes:     memTotal,
		UsedBytes:      used,
		AvailableBytes: memAvailable,
		CachedBytes:    cached + buffers,
		Percent:        percentUsed(used, memTotal),
	}, nil
}

// ParseDFWithType parses `df -B1 -T -P` output, where sizes are already in
// bytes and the second column names the filesystem type.
func ParseDFWithType(output string) ([]metrics.DiskUsage, error) {
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
		if len(fields) < 7 {
			continue
		}

		total, err1 := Int(fields[2])
		used, err2 := Int(fields[3])
		avail, err3 := Int(fields[4])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		disks = append(disks, metrics.DiskUsage{
			Filesystem:     fields[0],
			FSType:         fields[1],
			TotalBytes:     total,
			UsedBytes:      used,
			AvailableBytes: avail,
			Percent:        percentUsed(used, total),
			// Mount point is the last column and may contain spaces.
			Mount: strings.Join(fields[6:], " "),
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

// ParseNetDev parses /proc/net/dev. Counters that fail to parse degrade to
// zero rather than discarding the interface.
func ParseNetDev(output string) ([]metrics.NetworkInterface, error) {
	var interfaces []metrics.NetworkInterface

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		// Data rows look like "  eth0: 12345 67 0 0 ... | 89012 34 ...".
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		if name == "" || strings.Contains(name, "|") {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) < 10 {
			continue
		}

		iface := metrics.NetworkInterface{Name: name}
		if v, err := Int(fields[0]); err == nil {
			iface.BytesIn = v
		}
		if v, err := Int(fields[1]); err == nil {
			iface.PacketsIn = v
		}
		if v, err := Int(fields[8]); err == nil {
			iface.BytesOut = v
		}
		if v, err := Int(fields[9]); err == nil {
			iface.PacketsOut = v
		}
		interfaces = append(interfaces, iface)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning /proc/net/dev: %w", err)
	}
	if len(interfaces) == 0 {
		return nil, fmt.Errorf("no interfaces found in /proc/net/dev output %q", snippet(output))
	}
	return interfaces, nil
}

// ParseLinuxSystem parses the batched system probe: uname -srm, hostname,
// nproc, and /proc/uptime, separated by "---". The trailing sections are
// optional so a truncated probe still yields the identity fields.
func ParseLinuxSystem(output string) (*metrics.SystemInfo, error) {
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
	if len(sections) > 3 {
		uptimeFields := strings.Fields(sections[3])
		if len(uptimeFields) > 0 {
			if secs, err := Float(uptimeFields[0]); err == nil {
				info.Uptime = time.Duration(secs * float64(time.Second))
			}
		}
	}
	return info, nil
}

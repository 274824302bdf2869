package parsers

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/internal/metrics"
)

// Windows candidates run PowerShell and pipe through ConvertTo-Json, so
// most parsers here decode JSON rather than scrape columns. Legacy wmic
// fallbacks use its Key=Value output format.

type counterSample struct {
	InstanceName string  `json:"InstanceName"`
	CookedValue  float64 `json:"CookedValue"`
}

// ParseCounterCPU parses Get-Counter processor-time samples. The "_total"
// instance is the aggregate; numeric instances are individual cores.
func ParseCounterCPU(output string) (*metrics.CPUStats, error) {
	samples, err := decodeJSONList[counterSample](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode counter samples: %w", err)
	}

	stats := &metrics.CPUStats{Percent: -1}
	type core struct {
		index int
		value float64
	}
	var cores []core

	for _, s := range samples {
		name := strings.TrimSpace(s.InstanceName)
		if strings.EqualFold(name, "_total") {
			stats.Percent = s.CookedValue
			continue
		}
		if idx, err := strconv.Atoi(name); err == nil {
			cores = append(cores, core{index: idx, value: s.CookedValue})
		}
	}

	sort.Slice(cores, func(i, j int) bool { return cores[i].index < cores[j].index })
	for _, c := range cores {
		stats.PerCore = append(stats.PerCore, c.value)
	}

	if stats.Percent < 0 {
		if len(stats.PerCore) == 0 {
			return nil, fmt.Errorf("no processor instances found in counter output")
		}
		var sum float64
		for _, v := range stats.PerCore {
			sum += v
		}
		stats.Percent = sum / float64(len(stats.PerCore))
	}
	return stats, nil
}

type cimProcessor struct {
	LoadPercentage            *float64 `json:"LoadPercentage"`
	NumberOfLogicalProcessors int      `json:"NumberOfLogicalProcessors"`
}

// ParseCIMLoadPercentage parses Win32_Processor load. Multi-socket hosts
// return one instance per package; the loads are averaged. LoadPercentage
// is null on some hypervisors, which counts as zero load, not a failure.
func ParseCIMLoadPercentage(output string) (*metrics.CPUStats, error) {
	procs, err := decodeJSONList[cimProcessor](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode processor instances: %w", err)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processor instances in output")
	}

	var sum float64
	cores := 0
	for _, p := range procs {
		if p.LoadPercentage != nil {
			sum += *p.LoadPercentage
		}
		cores += p.NumberOfLogicalProcessors
	}
	return &metrics.CPUStats{Percent: sum / float64(len(procs)), Cores: cores}, nil
}

type cimOperatingSystemMemory struct {
	TotalVisibleMemorySize int64 `json:"TotalVisibleMemorySize"`
	FreePhysicalMemory     int64 `json:"FreePhysicalMemory"`
}

// ParseCIMMemory parses Win32_OperatingSystem memory figures, which are
// reported in kilobytes.
func ParseCIMMemory(output string) (*metrics.MemoryMetrics, error) {
	list, err := decodeJSONList[cimOperatingSystemMemory](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode operating system instance: %w", err)
	}
	if len(list) == 0 || list[0].TotalVisibleMemorySize == 0 {
		return nil, fmt.Errorf("no memory figures in output")
	}

	total := list[0].TotalVisibleMemorySize * 1024
	free := list[0].FreePhysicalMemory * 1024
	used := total - free

	return &metrics.MemoryMetrics{
		TotalBytes:     total,
		UsedBytes:      used,
		AvailableBytes: free,
		Percent:        percentUsed(used, total),
	}, nil
}

// parseWmicValues parses wmic /value output, which prints one Key=Value
// pair per line with blank lines between instances.
func parseWmicValues(output string) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return values
}

// ParseWmicMemory parses `wmic OS get ... /value` output as a legacy
// fallback for hosts where CIM cmdlets are disabled.
func ParseWmicMemory(output string) (*metrics.MemoryMetrics, error) {
	values := parseWmicValues(output)

	total, err := Int(values["TotalVisibleMemorySize"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse total memory: %w", err)
	}
	free, err := Int(values["FreePhysicalMemory"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse free memory: %w", err)
	}

	totalBytes := total * 1024
	usedBytes := (total - free) * 1024
	return &metrics.MemoryMetrics{
		TotalBytes:     totalBytes,
		UsedBytes:      usedBytes,
		AvailableBytes: free * 1024,
		Percent:        percentUsed(usedBytes, totalBytes),
	}, nil
}

type cimLogicalDisk struct {
	DeviceID   string `json:"DeviceID"`
	Size       int64  `json:"Size"`
	FreeSpace  int64  `json:"FreeSpace"`
	FileSystem string `json:"FileSystem"`
}

// ParseCIMDisk parses Win32_LogicalDisk instances. The query filters on
// DriveType=3 so only fixed disks arrive here.
func ParseCIMDisk(output string) ([]metrics.DiskUsage, error) {
	list, err := decodeJSONList[cimLogicalDisk](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode logical disks: %w", err)
	}

	var disks []metrics.DiskUsage
	for _, d := range list {
		if d.DeviceID == "" || d.Size == 0 {
			continue
		}
		used := d.Size - d.FreeSpace
		disks = append(disks, metrics.DiskUsage{
			Filesystem:     d.DeviceID,
			Mount:          d.DeviceID + `\`,
			FSType:         d.FileSystem,
			TotalBytes:     d.Size,
			UsedBytes:      used,
			AvailableBytes: d.FreeSpace,
			Percent:        percentUsed(used, d.Size),
		})
	}
	if len(disks) == 0 {
		return nil, fmt.Errorf("no fixed disks found in output")
	}
	return disks, nil
}

type psDrive struct {
	Name string `json:"Name"`
	Used *int64 `json:"Used"`
	Free *int64 `json:"Free"`
}

// ParseGetPSDrive parses Get-PSDrive filesystem drives. Drives without
// media report null Used/Free and are skipped.
func ParseGetPSDrive(output string) ([]metrics.DiskUsage, error) {
	list, err := decodeJSONList[psDrive](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode drives: %w", err)
	}

	var disks []metrics.DiskUsage
	for _, d := range list {
		if d.Name == "" || d.Used == nil || d.Free == nil {
			continue
		}
		total := *d.Used + *d.Free
		if total == 0 {
			continue
		}
		disks = append(disks, metrics.DiskUsage{
			Filesystem:     d.Name + ":",
			Mount:          d.Name + `:\`,
			TotalBytes:     total,
			UsedBytes:      *d.Used,
			AvailableBytes: *d.Free,
			Percent:        percentUsed(*d.Used, total),
		})
	}
	if len(disks) == 0 {
		return nil, fmt.Errorf("no usable drives found in output")
	}
	return disks, nil
}

type netAdapterStats struct {
	Name          string `json:"Name"`
	ReceivedBytes int64  `json:"ReceivedBytes"`
	SentBytes     int64  `json:"SentBytes"`
}

// ParseNetAdapterStats parses Get-NetAdapterStatistics output. The byte
// counters are cumulative since interface up.
func ParseNetAdapterStats(output string) ([]metrics.NetworkInterface, error) {
	list, err := decodeJSONList[netAdapterStats](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode adapter statistics: %w", err)
	}

	var interfaces []metrics.NetworkInterface
	for _, a := range list {
		if a.Name == "" {
			continue
		}
		interfaces = append(interfaces, metrics.NetworkInterface{
			Name:     a.Name,
			BytesIn:  a.ReceivedBytes,
			BytesOut: a.SentBytes,
		})
	}
	if len(interfaces) == 0 {
		return nil, fmt.Errorf("no adapters found in output")
	}
	return interfaces, nil
}

type cimNetPerf struct {
	Name                  string `json:"Name"`
	BytesReceivedPersec   int64  `json:"BytesReceivedPersec"`
	BytesSentPersec       int64  `json:"BytesSentPersec"`
	PacketsReceivedPersec int64  `json:"PacketsReceivedPersec"`
	PacketsSentPersec     int64  `json:"PacketsSentPersec"`
}

// ParseCIMNetPerfRaw parses Win32_PerfRawData_Tcpip_NetworkInterface
// instances. Despite the Persec suffix, raw perf counters are cumulative
// totals, exactly what rate computation wants.
func ParseCIMNetPerfRaw(output string) ([]metrics.NetworkInterface, error) {
	list, err := decodeJSONList[cimNetPerf](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode interface counters: %w", err)
	}

	var interfaces []metrics.NetworkInterface
	for _, n := range list {
		if n.Name == "" {
			continue
		}
		interfaces = append(interfaces, metrics.NetworkInterface{
			Name:       n.Name,
			BytesIn:    n.BytesReceivedPersec,
			BytesOut:   n.BytesSentPersec,
			PacketsIn:  n.PacketsReceivedPersec,
			PacketsOut: n.PacketsSentPersec,
		})
	}
	if len(interfaces) == 0 {
		return nil, fmt.Errorf("no interfaces found in output")
	}
	return interfaces, nil
}

type cimProcessPerf struct {
	IDProcess            int     `json:"IDProcess"`
	Name                 string  `json:"Name"`
	PercentProcessorTime float64 `json:"PercentProcessorTime"`
}

// ParseCIMProcessPerf parses Win32_PerfFormattedData_PerfProc_Process
// instances, skipping the Idle and _Total pseudo-processes. Processor time
// can exceed 100 on multi-core hosts, same as ps on Linux.
func ParseCIMProcessPerf(output string) ([]metrics.ProcessInfo, error) {
	list, err := decodeJSONList[cimProcessPerf](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode process instances: %w", err)
	}

	var procs []metrics.ProcessInfo
	for _, p := range list {
		if p.Name == "" || p.Name == "Idle" || p.Name == "_Total" {
			continue
		}
		procs = append(procs, metrics.ProcessInfo{
			PID:  p.IDProcess,
			Name: p.Name,
			CPU:  p.PercentProcessorTime,
		})
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processes found in output")
	}
	return procs, nil
}

type psProcess struct {
	ID          int    `json:"Id"`
	ProcessName string `json:"ProcessName"`
}

// ParseGetProcess parses Get-Process output as a last-resort process list.
// Get-Process reports cumulative CPU seconds rather than a percentage, so
// usage is left at zero; name and pid are still worth having.
func ParseGetProcess(output string) ([]metrics.ProcessInfo, error) {
	list, err := decodeJSONList[psProcess](output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode process list: %w", err)
	}

	var procs []metrics.ProcessInfo
	for _, p := range list {
		if p.ProcessName == "" {
			continue
		}
		procs = append(procs, metrics.ProcessInfo{PID: p.ID, Name: p.ProcessName})
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("no processes found in output")
	}
	return procs, nil
}

type cimOSInfo struct {
	Caption        string `json:"Caption"`
	Version        string `json:"Version"`
	CSName         string `json:"CSName"`
	OSArchitecture string `json:"OSArchitecture"`
	LastBootUpTime string `json:"LastBootUpTime"`
}

type cimComputerSystem struct {
	NumberOfLogicalProcessors int `json:"NumberOfLogicalProcessors"`
}

// ParseCIMSystem parses the batched Windows system probe: Win32_OperatingSystem,
// Win32_ComputerSystem, and the remote clock in Unix milliseconds, separated
// by "---". Uptime comes from the gap between the remote clock and
// LastBootUpTime so both timestamps share one clock.
func ParseCIMSystem(output string) (*metrics.SystemInfo, error) {
	sections := SplitSections(output)
	if len(sections) == 0 || sections[0] == "" {
		return nil, fmt.Errorf("system probe output is empty")
	}

	osList, err := decodeJSONList[cimOSInfo](sections[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode operating system instance: %w", err)
	}
	if len(osList) == 0 || osList[0].CSName == "" {
		return nil, fmt.Errorf("no operating system instance in output")
	}

	info := &metrics.SystemInfo{
		Hostname: osList[0].CSName,
		OS:       strings.TrimSpace(osList[0].Caption),
		Kernel:   osList[0].Version,
		Arch:     osList[0].OSArchitecture,
	}
	if info.OS == "" {
		info.OS = "Windows"
	}

	if len(sections) > 1 && sections[1] != "" {
		if csList, err := decodeJSONList[cimComputerSystem](sections[1]); err == nil && len(csList) > 0 {
			info.Cores = csList[0].NumberOfLogicalProcessors
		}
	}

	if len(sections) > 2 {
		if boot, err := parseCIMDate(osList[0].LastBootUpTime); err == nil {
			if nowMs, err := Int(sections[2]); err == nil {
				now := time.UnixMilli(nowMs)
				if now.After(boot) {
					info.Uptime = now.Sub(boot)
				}
			}
		}
	}

	return info, nil
}

// parseCIMDate parses the date formats ConvertTo-Json produces for CIM
// DateTime properties: "/Date(ms)/" from Windows PowerShell 5.1, ISO 8601
// from PowerShell 7, and raw DMTF ("20260823082000.000000+120") when the
// value bypassed JSON serialization.
func parseCIMDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if strings.HasPrefix(s, "/Date(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "/Date("), ")/")
		ms, err := Int(inner)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad /Date()/ value %q: %w", s, err)
		}
		return time.UnixMilli(ms), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	if len(s) >= 14 {
		if t, err := time.Parse("20060102150405", s[:14]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

// ParseWindowsHostname wraps a bare `hostname` reply as minimal system info.
func ParseWindowsHostname(output string) (*metrics.SystemInfo, error) {
	name := strings.TrimSpace(output)
	if name == "" {
		return nil, fmt.Errorf("empty hostname output")
	}
	return &metrics.SystemInfo{Hostname: name, OS: "Windows"}, nil
}

// Package metrics defines the data types that flow out of a collection
// cycle: the per-kind payloads produced by output parsers and the snapshot
// that aggregates them. Everything here is plain data.
package metrics

import (
	"fmt"
	"time"
)

// Kind identifies one collectable metric family.
type Kind string

const (
	KindCPU       Kind = "cpu"
	KindMemory    Kind = "memory"
	KindDisk      Kind = "disk"
	KindNetwork   Kind = "network"
	KindProcesses Kind = "processes"
	KindSystem    Kind = "system"
)

// AllKinds returns every metric kind in display order.
func AllKinds() []Kind {
	return []Kind{KindCPU, KindMemory, KindDisk, KindNetwork, KindProcesses, KindSystem}
}

// ParseKind converts a user-supplied name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown metric kind %q", s)
}

// CoreTimes holds cumulative busy/idle counters for one core, in whatever
// unit the OS reports (jiffies on Linux). Percentages come from differencing
// two samples.
type CoreTimes struct {
	Total uint64 `json:"total"`
	Idle  uint64 `json:"idle"`
}

// BusyPercent returns the busy share of the interval between an earlier
// sample and this one. Falls back to the since-boot share when prev is the
// zero value, and to 0 when the counters did not advance.
func (c CoreTimes) BusyPercent(prev CoreTimes) float64 {
	dTotal := int64(c.Total) - int64(prev.Total)
	dIdle := int64(c.Idle) - int64(prev.Idle)
	if dTotal <= 0 {
		return 0
	}
	busy := float64(dTotal-dIdle) / float64(dTotal) * 100
	if busy < 0 {
		return 0
	}
	if busy > 100 {
		return 100
	}
	return busy
}

// CPUStats is what a CPU candidate yields: instantaneous percentages when
// the command measures them itself (top, sar, Get-Counter), plus cumulative
// counters when the command reads them raw (/proc/stat). The collector
// prefers differencing counters across consecutive samples and uses the
// direct percentages otherwise.
type CPUStats struct {
	Percent float64    `json:"percent"`
	PerCore []float64  `json:"per_core,omitempty"`
	Cores   int        `json:"cores,omitempty"`
	LoadAvg [3]float64 `json:"load_avg"`

	Total        CoreTimes   `json:"-"`
	PerCoreTimes []CoreTimes `json:"-"`
	HasTimes     bool        `json:"-"`
}

// CPUMetrics is the snapshot form of CPU usage.
type CPUMetrics struct {
	Percent float64    `json:"percent"`
	PerCore []float64  `json:"per_core,omitempty"`
	Cores   int        `json:"cores"`
	LoadAvg [3]float64 `json:"load_avg"`
}

// MemoryMetrics describes physical memory usage in bytes.
type MemoryMetrics struct {
	TotalBytes     int64   `json:"total_bytes"`
	UsedBytes      int64   `json:"used_bytes"`
	AvailableBytes int64   `json:"available_bytes"`
	CachedBytes    int64   `json:"cached_bytes,omitempty"`
	Percent        float64 `json:"percent"`
}

// DiskUsage describes one mounted filesystem.
type DiskUsage struct {
	Filesystem     string  `json:"filesystem"`
	Mount          string  `json:"mount"`
	FSType         string  `json:"fstype,omitempty"`
	TotalBytes     int64   `json:"total_bytes"`
	UsedBytes      int64   `json:"used_bytes"`
	AvailableBytes int64   `json:"available_bytes"`
	Percent        float64 `json:"percent"`
}

// NetworkInterface holds cumulative I/O counters for a single interface.
type NetworkInterface struct {
	Name       string `json:"name"`
	BytesIn    int64  `json:"bytes_in"`
	BytesOut   int64  `json:"bytes_out"`
	PacketsIn  int64  `json:"packets_in"`
	PacketsOut int64  `json:"packets_out"`
}

// IsLoopback reports whether the interface is a loopback device, which is
// excluded from aggregate throughput.
func (n NetworkInterface) IsLoopback() bool {
	return n.Name == "lo" || n.Name == "lo0" ||
		n.Name == "Loopback Pseudo-Interface 1"
}

// NetworkMetrics is the snapshot form of network activity: aggregate
// counters and rates over the previous sampling interval, plus the raw
// per-interface counters. Loopback traffic is excluded from aggregates.
type NetworkMetrics struct {
	RxBytes       int64              `json:"rx_bytes"`
	TxBytes       int64              `json:"tx_bytes"`
	RxBytesPerSec float64            `json:"rx_bytes_per_sec"`
	TxBytesPerSec float64            `json:"tx_bytes_per_sec"`
	Interfaces    []NetworkInterface `json:"interfaces,omitempty"`
}

// ProcessInfo describes one remote process.
type ProcessInfo struct {
	PID    int     `json:"pid"`
	User   string  `json:"user,omitempty"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu_percent"`
	Memory float64 `json:"mem_percent"`
	Status string  `json:"status,omitempty"`
}

// SystemInfo holds static facts about the remote host.
type SystemInfo struct {
	Hostname string        `json:"hostname"`
	OS       string        `json:"os"`
	Kernel   string        `json:"kernel,omitempty"`
	Arch     string        `json:"arch,omitempty"`
	Cores    int           `json:"cores"`
	Uptime   time.Duration `json:"uptime_ns"`
}

// Snapshot is the result of one collection cycle. Any subset of the metric
// fields may be nil or empty; Errors says why for each kind that is missing,
// and Sources records which command produced each kind that is present.
type Snapshot struct {
	Target string    `json:"target"`
	Taken  time.Time `json:"taken"`

	CPU       *CPUMetrics     `json:"cpu,omitempty"`
	Memory    *MemoryMetrics  `json:"memory,omitempty"`
	Disks     []DiskUsage     `json:"disks,omitempty"`
	Network   *NetworkMetrics `json:"network,omitempty"`
	Processes []ProcessInfo   `json:"processes,omitempty"`
	System    *SystemInfo     `json:"system,omitempty"`

	Sources map[Kind]string `json:"sources,omitempty"`
	Errors  map[Kind]string `json:"errors,omitempty"`
}

// Has reports whether the snapshot carries data for the given kind.
func (s *Snapshot) Has(kind Kind) bool {
	switch kind {
	case KindCPU:
		return s.CPU != nil
	case KindMemory:
		return s.Memory != nil
	case KindDisk:
		return len(s.Disks) > 0
	case KindNetwork:
		return s.Network != nil
	case KindProcesses:
		return len(s.Processes) > 0
	case KindSystem:
		return s.System != nil
	default:
		return false
	}
}

// Complete reports whether every requested kind yielded data.
func (s *Snapshot) Complete(kinds []Kind) bool {
	for _, k := range kinds {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

package collector

import (
	"fmt"

	"github.com/vigil-dev/vigil/internal/collector/parsers"
	"github.com/vigil-dev/vigil/internal/dialect"
	"github.com/vigil-dev/vigil/internal/metrics"
)

// Candidate is one way to read a metric on a given dialect: the command to
// run and the parser for its output. Candidates for the same metric are
// tried in table order until one parses.
type Candidate struct {
	Name    string
	Command string
	Parse   func(output string) (any, error)
}

// asAny adapts a typed parser to the Candidate signature.
func asAny[T any](parse func(string) (T, error)) func(string) (any, error) {
	return func(output string) (any, error) {
		v, err := parse(output)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// psCommand wraps a script for the stock Windows shell. The full prefix
// keeps one command shape working over both SSH (where the default shell
// is cmd.exe) and WinRM. Scripts must use single quotes internally.
func psCommand(script string) string {
	return `powershell -NoProfile -NonInteractive -Command "` + script + `"`
}

// catalog maps every dialect and metric kind to its fallback chain. A nil
// entry means the combination is unsupported on that dialect: the metric
// reports permanently unavailable rather than erroring. Every cell is
// present so the table is fully enumerable.
var catalog = map[dialect.Dialect]map[metrics.Kind][]Candidate{
	dialect.Linux: {
		metrics.KindCPU: {
			{
				Name:    "proc-stat",
				Command: "cat /proc/stat; echo ---; cat /proc/loadavg",
				Parse:   asAny(parsers.ParseProcStat),
			},
			{
				Name:    "top",
				Command: "top -bn1 | head -5",
				Parse:   asAny(parsers.ParseTopCPU),
			},
			{
				Name:    "sar",
				Command: "sar -u 1 1",
				Parse:   asAny(parsers.ParseSar),
			},
		},
		metrics.KindMemory: {
			{
				Name:    "free",
				Command: "free -b",
				Parse:   asAny(parsers.ParseFree),
			},
			{
				Name:    "meminfo",
				Command: "cat /proc/meminfo",
				Parse:   asAny(parsers.ParseMeminfo),
			},
		},
		metrics.KindDisk: {
			{
				Name:    "df-gnu",
				Command: "df -B1 -T -P",
				Parse:   asAny(parsers.ParseDFWithType),
			},
			{
				Name:    "df-posix",
				Command: "df -P -k",
				Parse:   asAny(parsers.ParseDFPosix),
			},
		},
		metrics.KindNetwork: {
			{
				Name:    "proc-net-dev",
				Command: "cat /proc/net/dev",
				Parse:   asAny(parsers.ParseNetDev),
			},
		},
		metrics.KindProcesses: {
			{
				Name:    "ps-sorted",
				Command: "ps aux --sort=-%cpu | head -21",
				Parse:   asAny(parsers.ParsePSAux),
			},
			{
				Name:    "ps",
				Command: "ps aux | head -21",
				Parse:   asAny(parsers.ParsePSAux),
			},
		},
		metrics.KindSystem: {
			{
				Name:    "system-probe",
				Command: "uname -srm; echo ---; hostname; echo ---; nproc; echo ---; cat /proc/uptime",
				Parse:   asAny(parsers.ParseLinuxSystem),
			},
		},
	},

	dialect.MacOS: {
		metrics.KindCPU: {
			{
				Name:    "top",
				Command: "top -l 1 -n 0",
				Parse:   asAny(parsers.ParseTopDarwin),
			},
		},
		metrics.KindMemory: {
			{
				Name:    "vm-stat",
				Command: "vm_stat; sysctl hw.memsize",
				Parse:   asAny(parsers.ParseVMStat),
			},
		},
		metrics.KindDisk: {
			{
				Name:    "df-posix",
				Command: "df -P -k",
				Parse:   asAny(parsers.ParseDFPosix),
			},
		},
		metrics.KindNetwork: {
			{
				Name:    "netstat",
				Command: "netstat -ib",
				Parse:   asAny(parsers.ParseNetstatIB),
			},
		},
		metrics.KindProcesses: {
			{
				Name:    "ps-sorted",
				Command: "ps aux -r | head -21",
				Parse:   asAny(parsers.ParsePSAux),
			},
		},
		metrics.KindSystem: {
			{
				Name:    "system-probe",
				Command: "uname -srm; echo ---; hostname; echo ---; sysctl -n hw.ncpu; echo ---; sysctl -n kern.boottime; echo ---; date +%s",
				Parse:   asAny(parsers.ParseDarwinSystem),
			},
		},
	},

	dialect.WindowsPowerShell: {
		metrics.KindCPU: {
			{
				Name:    "counter",
				Command: psCommand(`(Get-Counter '\Processor(*)\% Processor Time').CounterSamples | Select-Object InstanceName,CookedValue | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseCounterCPU),
			},
			{
				Name:    "cim-load",
				Command: psCommand(`Get-CimInstance Win32_Processor | Select-Object LoadPercentage,NumberOfLogicalProcessors | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseCIMLoadPercentage),
			},
		},
		metrics.KindMemory: {
			{
				Name:    "cim-os",
				Command: psCommand(`Get-CimInstance Win32_OperatingSystem | Select-Object TotalVisibleMemorySize,FreePhysicalMemory | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseCIMMemory),
			},
			{
				Name:    "wmic",
				Command: "wmic OS get TotalVisibleMemorySize,FreePhysicalMemory /value",
				Parse:   asAny(parsers.ParseWmicMemory),
			},
		},
		metrics.KindDisk: {
			{
				Name:    "cim-disk",
				Command: psCommand(`Get-CimInstance Win32_LogicalDisk -Filter 'DriveType=3' | Select-Object DeviceID,Size,FreeSpace,FileSystem | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseCIMDisk),
			},
			{
				Name:    "psdrive",
				Command: psCommand(`Get-PSDrive -PSProvider FileSystem | Select-Object Name,Used,Free | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseGetPSDrive),
			},
		},
		metrics.KindNetwork: {
			{
				Name:    "netadapter",
				Command: psCommand(`Get-NetAdapterStatistics | Select-Object Name,ReceivedBytes,SentBytes | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseNetAdapterStats),
			},
			{
				Name:    "cim-netperf",
				Command: psCommand(`Get-CimInstance Win32_PerfRawData_Tcpip_NetworkInterface | Select-Object Name,BytesReceivedPersec,BytesSentPersec,PacketsReceivedPersec,PacketsSentPersec | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseCIMNetPerfRaw),
			},
		},
		metrics.KindProcesses: {
			{
				Name:    "cim-procperf",
				Command: psCommand(`Get-CimInstance Win32_PerfFormattedData_PerfProc_Process | Sort-Object PercentProcessorTime -Descending | Select-Object -First 20 IDProcess,Name,PercentProcessorTime | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseCIMProcessPerf),
			},
			{
				Name:    "get-process",
				Command: psCommand(`Get-Process | Sort-Object WS -Descending | Select-Object -First 20 Id,ProcessName | ConvertTo-Json -Compress`),
				Parse:   asAny(parsers.ParseGetProcess),
			},
		},
		metrics.KindSystem: {
			{
				Name:    "cim-system",
				Command: psCommand(`Get-CimInstance Win32_OperatingSystem | Select-Object Caption,Version,CSName,OSArchitecture,LastBootUpTime | ConvertTo-Json -Compress; '---'; Get-CimInstance Win32_ComputerSystem | Select-Object NumberOfLogicalProcessors | ConvertTo-Json -Compress; '---'; [DateTimeOffset]::UtcNow.ToUnixTimeMilliseconds()`),
				Parse:   asAny(parsers.ParseCIMSystem),
			},
			{
				Name:    "hostname",
				Command: "hostname",
				Parse:   asAny(parsers.ParseWindowsHostname),
			},
		},
	},

	// The minimal set for hosts whose dialect never resolved: strictly
	// POSIX commands, and only the metrics they can carry.
	dialect.Unknown: {
		metrics.KindCPU:     nil,
		metrics.KindMemory:  nil,
		metrics.KindNetwork: nil,
		metrics.KindDisk: {
			{
				Name:    "df-posix",
				Command: "df -P -k",
				Parse:   asAny(parsers.ParseDFPosix),
			},
		},
		metrics.KindProcesses: {
			{
				Name:    "ps-posix",
				Command: "ps -A -o pid=,pcpu=,pmem=,comm=",
				Parse:   asAny(parsers.ParsePSPosix),
			},
		},
		metrics.KindSystem: {
			{
				Name:    "system-probe",
				Command: "uname -srm; echo ---; hostname; echo ---; uptime",
				Parse:   asAny(parsers.ParsePosixSystem),
			},
		},
	},
}

// Candidates returns the fallback chain for one dialect and metric kind,
// nil when the combination is unsupported. Unrecognized dialects use the
// minimal POSIX set.
func Candidates(d dialect.Dialect, kind metrics.Kind) []Candidate {
	row, ok := catalog[d]
	if !ok {
		row = catalog[dialect.Unknown]
	}
	return row[kind]
}

// KillCommand returns the dialect's process-termination command.
func KillCommand(d dialect.Dialect, pid int) string {
	if d == dialect.WindowsPowerShell {
		return psCommand(fmt.Sprintf("Stop-Process -Id %d -Force", pid))
	}
	return fmt.Sprintf("kill %d", pid)
}

package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCounterCPU(t *testing.T) {
	t.Run("total and per-core instances", func(t *testing.T) {
		output := `[{"InstanceName":"0","CookedValue":12.5},{"InstanceName":"1","CookedValue":37.5},{"InstanceName":"_total","CookedValue":25.0}]`

		stats, err := ParseCounterCPU(output)
		require.NoError(t, err)

		assert.InDelta(t, 25.0, stats.Percent, 0.01)
		require.Len(t, stats.PerCore, 2)
		assert.InDelta(t, 12.5, stats.PerCore[0], 0.01)
		assert.InDelta(t, 37.5, stats.PerCore[1], 0.01)
	})

	t.Run("cores arrive out of order", func(t *testing.T) {
		output := `[{"InstanceName":"1","CookedValue":20},{"InstanceName":"0","CookedValue":10},{"InstanceName":"_total","CookedValue":15}]`

		stats, err := ParseCounterCPU(output)
		require.NoError(t, err)
		assert.Equal(t, []float64{10, 20}, stats.PerCore)
	})

	t.Run("missing total averages cores", func(t *testing.T) {
		output := `[{"InstanceName":"0","CookedValue":10},{"InstanceName":"1","CookedValue":30}]`

		stats, err := ParseCounterCPU(output)
		require.NoError(t, err)
		assert.InDelta(t, 20.0, stats.Percent, 0.01)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseCounterCPU("Get-Counter : Unable to access the specified counter")
		assert.Error(t, err)
	})
}

func TestParseCIMLoadPercentage(t *testing.T) {
	t.Run("single socket", func(t *testing.T) {
		stats, err := ParseCIMLoadPercentage(`{"LoadPercentage":42,"NumberOfLogicalProcessors":8}`)
		require.NoError(t, err)
		assert.InDelta(t, 42.0, stats.Percent, 0.01)
	})

	t.Run("dual socket averages load and sums cores", func(t *testing.T) {
		output := `[{"LoadPercentage":40,"NumberOfLogicalProcessors":16},{"LoadPercentage":60,"NumberOfLogicalProcessors":16}]`

		stats, err := ParseCIMLoadPercentage(output)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, stats.Percent, 0.01)
		assert.Equal(t, 32, stats.Cores)
	})

	t.Run("null load counts as idle", func(t *testing.T) {
		stats, err := ParseCIMLoadPercentage(`{"LoadPercentage":null,"NumberOfLogicalProcessors":4}`)
		require.NoError(t, err)
		assert.Equal(t, 0.0, stats.Percent)
	})
}

func TestParseCIMMemory(t *testing.T) {
	// Win32_OperatingSystem reports kilobytes.
	m, err := ParseCIMMemory(`{"TotalVisibleMemorySize":16658944,"FreePhysicalMemory":8323172}`)
	require.NoError(t, err)

	assert.Equal(t, int64(16658944)*1024, m.TotalBytes)
	assert.Equal(t, int64(8323172)*1024, m.AvailableBytes)
	assert.Equal(t, int64(16658944-8323172)*1024, m.UsedBytes)
	assert.InDelta(t, 50.04, m.Percent, 0.1)
}

func TestParseCIMMemory_Empty(t *testing.T) {
	_, err := ParseCIMMemory(`{"TotalVisibleMemorySize":0,"FreePhysicalMemory":0}`)
	assert.Error(t, err)
}

func TestParseWmicMemory(t *testing.T) {
	// wmic pads output with CRLF line endings and blank lines.
	output := "\r\n\r\nFreePhysicalMemory=8323172\r\nTotalVisibleMemorySize=16658944\r\n\r\n"

	m, err := ParseWmicMemory(output)
	require.NoError(t, err)

	assert.Equal(t, int64(16658944)*1024, m.TotalBytes)
	assert.Equal(t, int64(8323172)*1024, m.AvailableBytes)
}

func TestParseWmicMemory_Garbage(t *testing.T) {
	_, err := ParseWmicMemory("wmic is deprecated")
	assert.Error(t, err)
}

func TestParseCIMDisk(t *testing.T) {
	output := `[{"DeviceID":"C:","Size":511176081408,"FreeSpace":231863064576,"FileSystem":"NTFS"},{"DeviceID":"D:","Size":2000396742656,"FreeSpace":1500297297920,"FileSystem":"ReFS"}]`

	disks, err := ParseCIMDisk(output)
	require.NoError(t, err)
	require.Len(t, disks, 2)

	c := disks[0]
	assert.Equal(t, "C:", c.Filesystem)
	assert.Equal(t, `C:\`, c.Mount)
	assert.Equal(t, "NTFS", c.FSType)
	assert.Equal(t, int64(511176081408), c.TotalBytes)
	assert.Equal(t, int64(511176081408-231863064576), c.UsedBytes)
	assert.InDelta(t, 54.6, c.Percent, 0.1)
}

func TestParseCIMDisk_SkipsEmptyDrives(t *testing.T) {
	output := `[{"DeviceID":"C:","Size":1000,"FreeSpace":500,"FileSystem":"NTFS"},{"DeviceID":"E:","Size":0,"FreeSpace":0,"FileSystem":""}]`

	disks, err := ParseCIMDisk(output)
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "C:", disks[0].Filesystem)
}

func TestParseGetPSDrive(t *testing.T) {
	output := `[{"Name":"C","Used":279313016832,"Free":231863064576},{"Name":"Temp","Used":null,"Free":null}]`

	disks, err := ParseGetPSDrive(output)
	require.NoError(t, err)
	require.Len(t, disks, 1)

	c := disks[0]
	assert.Equal(t, "C:", c.Filesystem)
	assert.Equal(t, `C:\`, c.Mount)
	assert.Equal(t, int64(279313016832+231863064576), c.TotalBytes)
	assert.Equal(t, int64(279313016832), c.UsedBytes)
}

func TestParseNetAdapterStats(t *testing.T) {
	output := `[{"Name":"Ethernet","ReceivedBytes":8765432109,"SentBytes":4321098765},{"Name":"Wi-Fi","ReceivedBytes":123456789,"SentBytes":98765432}]`

	interfaces, err := ParseNetAdapterStats(output)
	require.NoError(t, err)
	require.Len(t, interfaces, 2)

	assert.Equal(t, "Ethernet", interfaces[0].Name)
	assert.Equal(t, int64(8765432109), interfaces[0].BytesIn)
	assert.Equal(t, int64(4321098765), interfaces[0].BytesOut)
}

func TestParseCIMNetPerfRaw(t *testing.T) {
	output := `{"Name":"Intel[R] Ethernet Connection","BytesReceivedPersec":8765432109,"BytesSentPersec":4321098765,"PacketsReceivedPersec":9876543,"PacketsSentPersec":5678901}`

	interfaces, err := ParseCIMNetPerfRaw(output)
	require.NoError(t, err)
	require.Len(t, interfaces, 1)

	assert.Equal(t, int64(8765432109), interfaces[0].BytesIn)
	assert.Equal(t, int64(9876543), interfaces[0].PacketsIn)
	assert.Equal(t, int64(5678901), interfaces[0].PacketsOut)
}

func TestParseCIMProcessPerf(t *testing.T) {
	output := `[{"IDProcess":0,"Name":"Idle","PercentProcessorTime":95},{"IDProcess":0,"Name":"_Total","PercentProcessorTime":100},{"IDProcess":4321,"Name":"sqlservr","PercentProcessorTime":42.5},{"IDProcess":8765,"Name":"chrome#2","PercentProcessorTime":12}]`

	procs, err := ParseCIMProcessPerf(output)
	require.NoError(t, err)
	require.Len(t, procs, 2)

	assert.Equal(t, 4321, procs[0].PID)
	assert.Equal(t, "sqlservr", procs[0].Name)
	assert.InDelta(t, 42.5, procs[0].CPU, 0.01)
	assert.Equal(t, "chrome#2", procs[1].Name)
}

func TestParseCIMProcessPerf_OnlyPseudoProcesses(t *testing.T) {
	output := `[{"IDProcess":0,"Name":"Idle","PercentProcessorTime":95},{"IDProcess":0,"Name":"_Total","PercentProcessorTime":100}]`

	_, err := ParseCIMProcessPerf(output)
	assert.Error(t, err)
}

func TestParseGetProcess(t *testing.T) {
	output := `[{"Id":4321,"ProcessName":"sqlservr"},{"Id":8765,"ProcessName":"chrome"}]`

	procs, err := ParseGetProcess(output)
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, 4321, procs[0].PID)
	assert.Equal(t, "sqlservr", procs[0].Name)
	assert.Equal(t, 0.0, procs[0].CPU)
}

func TestParseCIMSystem(t *testing.T) {
	t.Run("windows powershell date format", func(t *testing.T) {
		output := `{"Caption":"Microsoft Windows Server 2022 Standard","Version":"10.0.20348","CSName":"WIN-SRV01","OSArchitecture":"64-bit","LastBootUpTime":"\/Date(1755500000000)\/"}
---
{"NumberOfLogicalProcessors":16}
---
1755932000000`

		info, err := ParseCIMSystem(output)
		require.NoError(t, err)

		assert.Equal(t, "Microsoft Windows Server 2022 Standard", info.OS)
		assert.Equal(t, "10.0.20348", info.Kernel)
		assert.Equal(t, "64-bit", info.Arch)
		assert.Equal(t, "WIN-SRV01", info.Hostname)
		assert.Equal(t, 16, info.Cores)
		assert.Equal(t, time.Duration(432000)*time.Second, info.Uptime)
	})

	t.Run("powershell 7 iso date", func(t *testing.T) {
		output := `{"Caption":"Microsoft Windows 11 Pro","Version":"10.0.22631","CSName":"DESKTOP-AB12","OSArchitecture":"64-bit","LastBootUpTime":"2026-08-18T06:13:20.0000000+00:00"}
---
{"NumberOfLogicalProcessors":8}
---
1755932000000`

		info, err := ParseCIMSystem(output)
		require.NoError(t, err)
		assert.Equal(t, "DESKTOP-AB12", info.Hostname)
		assert.Greater(t, info.Uptime, time.Duration(0))
	})

	t.Run("clock sections missing", func(t *testing.T) {
		output := `{"Caption":"Microsoft Windows Server 2019","Version":"10.0.17763","CSName":"WIN-OLD","OSArchitecture":"64-bit","LastBootUpTime":"\/Date(1755500000000)\/"}`

		info, err := ParseCIMSystem(output)
		require.NoError(t, err)
		assert.Equal(t, "WIN-OLD", info.Hostname)
		assert.Equal(t, time.Duration(0), info.Uptime)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseCIMSystem("")
		assert.Error(t, err)
	})
}

func TestParseCIMDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "json date wrapper",
			input: "/Date(1755500000000)/",
			want:  time.UnixMilli(1755500000000),
		},
		{
			name:  "iso 8601",
			input: "2026-08-18T06:13:20+00:00",
			want:  time.Date(2026, 8, 18, 6, 13, 20, 0, time.UTC),
		},
		{
			name:  "dmtf",
			input: "20260818061320.000000+000",
			want:  time.Date(2026, 8, 18, 6, 13, 20, 0, time.UTC),
		},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "last tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCIMDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseWindowsHostname(t *testing.T) {
	info, err := ParseWindowsHostname("WIN-SRV01\r\n")
	require.NoError(t, err)
	assert.Equal(t, "WIN-SRV01", info.Hostname)
	assert.Equal(t, "Windows", info.OS)

	_, err = ParseWindowsHostname("   ")
	assert.Error(t, err)
}

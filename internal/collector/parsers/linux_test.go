package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/internal/metrics"
)

func TestParseProcStat(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantCores   int
		wantLoadAvg [3]float64
		wantErr     bool
	}{
		{
			name: "two core system with loadavg section",
			output: `cpu  1234567 12345 234567 8901234 12345 0 6789 0 0 0
cpu0 617283 6172 117283 4450617 6172 0 3394 0 0 0
cpu1 617284 6173 117284 4450617 6173 0 3395 0 0 0
---
1.23 2.34 3.45 1/234 5678`,
			wantCores:   2,
			wantLoadAvg: [3]float64{1.23, 2.34, 3.45},
		},
		{
			name: "no loadavg section",
			output: `cpu  2000000 20000 400000 16000000 20000 0 10000 0 0 0
cpu0 2000000 20000 400000 16000000 20000 0 10000 0 0 0`,
			wantCores:   1,
			wantLoadAvg: [3]float64{0, 0, 0},
		},
		{
			name:    "invalid cpu line",
			output:  "cpu  invalid data here yes",
			wantErr: true,
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := ParseProcStat(tt.output)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, stats)
			assert.True(t, stats.HasTimes)
			assert.Len(t, stats.PerCoreTimes, tt.wantCores)
			assert.Len(t, stats.PerCore, tt.wantCores)
			assert.Equal(t, tt.wantLoadAvg, stats.LoadAvg)
			assert.GreaterOrEqual(t, stats.Percent, 0.0)
			assert.LessOrEqual(t, stats.Percent, 100.0)
		})
	}
}

func TestParseProcStat_SinceBootPercent(t *testing.T) {
	// Total jiffies: 1234567+12345+234567+8901234+12345+0+6789 = 10,401,847
	// Idle jiffies (idle + iowait): 8901234+12345 = 8,913,579
	// Busy: 1,488,268 / 10,401,847 * 100 = ~14.3%
	output := `cpu  1234567 12345 234567 8901234 12345 0 6789 0 0 0
cpu0 617283 6172 117283 4450617 6172 0 3394 0 0 0`

	stats, err := ParseProcStat(output)
	require.NoError(t, err)

	assert.InDelta(t, 14.3, stats.Percent, 0.5)
	assert.Equal(t, uint64(10401847), stats.Total.Total)
	assert.Equal(t, uint64(8913579), stats.Total.Idle)
}

func TestParseProcStat_DeltaBetweenSamples(t *testing.T) {
	first, err := ParseProcStat("cpu  1000 0 1000 8000 0 0 0 0 0 0")
	require.NoError(t, err)

	// 1000 more jiffies elapsed, 500 of them idle: 50% busy over the window.
	second, err := ParseProcStat("cpu  1250 0 1250 8500 0 0 0 0 0 0")
	require.NoError(t, err)

	assert.InDelta(t, 50.0, second.Total.BusyPercent(first.Total), 0.01)
}

func TestParseTopCPU(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantPercent float64
		wantLoadAvg [3]float64
		wantErr     bool
	}{
		{
			name: "standard top header",
			output: `top - 14:23:01 up 5 days,  1:02,  3 users,  load average: 0.52, 0.58, 0.59
Tasks: 257 total,   1 running, 256 sleeping,   0 stopped,   0 zombie
%Cpu(s):  5.9 us,  2.4 sy,  0.0 ni, 91.2 id,  0.3 wa,  0.0 hi,  0.2 si,  0.0 st
MiB Mem :  15876.3 total,   1234.5 free,   8765.4 used,   5876.4 buff/cache`,
			wantPercent: 8.8,
			wantLoadAvg: [3]float64{0.52, 0.58, 0.59},
		},
		{
			name: "locale with comma decimals",
			output: `top - 14:23:01 up 5 days,  1:02,  3 users,  load average: 0,52, 0,58, 0,59
%Cpu(s):  5,9 us,  2,4 sy,  0,0 ni, 91,2 id,  0,3 wa,  0,0 hi,  0,2 si,  0,0 st`,
			wantPercent: 8.8,
			// Comma-decimal load values collide with the comma list
			// separator, so only the idle percentage is recoverable.
			wantLoadAvg: [3]float64{0, 0, 0},
		},
		{
			name: "old procps with glued labels",
			output: `top - 14:23:01 up 5 days,  1:02,  3 users,  load average: 0.52, 0.58, 0.59
Cpu(s):  0.3%us,  0.1%sy,  0.0%ni, 99.4%id,  0.2%wa,  0.0%hi,  0.0%si,  0.0%st`,
			wantPercent: 0.6,
			wantLoadAvg: [3]float64{0.52, 0.58, 0.59},
		},
		{
			name:    "no cpu line",
			output:  "Tasks: 257 total,   1 running",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := ParseTopCPU(tt.output)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.wantPercent, stats.Percent, 0.01)
			assert.Equal(t, tt.wantLoadAvg, stats.LoadAvg)
		})
	}
}

func TestParseSar(t *testing.T) {
	t.Run("average line preferred", func(t *testing.T) {
		output := `Linux 6.1.0-18-amd64 (web-01)     08/23/26     _x86_64_    (8 CPU)

14:23:01        CPU     %user     %nice   %system   %iowait    %steal     %idle
14:23:02        all      4.50      0.00      1.75      0.12      0.00     93.63
Average:        all      4.50      0.00      1.75      0.12      0.00     93.63`

		stats, err := ParseSar(output)
		require.NoError(t, err)
		assert.InDelta(t, 6.37, stats.Percent, 0.01)
	})

	t.Run("truncated output falls back to sample line", func(t *testing.T) {
		output := `14:23:01        CPU     %user     %nice   %system   %iowait    %steal     %idle
14:23:02        all      4.50      0.00      1.75      0.12      0.00     80.00`

		stats, err := ParseSar(output)
		require.NoError(t, err)
		assert.InDelta(t, 20.0, stats.Percent, 0.01)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseSar("sar: command not found")
		assert.Error(t, err)
	})
}

func TestParseFree(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		wantTotal     int64
		wantUsed      int64
		wantAvailable int64
		wantCached    int64
		wantErr       bool
	}{
		{
			name: "modern free with available column",
			output: `              total        used        free      shared  buff/cache   available
Mem:    16652869632  9182311424  1234567168   123456789  6235991040  6987654144
Swap:    2147479552           0  2147479552`,
			wantTotal:     16652869632,
			wantUsed:      9182311424,
			wantAvailable: 6987654144,
			wantCached:    6235991040,
		},
		{
			name: "old free where the last column is cached",
			output: `             total       used       free     shared    buffers     cached
Mem:    8388608000 6291456000 2097152000          0  104857600  524288000
-/+ buffers/cache: 5662310400 2726297600
Swap:   2147479552          0 2147479552`,
			wantTotal:     8388608000,
			wantUsed:      6291456000,
			wantAvailable: 2097152000,
			wantCached:    104857600 + 524288000,
		},
		{
			name:    "no Mem line",
			output:  "free: invalid option",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseFree(tt.output)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, m.TotalBytes)
			assert.Equal(t, tt.wantUsed, m.UsedBytes)
			assert.Equal(t, tt.wantAvailable, m.AvailableBytes)
			assert.Equal(t, tt.wantCached, m.CachedBytes)
			assert.Greater(t, m.Percent, 0.0)
		})
	}
}

func TestParseMeminfo(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		wantTotal     int64
		wantAvailable int64
		wantCached    int64
		wantErr       bool
	}{
		{
			name: "full meminfo",
			output: `MemTotal:       16384000 kB
MemFree:         1234567 kB
MemAvailable:    8765432 kB
Buffers:          123456 kB
Cached:          4567890 kB
SwapCached:        12345 kB
Active:          5000000 kB
Inactive:        4000000 kB`,
			wantTotal:     16384000 * 1024,
			wantAvailable: 8765432 * 1024,
			wantCached:    (4567890 + 123456) * 1024,
		},
		{
			name: "old kernel without MemAvailable",
			output: `MemTotal:       8000000 kB
MemFree:         500000 kB
Buffers:          50000 kB
Cached:         1000000 kB`,
			wantTotal:     8000000 * 1024,
			wantAvailable: (500000 + 50000 + 1000000) * 1024,
			wantCached:    (1000000 + 50000) * 1024,
		},
		{
			name:    "only total",
			output:  "MemTotal:       16384000 kB",
			wantErr: true,
		},
		{
			name:    "garbage",
			output:  "cat: /proc/meminfo: No such file or directory",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMeminfo(tt.output)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, m.TotalBytes)
			assert.Equal(t, tt.wantAvailable, m.AvailableBytes)
			assert.Equal(t, tt.wantCached, m.CachedBytes)
		})
	}
}

func TestParseDFWithType(t *testing.T) {
	output := `Filesystem     Type         1-blocks         Used   Available Capacity Mounted on
/dev/nvme0n1p2 ext4     494384795648 194384795648 274792421376      42% /
/dev/nvme0n1p1 vfat        535805952     61367296    474438656      12% /boot/efi
tmpfs          tmpfs      8326434816            0   8326434816       0% /dev/shm
/dev/sdb1      ext4     994662584320 494662584320 449399500800      53% /mnt/backup disk`

	disks, err := ParseDFWithType(output)
	require.NoError(t, err)
	require.Len(t, disks, 4)

	root := disks[0]
	assert.Equal(t, "/dev/nvme0n1p2", root.Filesystem)
	assert.Equal(t, "ext4", root.FSType)
	assert.Equal(t, "/", root.Mount)
	assert.Equal(t, int64(494384795648), root.TotalBytes)
	assert.Equal(t, int64(194384795648), root.UsedBytes)
	assert.InDelta(t, 39.3, root.Percent, 0.1)

	// Mount points with spaces survive via the trailing-column join.
	assert.Equal(t, "/mnt/backup disk", disks[3].Mount)
}

func TestParseDFWithType_SkipsMalformedRows(t *testing.T) {
	output := `Filesystem     Type 1-blocks Used Available Capacity Mounted on
/dev/sda1      ext4 100000 50000 50000 50% /
map auto_home
/dev/sda2      ext4 bad-total 1 1 1% /data`

	disks, err := ParseDFWithType(output)
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "/", disks[0].Mount)
}

func TestParseNetDev(t *testing.T) {
	output := `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 1234567   12345    0    0    0     0          0         0  1234567   12345    0    0    0     0       0          0
  eth0: 9876543   98765    0    0    0     0          0         0  5678901   56789    0    0    0     0       0          0`

	interfaces, err := ParseNetDev(output)
	require.NoError(t, err)
	require.Len(t, interfaces, 2)

	byName := make(map[string]metrics.NetworkInterface)
	for _, iface := range interfaces {
		byName[iface.Name] = iface
	}

	assert.Equal(t, int64(9876543), byName["eth0"].BytesIn)
	assert.Equal(t, int64(5678901), byName["eth0"].BytesOut)
	assert.Equal(t, int64(98765), byName["eth0"].PacketsIn)
	assert.Equal(t, int64(56789), byName["eth0"].PacketsOut)
	assert.True(t, byName["lo"].IsLoopback())
}

func TestParseNetDev_Empty(t *testing.T) {
	_, err := ParseNetDev("")
	assert.Error(t, err)
}

func TestParseLinuxSystem(t *testing.T) {
	output := `Linux 6.1.0-18-amd64 x86_64
---
web-01
---
8
---
432000.52 1601021.12`

	info, err := ParseLinuxSystem(output)
	require.NoError(t, err)

	assert.Equal(t, "Linux", info.OS)
	assert.Equal(t, "6.1.0-18-amd64", info.Kernel)
	assert.Equal(t, "x86_64", info.Arch)
	assert.Equal(t, "web-01", info.Hostname)
	assert.Equal(t, 8, info.Cores)
	assert.Equal(t, time.Duration(432000.52*float64(time.Second)), info.Uptime)
}

func TestParseLinuxSystem_TruncatedProbe(t *testing.T) {
	info, err := ParseLinuxSystem("Linux 6.1.0 aarch64\n---\ndb-02")
	require.NoError(t, err)
	assert.Equal(t, "db-02", info.Hostname)
	assert.Equal(t, 0, info.Cores)
	assert.Equal(t, time.Duration(0), info.Uptime)
}

func TestParseLinuxSystem_MissingIdentity(t *testing.T) {
	_, err := ParseLinuxSystem("")
	assert.Error(t, err)

	_, err = ParseLinuxSystem("Linux 6.1.0 x86_64\n---\n")
	assert.Error(t, err)
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKind("gpu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpu")
}

func TestCoreTimesBusyPercent(t *testing.T) {
	tests := []struct {
		name string
		prev CoreTimes
		cur  CoreTimes
		want float64
	}{
		{
			name: "half busy over the interval",
			prev: CoreTimes{Total: 1000, Idle: 500},
			cur:  CoreTimes{Total: 2000, Idle: 1000},
			want: 50,
		},
		{
			name: "fully idle",
			prev: CoreTimes{Total: 1000, Idle: 500},
			cur:  CoreTimes{Total: 2000, Idle: 1500},
			want: 0,
		},
		{
			name: "fully busy",
			prev: CoreTimes{Total: 1000, Idle: 500},
			cur:  CoreTimes{Total: 2000, Idle: 500},
			want: 100,
		},
		{
			name: "zero prev falls back to since-boot share",
			cur:  CoreTimes{Total: 1000, Idle: 250},
			want: 75,
		},
		{
			name: "counters did not advance",
			prev: CoreTimes{Total: 2000, Idle: 1000},
			cur:  CoreTimes{Total: 2000, Idle: 1000},
			want: 0,
		},
		{
			name: "counter reset reads as zero",
			prev: CoreTimes{Total: 5000, Idle: 2000},
			cur:  CoreTimes{Total: 1000, Idle: 500},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.cur.BusyPercent(tt.prev), 0.001)
		})
	}
}

func TestNetworkInterfaceIsLoopback(t *testing.T) {
	assert.True(t, NetworkInterface{Name: "lo"}.IsLoopback())
	assert.True(t, NetworkInterface{Name: "lo0"}.IsLoopback())
	assert.True(t, NetworkInterface{Name: "Loopback Pseudo-Interface 1"}.IsLoopback())
	assert.False(t, NetworkInterface{Name: "eth0"}.IsLoopback())
	assert.False(t, NetworkInterface{Name: "en0"}.IsLoopback())
}

func TestSnapshotHasAndComplete(t *testing.T) {
	snap := &Snapshot{
		CPU:    &CPUMetrics{Percent: 10},
		Memory: &MemoryMetrics{Percent: 20},
	}

	assert.True(t, snap.Has(KindCPU))
	assert.True(t, snap.Has(KindMemory))
	assert.False(t, snap.Has(KindDisk))
	assert.False(t, snap.Has(KindNetwork))
	assert.False(t, snap.Has(KindProcesses))
	assert.False(t, snap.Has(KindSystem))
	assert.False(t, snap.Has(Kind("gpu")))

	assert.True(t, snap.Complete([]Kind{KindCPU, KindMemory}))
	assert.False(t, snap.Complete([]Kind{KindCPU, KindDisk}))
	assert.True(t, snap.Complete(nil))
}

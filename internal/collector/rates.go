package collector

import (
	"sync"
	"time"

	"github.com/vigil-dev/vigil/internal/metrics"
)

// deltaState holds the previous cycle's cumulative counters. CPU usage
// over an interval and network byte rates both need two samples; the
// first cycle after connect reports since-boot CPU and zero rates.
type deltaState struct {
	mu sync.Mutex

	cpuTotal   metrics.CoreTimes
	cpuPerCore []metrics.CoreTimes
	hasCPU     bool

	rxBytes int64
	txBytes int64
	netAt   time.Time
	hasNet  bool
}

// finishCPU converts a parsed CPU sample into snapshot form. When the
// sample carries cumulative counters the percentages are recomputed
// against the previous cycle's counters, which reflects the interval
// instead of the whole uptime.
func (c *Collector) finishCPU(stats *metrics.CPUStats) *metrics.CPUMetrics {
	out := &metrics.CPUMetrics{
		Percent: stats.Percent,
		PerCore: stats.PerCore,
		Cores:   stats.Cores,
		LoadAvg: stats.LoadAvg,
	}

	if stats.HasTimes {
		s := &c.deltas
		s.mu.Lock()
		if s.hasCPU {
			out.Percent = stats.Total.BusyPercent(s.cpuTotal)
			if len(stats.PerCoreTimes) == len(s.cpuPerCore) {
				per := make([]float64, len(stats.PerCoreTimes))
				for i := range stats.PerCoreTimes {
					per[i] = stats.PerCoreTimes[i].BusyPercent(s.cpuPerCore[i])
				}
				out.PerCore = per
			}
		}
		s.cpuTotal = stats.Total
		s.cpuPerCore = stats.PerCoreTimes
		s.hasCPU = true
		s.mu.Unlock()
	}

	if out.Cores == 0 {
		out.Cores = len(out.PerCore)
	}
	return out
}

// finishNetwork aggregates interface counters and computes byte rates
// from the previous cycle. A counter that went backwards (interface
// reset, counter wrap) yields a zero rate for the cycle.
func (c *Collector) finishNetwork(ifaces []metrics.NetworkInterface, now time.Time) *metrics.NetworkMetrics {
	out := &metrics.NetworkMetrics{Interfaces: ifaces}
	for _, iface := range ifaces {
		if iface.IsLoopback() {
			continue
		}
		out.RxBytes += iface.BytesIn
		out.TxBytes += iface.BytesOut
	}

	s := &c.deltas
	s.mu.Lock()
	if s.hasNet {
		elapsed := now.Sub(s.netAt).Seconds()
		if elapsed > 0 {
			out.RxBytesPerSec = ratePerSec(out.RxBytes, s.rxBytes, elapsed)
			out.TxBytesPerSec = ratePerSec(out.TxBytes, s.txBytes, elapsed)
		}
	}
	s.rxBytes = out.RxBytes
	s.txBytes = out.TxBytes
	s.netAt = now
	s.hasNet = true
	s.mu.Unlock()

	return out
}

func ratePerSec(cur, prev int64, elapsed float64) float64 {
	delta := cur - prev
	if delta < 0 {
		return 0
	}
	return float64(delta) / elapsed
}

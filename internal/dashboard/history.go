package dashboard

import (
	"sync"

	"github.com/vigil-dev/vigil/internal/metrics"
)

// DefaultHistorySize is the number of samples retained per series. At the
// default 2s refresh that covers the last two minutes.
const DefaultHistorySize = 60

// History stores recent metric samples in fixed-size ring buffers for
// sparkline rendering. One History serves one watched host; pushes and reads
// may come from different goroutines.
type History struct {
	mu     sync.Mutex
	cpu    *ring
	memory *ring
	rx     *ring // bytes/sec, already differenced by the collector
	tx     *ring
}

// NewHistory creates a history tracker holding size samples per series.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		cpu:    newRing(size),
		memory: newRing(size),
		rx:     newRing(size),
		tx:     newRing(size),
	}
}

// Push records whatever the snapshot carries. Kinds missing from the
// snapshot leave their series untouched, so a failed probe shows up as a
// gap in freshness rather than a fake zero.
func (h *History) Push(snap *metrics.Snapshot) {
	if snap == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if snap.CPU != nil {
		h.cpu.push(snap.CPU.Percent)
	}
	if snap.Memory != nil {
		h.memory.push(snap.Memory.Percent)
	}
	if snap.Network != nil {
		h.rx.push(snap.Network.RxBytesPerSec)
		h.tx.push(snap.Network.TxBytesPerSec)
	}
}

// CPU returns up to count CPU percentage samples, oldest first.
func (h *History) CPU(count int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cpu.last(count)
}

// Memory returns up to count memory percentage samples, oldest first.
func (h *History) Memory(count int) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.memory.last(count)
}

// NetworkRates returns up to count receive and transmit rate samples in
// bytes per second, oldest first.
func (h *History) NetworkRates(count int) (rx, tx []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rx.last(count), h.tx.last(count)
}

// Samples returns how many CPU samples have been recorded, capped at the
// ring size.
func (h *History) Samples() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cpu.count
}

// ring is a fixed-size circular buffer of float64 values.
type ring struct {
	data  []float64
	head  int
	count int
	size  int
}

func newRing(size int) *ring {
	return &ring{data: make([]float64, size), size: size}
}

func (r *ring) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// last returns the most recent count values in chronological order,
// oldest first. Returns fewer when the buffer holds fewer.
func (r *ring) last(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	out := make([]float64, count)
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		out[i] = r.data[(start+i)%r.size]
	}
	return out
}

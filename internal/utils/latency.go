package utils

import (
	"sort"
	"sync"
	"time"
)

// Evaluation surfaces tracked separately by the service.
const (
	SurfaceGRPC = "grpc"
	SurfaceHTTP = "http"
)

// LatencySummary describes the recent evaluation latencies of one surface.
type LatencySummary struct {
	Observed int
	Window   int
	P50      time.Duration
	P95      time.Duration
	Max      time.Duration
}

// LatencyTracker keeps a fixed-size ring of recent durations per surface. The Prometheus
// histogram holds the long-run distribution; the ring answers "how slow is it right now"
// for logs.
type LatencyTracker struct {
	mu    sync.Mutex
	size  int
	rings map[string]*latencyRing
}

type latencyRing struct {
	samples  []time.Duration
	next     int
	observed int
}

// NewLatencyTracker creates a tracker keeping up to size samples per surface.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 512
	}
	return &LatencyTracker{size: size, rings: make(map[string]*latencyRing)}
}

// Observe records d for surface and returns the total number observed there.
func (l *LatencyTracker) Observe(surface string, d time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	ring, ok := l.rings[surface]
	if !ok {
		ring = &latencyRing{samples: make([]time.Duration, 0, l.size)}
		l.rings[surface] = ring
	}
	if len(ring.samples) < l.size {
		ring.samples = append(ring.samples, d)
	} else {
		ring.samples[ring.next] = d
	}
	ring.next = (ring.next + 1) % l.size
	ring.observed++
	return ring.observed
}

// Summary returns the percentiles of surface's current window. Unknown surfaces yield a
// zero summary.
func (l *LatencyTracker) Summary(surface string) LatencySummary {
	l.mu.Lock()
	ring, ok := l.rings[surface]
	var sorted []time.Duration
	summary := LatencySummary{}
	if ok {
		sorted = append(sorted, ring.samples...)
		summary.Observed = ring.observed
	}
	l.mu.Unlock()

	if len(sorted) == 0 {
		return summary
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	summary.Window = len(sorted)
	summary.P50 = percentile(sorted, 50)
	summary.P95 = percentile(sorted, 95)
	summary.Max = sorted[len(sorted)-1]
	return summary
}

// Surfaces lists the surfaces with at least one observation, sorted.
func (l *LatencyTracker) Surfaces() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.rings))
	for name := range l.rings {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// percentile uses nearest-rank on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	index := int((p / 100.0) * float64(len(sorted)-1))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

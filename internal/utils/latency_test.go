package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerSummaryPerSurface(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for _, ms := range []int{10, 20, 30, 40, 50} {
		tracker.Observe(SurfaceHTTP, time.Duration(ms)*time.Millisecond)
	}
	tracker.Observe(SurfaceGRPC, 5*time.Millisecond)

	http := tracker.Summary(SurfaceHTTP)
	if http.Observed != 5 || http.Window != 5 {
		t.Fatalf("expected 5 observed in a window of 5, got %+v", http)
	}
	if http.P50 != 30*time.Millisecond {
		t.Fatalf("expected p50 30ms, got %v", http.P50)
	}
	if http.P95 < 40*time.Millisecond || http.Max != 50*time.Millisecond {
		t.Fatalf("unexpected tail latencies: %+v", http)
	}

	grpc := tracker.Summary(SurfaceGRPC)
	if grpc.Observed != 1 || grpc.Max != 5*time.Millisecond {
		t.Fatalf("surfaces must not share samples, got %+v", grpc)
	}
	if got := tracker.Surfaces(); len(got) != 2 || got[0] != SurfaceGRPC || got[1] != SurfaceHTTP {
		t.Fatalf("unexpected surfaces %v", got)
	}
}

func TestLatencyTrackerRingKeepsNewest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	var observed int
	for i := 1; i <= 10; i++ {
		observed = tracker.Observe(SurfaceGRPC, time.Duration(i)*time.Millisecond)
	}
	if observed != 10 {
		t.Fatalf("expected 10 observations, got %d", observed)
	}

	summary := tracker.Summary(SurfaceGRPC)
	if summary.Window != 3 {
		t.Fatalf("expected window of 3, got %d", summary.Window)
	}
	if summary.P50 != 9*time.Millisecond || summary.Max != 10*time.Millisecond {
		t.Fatalf("expected the newest samples 8-10ms to remain, got %+v", summary)
	}
}

func TestLatencyTrackerUnknownSurface(t *testing.T) {
	if summary := NewLatencyTracker(0).Summary("cli"); summary != (LatencySummary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

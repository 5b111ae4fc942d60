package playlist

import "testing"

func TestSegmentCountRoundsUp(t *testing.T) {
	if got := SegmentCount(65, 6); got != 11 {
		t.Fatalf("expected 11 segments, got %d", got)
	}
	if got := SegmentCount(60, 6); got != 10 {
		t.Fatalf("expected 10 segments for exact division, got %d", got)
	}
	if got := SegmentCount(10, 0); got != 0 {
		t.Fatalf("expected 0 segments for zero segment duration, got %d", got)
	}
}

func TestSegmentDurationClipsFinalSegment(t *testing.T) {
	if got := SegmentDuration(0, 65, 6); got != 6 {
		t.Fatalf("expected full-length first segment, got %v", got)
	}
	if got := SegmentDuration(10, 65, 6); got != 5 {
		t.Fatalf("expected clipped final segment of 5s, got %v", got)
	}
}

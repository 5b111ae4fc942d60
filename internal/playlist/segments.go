// Package playlist computes HLS segment counts and renders master and
// variant M3U8 manifests. Grounded on eleven-am/goshl's
// internal/playlist/generator.go string-builder approach, kept
// verbatim in style; the prior keyframe-driven variable segment
// boundaries are replaced with the fixed segmentDurationSec
// arithmetic spec.md §4.5/§8 specifies.
package playlist

import "math"

// SegmentCount returns ⌈duration / segmentDuration⌉, the number of HLS
// segments a tier's variant playlist lists (spec.md §4.5, §8).
func SegmentCount(durationSec, segmentDurationSec int) int {
	if segmentDurationSec <= 0 {
		return 0
	}
	return int(math.Ceil(float64(durationSec) / float64(segmentDurationSec)))
}

// SegmentDuration returns the clipped length of segment index i: the
// configured segment length, except for the final segment which is
// clipped to what remains of the source.
func SegmentDuration(index, durationSec, segmentDurationSec int) float64 {
	start := index * segmentDurationSec
	remaining := float64(durationSec - start)
	if remaining < float64(segmentDurationSec) {
		return remaining
	}
	return float64(segmentDurationSec)
}

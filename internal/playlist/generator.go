package playlist

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/eleven-am/goshl/internal/domain"
)

type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// MasterInput carries what Master needs to know about one media item.
type MasterInput struct {
	MediaID       string
	Container     string // lowercased extension, used to gate the Original tier
	AudioTrackTag domain.AudioTrackTag
	Settings      domain.TranscodingSettings
}

// Master renders the HLS master playlist: an Original variant when the
// source container is natively playable, followed by the four preset
// variants in descending bandwidth order (spec.md §4.5).
func (g *Generator) Master(in MasterInput) string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")

	if domain.NativeContainers[in.Container] {
		b.WriteString(fmt.Sprintf(
			"#EXT-X-STREAM-INF:BANDWIDTH=%d\n%s\n",
			20_000_000,
			variantURI(string(domain.TierOriginal), in.AudioTrackTag),
		))
	}

	for _, tier := range domain.PresetOrder {
		preset := domain.ResolvedPreset(tier, in.Settings)
		bandwidth := (preset.VideoBitrateKbps + preset.AudioBitrateKbps) * 1000
		b.WriteString(fmt.Sprintf(
			"#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n%s\n",
			bandwidth, preset.Width, preset.Height,
			variantURI(string(tier), in.AudioTrackTag),
		))
	}

	return b.String()
}

func variantURI(tier string, tag domain.AudioTrackTag) string {
	return fmt.Sprintf("%s.m3u8?audioTrack=%s", tier, url.QueryEscape(string(tag)))
}

// Variant renders the HLS variant playlist for one tier (spec.md §4.5,
// §8): version 3, target duration = segmentDurationSec+1, VOD type,
// N = ⌈duration/segmentDurationSec⌉ entries, terminated by ENDLIST.
func (g *Generator) Variant(durationSec int, tier domain.TierKind, tag domain.AudioTrackTag, segmentDurationSec int) string {
	n := SegmentCount(durationSec, segmentDurationSec)

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", segmentDurationSec+1))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")

	for i := 0; i < n; i++ {
		dur := SegmentDuration(i, durationSec, segmentDurationSec)
		b.WriteString(fmt.Sprintf("#EXTINF:%.3f,\n", dur))
		b.WriteString(fmt.Sprintf("%s/%d.ts?audioTrack=%s\n", tier, i, url.QueryEscape(string(tag))))
	}

	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}

// QualityInfo describes one entry of the /hls/{id}/qualities response
// (spec.md §4.6).
type QualityInfo struct {
	Tier    domain.TierKind
	Width   *int
	Height  *int
	Bitrate *int // sum of video+audio kbps; nil for Original
}

// Qualities lists the tiers available for a media item: Original only
// when the container is natively playable, followed by the four
// presets in descending order.
func Qualities(container string, settings domain.TranscodingSettings) []QualityInfo {
	var out []QualityInfo
	if domain.NativeContainers[container] {
		out = append(out, QualityInfo{Tier: domain.TierOriginal})
	}
	for _, tier := range domain.PresetOrder {
		preset := domain.ResolvedPreset(tier, settings)
		w, h := preset.Width, preset.Height
		bitrate := preset.VideoBitrateKbps + preset.AudioBitrateKbps
		out = append(out, QualityInfo{Tier: tier, Width: &w, Height: &h, Bitrate: &bitrate})
	}
	return out
}

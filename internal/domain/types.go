// Package domain holds the data model shared by every package of the
// streaming core: media handles, quality tiers, segment addressing,
// transcoding settings and probe results. Nothing in this package talks
// to a filesystem or a subprocess.
package domain

// StreamKind classifies one stream inside a probed container.
type StreamKind string

const (
	StreamVideo    StreamKind = "video"
	StreamAudio    StreamKind = "audio"
	StreamSubtitle StreamKind = "subtitle"
)

// StreamDescriptor is one entry of a Probe result's stream list.
type StreamDescriptor struct {
	StreamIndex   int
	Kind          StreamKind
	CodecShort    string
	CodecLong     string
	Language      string
	Title         string
	IsDefault     bool
	IsForced      bool
	Channels      int
	ChannelLayout string
	SampleRateHz  int
	BitRateBps    int
	Width         int
	Height        int
	FrameRate     float64
}

// ProbeResult is the normalised output of the media probe (component A).
type ProbeResult struct {
	DurationSec int
	Streams     []StreamDescriptor
}

// MediaHandle is the opaque identifier plus resolved path the catalogue
// collaborator hands the core. Read-only here.
type MediaHandle struct {
	ID          string
	Path        string
	DurationSec int
	Container   string // lowercased file extension, no dot
}

// TierKind names one quality tier: Original or one of the fixed presets.
type TierKind string

const (
	TierOriginal TierKind = "original"
	Tier1080p    TierKind = "1080p"
	Tier720p     TierKind = "720p"
	Tier480p     TierKind = "480p"
	Tier360p     TierKind = "360p"
)

// Preset is the static shape of a non-Original tier: target dimensions
// and bitrates before any settings override is applied.
type Preset struct {
	Name             TierKind
	Width            int
	Height           int
	VideoBitrateKbps int
	AudioBitrateKbps int
}

// DefaultPresets mirrors spec.md §3's preset table. PresetOrder fixes the
// descending bandwidth order used when emitting the master playlist.
var DefaultPresets = map[TierKind]Preset{
	Tier1080p: {Name: Tier1080p, Width: 1920, Height: 1080, VideoBitrateKbps: 8000, AudioBitrateKbps: 192},
	Tier720p:  {Name: Tier720p, Width: 1280, Height: 720, VideoBitrateKbps: 5000, AudioBitrateKbps: 128},
	Tier480p:  {Name: Tier480p, Width: 854, Height: 480, VideoBitrateKbps: 2500, AudioBitrateKbps: 128},
	Tier360p:  {Name: Tier360p, Width: 640, Height: 360, VideoBitrateKbps: 1000, AudioBitrateKbps: 96},
}

var PresetOrder = []TierKind{Tier1080p, Tier720p, Tier480p, Tier360p}

// NativeContainers lists the containers that may be served directly and
// that advertise an Original HLS tier.
var NativeContainers = map[string]bool{
	"mp4":  true,
	"webm": true,
}

// AudioTrackTag is either "default" or the stringified absolute stream
// index the client pinned for this rendition.
type AudioTrackTag string

const DefaultAudioTrack AudioTrackTag = "default"

// SegmentKey addresses exactly one cached MPEG-TS segment.
type SegmentKey struct {
	MediaID       string
	AudioTrackTag AudioTrackTag
	Tier          TierKind
	Index         int
}

// TranscodingSettings is the mutable configuration consumed by the
// encoder registry and the segment cache (spec.md §3).
type TranscodingSettings struct {
	Bitrate1080p        int
	Bitrate720p         int
	Bitrate480p         int
	Bitrate360p         int
	SegmentDurationSec  int
	PrefetchSegments    int
	EnableHardwareAccel bool
	Preset              string
	EnableLowLatency    bool
	ThreadCount         int
}

// BitrateOverride returns the settings' override for a tier, or 0 if the
// preset default should be used.
func (s TranscodingSettings) BitrateOverride(tier TierKind) int {
	switch tier {
	case Tier1080p:
		return s.Bitrate1080p
	case Tier720p:
		return s.Bitrate720p
	case Tier480p:
		return s.Bitrate480p
	case Tier360p:
		return s.Bitrate360p
	default:
		return 0
	}
}

// ResolvedPreset applies any settings bitrate override to a tier's
// static preset.
func ResolvedPreset(tier TierKind, settings TranscodingSettings) Preset {
	p := DefaultPresets[tier]
	if override := settings.BitrateOverride(tier); override > 0 {
		p.VideoBitrateKbps = override
	}
	return p
}

// CacheStats is the on-demand report produced by walking the cache root.
type CacheStats struct {
	TotalBytes    int64
	MediaCount    int
	SegmentCount  int
	DiskFreeBytes int64
}

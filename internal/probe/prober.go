// Package probe invokes ffprobe and normalises its output into the
// core's ProbeResult shape. Grounded on eleven-am/goshl's
// internal/probe/prober.go, stripped of its metadata-cache indirection:
// this prober is stateless, as spec.md §4.1 requires.
package probe

import (
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/telemetry"
)

type Prober struct {
	log telemetry.Logger
}

func New(log telemetry.Logger) *Prober {
	return &Prober{log: log.Named("probe")}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecLongName string            `json:"codec_long_name"`
	CodecType     string            `json:"codec_type"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	SampleRate    string            `json:"sample_rate"`
	BitRate       string            `json:"bit_rate"`
	RFrameRate    string            `json:"r_frame_rate"`
	AvgFrameRate  string            `json:"avg_frame_rate"`
	Tags          map[string]string `json:"tags"`
	Disposition   ffprobeDisp       `json:"disposition"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeDisp struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

// Probe runs ffprobe against path and normalises the result. On any
// process or parse failure it returns a zero-value result (duration 0,
// no streams) rather than an error: spec.md §4.1 treats that as
// "unknown layout", not as a fatal condition for direct-serving paths.
func (p *Prober) Probe(ctx context.Context, path string) domain.ProbeResult {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		p.log.Warn("ffprobe failed", "path", path, "error", err)
		return domain.ProbeResult{}
	}

	var raw ffprobeOutput
	if err := json.Unmarshal(output, &raw); err != nil {
		p.log.Warn("ffprobe output unparseable", "path", path, "error", err)
		return domain.ProbeResult{}
	}

	result := domain.ProbeResult{}
	if dur, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
		result.DurationSec = int(math.Round(dur))
	}

	for _, s := range raw.Streams {
		kind, ok := streamKind(s.CodecType)
		if !ok {
			continue
		}

		desc := domain.StreamDescriptor{
			StreamIndex:   s.Index,
			Kind:          kind,
			CodecShort:    s.CodecName,
			CodecLong:     s.CodecLongName,
			Language:      s.Tags["language"],
			Title:         s.Tags["title"],
			IsDefault:     s.Disposition.Default == 1,
			IsForced:      s.Disposition.Forced == 1,
			Channels:      s.Channels,
			ChannelLayout: s.ChannelLayout,
			SampleRateHz:  atoiOrZero(s.SampleRate),
			BitRateBps:    atoiOrZero(s.BitRate),
			Width:         s.Width,
			Height:        s.Height,
			FrameRate:     frameRate(s.RFrameRate, s.AvgFrameRate),
		}
		result.Streams = append(result.Streams, desc)
	}

	return result
}

func streamKind(codecType string) (domain.StreamKind, bool) {
	switch codecType {
	case "video":
		return domain.StreamVideo, true
	case "audio":
		return domain.StreamAudio, true
	case "subtitle":
		return domain.StreamSubtitle, true
	default:
		return "", false
	}
}

func atoiOrZero(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// frameRate prefers the real frame rate, falling back to the average
// rate, and rounds to three decimal places as spec.md §3 requires.
func frameRate(rFrameRate, avgFrameRate string) float64 {
	if v, ok := parseFraction(rFrameRate); ok && v > 0 {
		return round3(v)
	}
	if v, ok := parseFraction(avgFrameRate); ok {
		return round3(v)
	}
	return 0
}

func parseFraction(s string) (float64, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, false
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0, false
	}
	return num / den, true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

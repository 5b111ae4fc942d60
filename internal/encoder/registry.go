// Package encoder detects, selects and parameterises the H.264 encoder
// used for every transcoded tier. Grounded on eleven-am/goshl's
// internal/hwaccel/hwaccel.go (candidate enumeration via `ffmpeg
// -encoders`, priority-ordered Select, a NewConfig-style descriptor per
// candidate), generalised from goshl's 4 accelerators to spec.md §3's
// 6-candidate list and its mandatory self-test.
package encoder

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/telemetry"
)

// Kind classifies an encoder as hardware- or software-backed.
type Kind string

const (
	KindHardware Kind = "hardware"
	KindSoftware Kind = "software"
)

// Descriptor is the detected/selected encoder (domain model §3).
type Descriptor struct {
	Name       string // nvenc, qsv, amf, vaapi, videotoolbox, x264
	FFmpegName string // h264_nvenc, h264_qsv, h264_amf, h264_vaapi, h264_videotoolbox, libx264
	Kind       Kind
	Priority   int
}

var x264 = Descriptor{Name: "x264", FFmpegName: "libx264", Kind: KindSoftware, Priority: 100}

// candidates is the fixed priority-ordered list from spec.md §3. Every
// entry but x264 must both appear in `ffmpeg -encoders` and pass a
// self-test before being selected.
var candidates = []Descriptor{
	{Name: "nvenc", FFmpegName: "h264_nvenc", Kind: KindHardware, Priority: 1},
	{Name: "qsv", FFmpegName: "h264_qsv", Kind: KindHardware, Priority: 2},
	{Name: "amf", FFmpegName: "h264_amf", Kind: KindHardware, Priority: 3},
	{Name: "vaapi", FFmpegName: "h264_vaapi", Kind: KindHardware, Priority: 4},
	{Name: "videotoolbox", FFmpegName: "h264_videotoolbox", Kind: KindHardware, Priority: 5},
	x264,
}

const (
	enumerateTimeout = 5 * time.Second
	selfTestTimeout  = 10 * time.Second
)

// Registry caches the single detected encoder for the process lifetime
// (spec.md §4.2 "Detection runs exactly once per process").
type Registry struct {
	log telemetry.Logger

	once     sync.Once
	detected Descriptor
}

func New(log telemetry.Logger) *Registry {
	return &Registry{log: log.Named("encoder")}
}

// Detect runs the enumerate-then-self-test sequence once and caches the
// winner. Safe to call from multiple goroutines; only the first call
// does any work.
func (r *Registry) Detect(ctx context.Context) {
	r.once.Do(func() {
		r.detected = r.detect(ctx)
		r.log.Info("encoder detected", "name", r.detected.Name, "kind", r.detected.Kind)
	})
}

func (r *Registry) detect(ctx context.Context) Descriptor {
	listed, err := listEncoders(ctx)
	if err != nil {
		r.log.Warn("ffmpeg -encoders failed, falling back to x264", "error", err)
		return x264
	}

	for _, c := range candidates {
		if c.Kind == KindSoftware {
			continue // software x264 is trusted without a self-test
		}
		if !listed[c.FFmpegName] {
			continue
		}
		if err := selfTest(ctx, c); err != nil {
			r.log.Warn("encoder failed self-test, skipping", "name", c.Name, "error", err)
			continue
		}
		return c
	}

	return x264
}

// Active returns the encoder to use right now: the detected encoder,
// unless settings disable hardware acceleration and the detected
// encoder is hardware, in which case software x264 is substituted
// (spec.md §4.2 "Active encoder").
func (r *Registry) Active(settings domain.TranscodingSettings) Descriptor {
	r.Detect(context.Background())
	if !settings.EnableHardwareAccel && r.detected.Kind == KindHardware {
		return x264
	}
	return r.detected
}

var encoderLineRe = regexp.MustCompile(`^\s*V[A-Z\.]{5}\s+(\S+)`)

func listEncoders(ctx context.Context) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, enumerateTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		m := encoderLineRe.FindStringSubmatch(scanner.Text())
		if m != nil {
			found[m[1]] = true
		}
	}
	return found, nil
}

// selfTest encodes one frame of a synthetic black source with the
// candidate encoder, bounded by a 10s timeout (spec.md §4.2, §4.3).
func selfTest(ctx context.Context, c Descriptor) error {
	ctx, cancel := context.WithTimeout(ctx, selfTestTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=c=black:s=320x240:r=1:d=1",
		"-frames:v", "1",
		"-c:v", c.FFmpegName,
		"-f", "null", "-",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("self-test: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

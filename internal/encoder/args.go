package encoder

import (
	"fmt"

	"github.com/eleven-am/goshl/internal/domain"
)

// VideoArgs emits the complete video-encoding flag sequence for one
// tier, per the table in spec.md §4.2. bitrateKbps and the target
// dimensions have already had any settings override/aspect-fit applied
// by the caller.
func (d Descriptor) VideoArgs(bitrateKbps, width, height int, settings domain.TranscodingSettings) []string {
	maxrate := int(1.5 * float64(bitrateKbps))
	bufsize := 2 * bitrateKbps

	var args []string

	switch d.Name {
	case "nvenc":
		args = []string{
			"-c:v", d.FFmpegName,
			"-preset", "p4", "-tune", "hq",
			"-profile:v", "high", "-level", "4.1",
			"-rc", "vbr",
			"-b:v", kbps(bitrateKbps), "-maxrate", kbps(maxrate), "-bufsize", kbps(bufsize),
		}
	case "qsv":
		args = []string{
			"-c:v", d.FFmpegName,
			"-preset", "faster",
			"-profile:v", "high",
			"-b:v", kbps(bitrateKbps), "-maxrate", kbps(maxrate), "-bufsize", kbps(bufsize),
		}
	case "amf":
		args = []string{
			"-c:v", d.FFmpegName,
			"-quality", "balanced",
			"-rc", "vbr_peak",
			"-b:v", kbps(bitrateKbps), "-maxrate", kbps(maxrate), "-bufsize", kbps(bufsize),
		}
	case "vaapi":
		args = []string{
			"-c:v", d.FFmpegName,
			"-b:v", kbps(bitrateKbps), "-maxrate", kbps(maxrate), "-bufsize", kbps(bufsize),
		}
	case "videotoolbox":
		args = []string{
			"-c:v", d.FFmpegName,
			"-profile:v", "high",
			"-b:v", kbps(bitrateKbps), "-maxrate", kbps(maxrate), "-bufsize", kbps(bufsize),
		}
	default: // x264
		preset := settings.Preset
		if preset == "" {
			preset = "veryfast"
		}
		args = []string{
			"-c:v", d.FFmpegName,
			"-preset", preset,
			"-profile:v", "high", "-level", "4.1",
			"-b:v", kbps(bitrateKbps), "-maxrate", kbps(maxrate), "-bufsize", kbps(bufsize),
			"-x264opts", "sliced-threads=1",
		}
		if settings.EnableLowLatency {
			args = append(args, "-tune", "zerolatency")
		}
		if settings.ThreadCount > 0 {
			args = append(args, "-threads", fmt.Sprintf("%d", settings.ThreadCount))
		} else {
			args = append(args, "-threads", "0")
		}
	}

	args = append(args, "-vf", scaleFilter(width, height))
	return args
}

func scaleFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", width, height, width, height)
}

func kbps(v int) string {
	return fmt.Sprintf("%dk", v)
}

// Package ffmpegproc spawns the external transcoder and streams its
// output, either to a file (HLS segment generation) or to an io.Writer
// (live transcode, subtitle extraction). Grounded on eleven-am/goshl's
// internal/transcode/worker.go: the same start/stdout-pipe/Wait shape,
// generalised from "demux emitted segment filenames from stdout" to
// "drain stdout verbatim" since this spec's ffmpeg invocations either
// write directly to an output path or emit one continuous stream.
package ffmpegproc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/eleven-am/goshl/internal/telemetry"
)

type Invoker struct {
	log telemetry.Logger
}

func New(log telemetry.Logger) *Invoker {
	return &Invoker{log: log.Named("ffmpeg")}
}

// RunToFile drives ffmpeg with args to completion. args must already
// contain the output path (the "-y <path>" tail per spec.md §4.4).
// stdin is never written to. Non-zero exit is reported with captured
// stderr; cancellation of ctx sends a hard kill.
func (i *Invoker) RunToFile(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		i.log.Warn("ffmpeg exited non-zero", "error", err, "stderr", stderr.String())
		return fmt.Errorf("ffmpeg: %w: %s", err, lastLines(stderr.String()))
	}
	return nil
}

// RunToWriter drives ffmpeg with args and copies its stdout to w as it
// is produced, for live transcoding and subtitle extraction. Client
// disconnect is propagated by canceling ctx, which hard-kills the
// child. stderr is drained to the log sink, never returned to the
// caller.
func (i *Invoker) RunToWriter(ctx context.Context, args []string, w io.Writer) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	go i.drainStderr(stderr)

	_, copyErr := io.Copy(w, stdout)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		// Client disconnected or the caller cancelled; this is not an
		// error condition (spec.md §7 "client disconnect is not an error").
		return nil
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg: %w", waitErr)
	}
	return copyErr
}

func (i *Invoker) drainStderr(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			i.log.Debug("ffmpeg stderr", "line", string(buf[:n]))
		}
		if err != nil {
			return
		}
	}
}

func lastLines(s string) string {
	const maxLen = 2000
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}

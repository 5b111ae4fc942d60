package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/telemetry"
)

func withFakeFFprobe(t *testing.T, script string) {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ffprobe")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}

	origPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", origPath) })
	_ = os.Setenv("PATH", tmp+string(os.PathListSeparator)+origPath)
}

func TestProbeParsesStreamsAndDuration(t *testing.T) {
	withFakeFFprobe(t, ffprobeScript)

	p := New(telemetry.NewNopLogger())
	got := p.Probe(context.Background(), "/input.mkv")

	if got.DurationSec != 13 {
		t.Fatalf("expected rounded duration 13, got %d", got.DurationSec)
	}
	if len(got.Streams) != 2 {
		t.Fatalf("expected 2 recognised streams, got %d", len(got.Streams))
	}

	video := got.Streams[0]
	if video.Kind != domain.StreamVideo || video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected video stream: %#v", video)
	}
	if video.FrameRate < 29.9 || video.FrameRate > 30.0 {
		t.Fatalf("expected framerate near 29.97, got %v", video.FrameRate)
	}

	audio := got.Streams[1]
	if audio.Kind != domain.StreamAudio || audio.Channels != 6 || audio.Language != "eng" {
		t.Fatalf("unexpected audio stream: %#v", audio)
	}
}

func TestProbeReturnsZeroValueOnFFprobeFailure(t *testing.T) {
	withFakeFFprobe(t, `#!/bin/sh
exit 1
`)

	p := New(telemetry.NewNopLogger())
	got := p.Probe(context.Background(), "/missing.mkv")

	if got.DurationSec != 0 || len(got.Streams) != 0 {
		t.Fatalf("expected zero-value result on failure, got %#v", got)
	}
}

func TestProbeIgnoresUnknownCodecTypes(t *testing.T) {
	withFakeFFprobe(t, `#!/bin/sh
cat <<'EOF'
{"streams":[{"index":0,"codec_type":"data"}],"format":{"duration":"5.0"}}
EOF
`)

	p := New(telemetry.NewNopLogger())
	got := p.Probe(context.Background(), "/x.mkv")

	if len(got.Streams) != 0 {
		t.Fatalf("expected data stream to be dropped, got %#v", got.Streams)
	}
}

const ffprobeScript = `#!/bin/sh
cat <<'EOF'
{"streams":[{"index":0,"codec_name":"h264","codec_type":"video","width":1920,"height":1080,"r_frame_rate":"30000/1001"},{"index":1,"codec_name":"ac3","codec_type":"audio","channels":6,"tags":{"language":"eng"}}],"format":{"duration":"12.6"}}
EOF
`

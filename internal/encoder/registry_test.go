package encoder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/telemetry"
)

func withFakeFFmpeg(t *testing.T, script string) {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}

	origPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", origPath) })
	_ = os.Setenv("PATH", tmp+string(os.PathListSeparator)+origPath)
}

func TestDetectSelectsFirstPassingHardwareCandidate(t *testing.T) {
	withFakeFFmpeg(t, fakeFFmpegNVENCScript)

	r := New(telemetry.NewNopLogger())
	r.Detect(context.Background())

	active := r.Active(domain.TranscodingSettings{EnableHardwareAccel: true})
	if active.Name != "nvenc" {
		t.Fatalf("expected nvenc selected, got %s", active.Name)
	}
}

func TestDetectFallsBackToX264WhenNoHardwareListed(t *testing.T) {
	withFakeFFmpeg(t, fakeFFmpegNoneScript)

	r := New(telemetry.NewNopLogger())
	r.Detect(context.Background())

	active := r.Active(domain.TranscodingSettings{EnableHardwareAccel: true})
	if active.Name != "x264" {
		t.Fatalf("expected x264 fallback, got %s", active.Name)
	}
}

func TestActiveForcesSoftwareWhenHardwareDisabled(t *testing.T) {
	withFakeFFmpeg(t, fakeFFmpegNVENCScript)

	r := New(telemetry.NewNopLogger())
	r.Detect(context.Background())

	active := r.Active(domain.TranscodingSettings{EnableHardwareAccel: false})
	if active.Name != "x264" {
		t.Fatalf("expected x264 when hardware disabled, got %s", active.Name)
	}
}

func TestDetectSkipsCandidateThatFailsSelfTest(t *testing.T) {
	withFakeFFmpeg(t, fakeFFmpegNVENCListedButFailsScript)

	r := New(telemetry.NewNopLogger())
	r.Detect(context.Background())

	active := r.Active(domain.TranscodingSettings{EnableHardwareAccel: true})
	if active.Name != "x264" {
		t.Fatalf("expected x264 after failed self-test, got %s", active.Name)
	}
}

const fakeFFmpegNVENCScript = `#!/bin/sh
if [ "$1" = "-hide_banner" ] && [ "$2" = "-encoders" ]; then
cat <<'EOF'
------ encoders -----
V..... h264_nvenc NVENC H.264 encoder
V..... libx264 libx264 H.264
EOF
exit 0
fi
exit 0
`

const fakeFFmpegNoneScript = `#!/bin/sh
if [ "$1" = "-hide_banner" ] && [ "$2" = "-encoders" ]; then
cat <<'EOF'
------ encoders -----
V..... libx264 libx264 H.264
EOF
exit 0
fi
exit 0
`

const fakeFFmpegNVENCListedButFailsScript = `#!/bin/sh
if [ "$1" = "-hide_banner" ] && [ "$2" = "-encoders" ]; then
cat <<'EOF'
------ encoders -----
V..... h264_nvenc NVENC H.264 encoder
V..... libx264 libx264 H.264
EOF
exit 0
fi

for arg in "$@"; do
  if [ "$arg" = "h264_nvenc" ]; then
    echo "nvenc not available on this device" >&2
    exit 1
  fi
done
exit 0
`

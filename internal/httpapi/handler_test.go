package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/encoder"
	"github.com/eleven-am/goshl/internal/ffmpegproc"
	"github.com/eleven-am/goshl/internal/hlscache"
	"github.com/eleven-am/goshl/internal/settingscache"
	"github.com/eleven-am/goshl/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testCatalogue struct {
	video    *domain.VideoHandle
	audio    *domain.AudioHandle
	settings domain.TranscodingSettings
}

func (c *testCatalogue) GetVideo(ctx context.Context, mediaID string) (*domain.VideoHandle, error) {
	if c.video == nil || c.video.ID != mediaID {
		return nil, nil
	}
	return c.video, nil
}

func (c *testCatalogue) GetAudio(ctx context.Context, mediaID string) (*domain.AudioHandle, error) {
	if c.audio == nil || c.audio.ID != mediaID {
		return nil, nil
	}
	return c.audio, nil
}

func (c *testCatalogue) GetTranscodingSettings(ctx context.Context) (domain.TranscodingSettings, error) {
	return c.settings, nil
}

type allowAllVerifier struct{}

func (allowAllVerifier) VerifyBearer(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, nil
	}
	return &domain.Principal{Subject: "tester"}, nil
}

func newTestHandler(t *testing.T, cat *testCatalogue) (*Handler, string) {
	t.Helper()
	tmp := t.TempDir()
	script := filepath.Join(tmp, "ffmpeg")
	if err := os.WriteFile(script, []byte(fakeHandlerFFmpegScript), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	origPath := os.Getenv("PATH")
	t.Cleanup(func() { _ = os.Setenv("PATH", origPath) })
	_ = os.Setenv("PATH", tmp+string(os.PathListSeparator)+origPath)

	root := t.TempDir()
	log := telemetry.NewNopLogger()
	invoker := ffmpegproc.New(log)
	encoders := encoder.New(log)
	settings := settingscache.New(cat, domain.TranscodingSettings{}, log)
	cache := hlscache.New(root, invoker, encoders, settings, log)

	return New(cat, allowAllVerifier{}, cache, invoker, settings, log), root
}

const fakeHandlerFFmpegScript = `#!/bin/sh
prev=""
for arg in "$@"; do
  if [ "$prev" = "-y" ]; then
    echo "segment-bytes" > "$arg"
    exit 0
  fi
  prev="$arg"
done
echo "stdout-bytes"
exit 0
`

func TestRoutesRejectMissingBearerToken(t *testing.T) {
	cat := &testCatalogue{}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/hls/movie/qualities", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetMasterPlaylistIncludesOriginalForMP4(t *testing.T) {
	cat := &testCatalogue{
		video:    &domain.VideoHandle{ID: "movie", Path: "/media/movie.mp4", DurationSec: 120},
		settings: domain.TranscodingSettings{SegmentDurationSec: 6},
	}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/hls/movie/master.m3u8?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "original.m3u8") {
		t.Fatalf("expected master playlist to reference original tier, got %s", w.Body.String())
	}
}

func TestGetVariantPlaylistRejectsUnknownQuality(t *testing.T) {
	cat := &testCatalogue{
		video:    &domain.VideoHandle{ID: "movie", Path: "/media/movie.mp4", DurationSec: 120},
		settings: domain.TranscodingSettings{SegmentDurationSec: 6},
	}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/hls/movie/4k.m3u8?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetVariantPlaylistServesKnownTier(t *testing.T) {
	cat := &testCatalogue{
		video:    &domain.VideoHandle{ID: "movie", Path: "/media/movie.mp4", DurationSec: 65},
		settings: domain.TranscodingSettings{SegmentDurationSec: 6},
	}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/hls/movie/720p.m3u8?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "#EXT-X-ENDLIST") {
		t.Fatalf("expected variant playlist body, got %s", w.Body.String())
	}
}

func TestGetSegmentRejectsInvalidIndex(t *testing.T) {
	cat := &testCatalogue{
		video:    &domain.VideoHandle{ID: "movie", Path: "/media/movie.mkv", DurationSec: 65},
		settings: domain.TranscodingSettings{SegmentDurationSec: 6},
	}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/hls/movie/720p/not-a-number.ts?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetSegmentGeneratesAndServes(t *testing.T) {
	cat := &testCatalogue{
		video:    &domain.VideoHandle{ID: "movie", Path: "/media/movie.mkv", DurationSec: 65},
		settings: domain.TranscodingSettings{SegmentDurationSec: 6},
	}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/hls/movie/720p/0.ts?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != "video/mp2t" {
		t.Fatalf("expected video/mp2t content type, got %s", w.Header().Get("Content-Type"))
	}
}

func TestGetSegmentRejectsOutOfRangeIndex(t *testing.T) {
	cat := &testCatalogue{
		video:    &domain.VideoHandle{ID: "movie", Path: "/media/movie.mkv", DurationSec: 65},
		settings: domain.TranscodingSettings{SegmentDurationSec: 6},
	}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/hls/movie/720p/11.ts?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for out-of-range index, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetAudioServesFullBody(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(audioPath, []byte("id3-frame-data"), 0o644); err != nil {
		t.Fatalf("seed audio file: %v", err)
	}
	cat := &testCatalogue{audio: &domain.AudioHandle{ID: "track", Path: audioPath}}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/audio/track?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "audio/mpeg" {
		t.Fatalf("expected audio/mpeg, got %s", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "id3-frame-data" {
		t.Fatalf("unexpected audio body: %q", w.Body.String())
	}
}

func TestGetAudioHonoursRangeHeader(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(audioPath, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("seed audio file: %v", err)
	}
	cat := &testCatalogue{audio: &domain.AudioHandle{ID: "track", Path: audioPath}}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/audio/track?token=abc", nil)
	req.Header.Set("Range", "bytes=2-4")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", w.Code)
	}
	if w.Body.String() != "234" {
		t.Fatalf("expected ranged body '234', got %q", w.Body.String())
	}
}

func TestGetVideoServesDirectlyForNativeContainer(t *testing.T) {
	videoPath := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(videoPath, []byte("moov-atom-bytes"), 0o644); err != nil {
		t.Fatalf("seed video file: %v", err)
	}
	cat := &testCatalogue{video: &domain.VideoHandle{ID: "movie", Path: videoPath, DurationSec: 10}}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/video/movie?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "moov-atom-bytes" {
		t.Fatalf("unexpected video body: %q", w.Body.String())
	}
}

func TestGetVideoTranscodesWhenExplicitAudioTrackRequested(t *testing.T) {
	videoPath := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(videoPath, []byte("moov-atom-bytes"), 0o644); err != nil {
		t.Fatalf("seed video file: %v", err)
	}
	cat := &testCatalogue{video: &domain.VideoHandle{ID: "movie", Path: videoPath, DurationSec: 10}}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/video/movie?token=abc&audioTrack=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "video/mp4" {
		t.Fatalf("expected video/mp4, got %s", w.Header().Get("Content-Type"))
	}
	if w.Body.String() != "stdout-bytes\n" {
		t.Fatalf("expected live-transcoded stdout body, got %q", w.Body.String())
	}
}

func TestGetSubtitlesRequiresStreamIndex(t *testing.T) {
	cat := &testCatalogue{video: &domain.VideoHandle{ID: "movie", Path: "/media/movie.mkv", DurationSec: 10}}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/subtitles/movie?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetTrickplayMetaReadsResolutionDirectories(t *testing.T) {
	thumbsRoot := t.TempDir()
	resDir := filepath.Join(thumbsRoot, "320 - 10x10")
	if err := os.MkdirAll(resDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(resDir, "0.jpg"), []byte("not-a-real-jpeg"), 0o644); err != nil {
		t.Fatalf("seed sprite: %v", err)
	}

	cat := &testCatalogue{video: &domain.VideoHandle{ID: "movie", Path: "/media/movie.mp4", ThumbsPath: thumbsRoot}}
	h, _ := newTestHandler(t, cat)

	r := h.Engine()
	req := httptest.NewRequest(http.MethodGet, "/trickplay/movie?token=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"width":320`) {
		t.Fatalf("expected width 320 in response, got %s", w.Body.String())
	}
}

package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/ffmpegproc"
	"github.com/eleven-am/goshl/internal/hlscache"
	"github.com/eleven-am/goshl/internal/playlist"
	"github.com/eleven-am/goshl/internal/settingscache"
	"github.com/eleven-am/goshl/internal/telemetry"
)

// gin.SetMode is left to the host application; this package only wires
// routes onto whatever engine it is given.

// Handler wires the streaming endpoints to their collaborators. One
// Handler is shared by every request.
type Handler struct {
	catalogue domain.Catalogue
	verifier  domain.BearerVerifier
	cache     *hlscache.Cache
	invoker   *ffmpegproc.Invoker
	settings  *settingscache.Cache
	generator *playlist.Generator
	log       telemetry.Logger
}

func New(
	catalogue domain.Catalogue,
	verifier domain.BearerVerifier,
	cache *hlscache.Cache,
	invoker *ffmpegproc.Invoker,
	settings *settingscache.Cache,
	log telemetry.Logger,
) *Handler {
	return &Handler{
		catalogue: catalogue,
		verifier:  verifier,
		cache:     cache,
		invoker:   invoker,
		settings:  settings,
		generator: playlist.NewGenerator(),
		log:       log.Named("httpapi"),
	}
}

// Engine builds a ready-to-serve gin.Engine with CORS and bearer auth
// applied to every streaming route.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(requestID())

	group := r.Group("/", bearerAuth(h.verifier))
	h.Routes(group)
	return r
}

// WrapEngine instruments a built engine with OpenTelemetry spans per
// request, for hosts that want tracing without managing otelhttp
// themselves.
func WrapEngine(r *gin.Engine) http.Handler {
	return telemetry.WrapHTTP("httpapi", r)
}

// Routes registers the streaming surface on an existing router group,
// for embedding into a larger application's gin engine.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/video/:id", h.GetVideo)
	r.GET("/audio/:id", h.GetAudio)
	r.GET("/subtitles/:id", h.GetSubtitles)
	r.GET("/trickplay/:id", h.GetTrickplayMeta)
	r.GET("/trickplay/:id/:width/:index", h.GetTrickplaySprite)
	r.GET("/hls/:id/master.m3u8", h.GetMasterPlaylist)
	r.GET("/hls/:id/qualities", h.GetQualities)
	r.GET("/hls/:id/:quality", h.GetVariantPlaylist)
	r.GET("/hls/:id/:quality/:segment", h.GetSegment)
}

var tierNames = map[string]domain.TierKind{
	"original": domain.TierOriginal,
	"1080p":    domain.Tier1080p,
	"720p":     domain.Tier720p,
	"480p":     domain.Tier480p,
	"360p":     domain.Tier360p,
}

func parseTier(quality string) (domain.TierKind, bool) {
	t, ok := tierNames[quality]
	return t, ok
}

func audioTrackTag(c *gin.Context) domain.AudioTrackTag {
	if v := c.Query("audioTrack"); v != "" {
		return domain.AudioTrackTag(v)
	}
	return domain.DefaultAudioTrack
}

// GetMasterPlaylist serves GET /hls/{id}/master.m3u8 (spec.md §4.5,
// §4.6).
func (h *Handler) GetMasterPlaylist(c *gin.Context) {
	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil {
		c.Status(http.StatusNotFound)
		return
	}

	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	out := h.generator.Master(playlist.MasterInput{
		MediaID:       video.ID,
		Container:     containerOf(video.Path),
		AudioTrackTag: audioTrackTag(c),
		Settings:      settings,
	})

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(out))
}

// GetVariantPlaylist serves GET /hls/{id}/{quality}.m3u8. The quality
// segment shares its path position and param name with GetSegment's
// leading {quality} so gin's router tree accepts both routes (gin
// resolves static siblings like "master.m3u8" and "qualities" first,
// and allows only one wildcard name per position). The ".m3u8" suffix
// is trimmed here rather than in the route pattern.
func (h *Handler) GetVariantPlaylist(c *gin.Context) {
	raw := c.Param("quality")
	quality := strings.TrimSuffix(raw, ".m3u8")
	if quality == raw {
		c.Status(http.StatusBadRequest)
		return
	}

	tier, ok := parseTier(quality)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil {
		c.Status(http.StatusNotFound)
		return
	}

	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	out := h.generator.Variant(video.DurationSec, tier, audioTrackTag(c), settings.SegmentDurationSec)

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(out))
}

// GetQualities serves GET /hls/{id}/qualities.
func (h *Handler) GetQualities(c *gin.Context) {
	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil {
		c.Status(http.StatusNotFound)
		return
	}

	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	qualities := playlist.Qualities(containerOf(video.Path), settings)
	c.JSON(http.StatusOK, gin.H{"qualities": qualities})
}

var segmentNameRe = regexp.MustCompile(`^(\d+)\.ts$`)

// GetSegment serves GET /hls/{id}/{quality}/{segment}.ts, the cache
// read path of spec.md §4.4.
func (h *Handler) GetSegment(c *gin.Context) {
	tier, ok := parseTier(c.Param("quality"))
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	m := segmentNameRe.FindStringSubmatch(c.Param("segment"))
	if m == nil {
		c.Status(http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(m[1])
	if err != nil || index < 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil {
		c.Status(http.StatusNotFound)
		return
	}

	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if index >= playlist.SegmentCount(video.DurationSec, settings.SegmentDurationSec) {
		c.Status(http.StatusNotFound)
		return
	}

	path, err := h.cache.Get(c.Request.Context(), hlscache.SegmentRequest{
		MediaID:       video.ID,
		SourcePath:    video.Path,
		DurationSec:   video.DurationSec,
		AudioTrackTag: audioTrackTag(c),
		Tier:          tier,
		Index:         index,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	serveFileRangeAware(c, path, "video/mp2t", "public, max-age=3600")
}

// GetVideo serves GET /video/{id}: range-addressable direct play for
// native containers, or a chunked live-transcode fallback otherwise
// (spec.md §4.6 "Direct video").
func (h *Handler) GetVideo(c *gin.Context) {
	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil {
		c.Status(http.StatusNotFound)
		return
	}
	if _, err := statExists(video.Path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	container := containerOf(video.Path)
	explicitAudio := c.Query("audioTrack") != ""

	if domain.NativeContainers[container] && !explicitAudio {
		serveFileRangeAware(c, video.Path, videoContentType(container), "")
		return
	}

	h.liveTranscodeVideo(c, video, container)
}

func (h *Handler) liveTranscodeVideo(c *gin.Context, video *domain.VideoHandle, container string) {
	args := []string{}
	if start := c.Query("start"); start != "" {
		args = append(args, "-ss", start)
	}
	args = append(args, "-i", video.Path)

	audioMap := "0:a:0"
	if tag := c.Query("audioTrack"); tag != "" {
		audioMap = "0:" + tag
	}
	args = append(args, "-map", "0:v:0", "-map", audioMap)

	if domain.NativeContainers[container] {
		args = append(args, "-c:v", "copy", "-c:a", "copy")
	} else {
		args = append(args, "-c:v", "libx264", "-preset", "ultrafast", "-tune", "zerolatency", "-c:a", "aac")
	}

	args = append(args,
		"-movflags", "frag_keyframe+empty_moov+faststart",
		"-avoid_negative_ts", "make_zero",
		"-f", "mp4", "-",
	)

	c.Header("Content-Type", "video/mp4")
	c.Status(http.StatusOK)
	if err := h.invoker.RunToWriter(c.Request.Context(), args, c.Writer); err != nil {
		h.log.Warn("live transcode failed", "media", video.ID, "error", err)
	}
}

// GetAudio serves GET /audio/{id}: range-serving only, never
// transcoded (spec.md §4.6 "Direct audio").
func (h *Handler) GetAudio(c *gin.Context) {
	audio, err := h.catalogue.GetAudio(c.Request.Context(), c.Param("id"))
	if err != nil || audio == nil {
		c.Status(http.StatusNotFound)
		return
	}
	if _, err := statExists(audio.Path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	serveFileRangeAware(c, audio.Path, audioContentType(containerOf(audio.Path)), "")
}

// GetSubtitles serves GET /subtitles/{id}?streamIndex=i, transmuxing
// the named stream to WebVTT (spec.md §4.6 "Subtitles").
func (h *Handler) GetSubtitles(c *gin.Context) {
	streamIndex := c.Query("streamIndex")
	if streamIndex == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	video, err := h.catalogue.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil || video == nil {
		c.Status(http.StatusNotFound)
		return
	}

	args := []string{
		"-i", video.Path,
		"-map", fmt.Sprintf("0:%s", streamIndex),
		"-c:s", "webvtt",
		"-f", "webvtt", "-",
	}

	c.Header("Content-Type", "text/vtt")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Status(http.StatusOK)
	if err := h.invoker.RunToWriter(c.Request.Context(), args, c.Writer); err != nil {
		h.log.Warn("subtitle extraction failed", "media", video.ID, "error", err)
	}
}

func statExists(path string) (bool, error) {
	_, err := os.Stat(path)
	return err == nil, err
}

// Package hlscache is the on-demand HLS segment cache: single-flight
// generation, access-time maintenance, prefetch and per-media purge
// (spec.md §4.4, "THE CORE"). Grounded on eleven-am/goshl's
// internal/transcode/pool.go and worker.go for the job-dispatch shape
// (a collaborator builds an argument vector, a worker drives ffmpeg,
// the caller decides success/failure) and internal/segment for the
// storage-boundary naming; eleven-am/goshl's pluggable Storage/
// Coordinator pair is collapsed here into a concrete on-disk layout
// plus the inflight registry of spec.md §8, since this spec has exactly
// one cache implementation rather than a swappable backend.
package hlscache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/encoder"
	"github.com/eleven-am/goshl/internal/ffmpegproc"
	"github.com/eleven-am/goshl/internal/metrics"
	"github.com/eleven-am/goshl/internal/playlist"
	"github.com/eleven-am/goshl/internal/settingscache"
	"github.com/eleven-am/goshl/internal/telemetry"
)

// SegmentRequest names one segment the caller wants served.
type SegmentRequest struct {
	MediaID       string
	SourcePath    string
	DurationSec   int
	AudioTrackTag domain.AudioTrackTag
	Tier          domain.TierKind
	Index         int
}

// Cache is the on-demand segment materialiser. One Cache instance is
// shared by every request handler for the process lifetime.
type Cache struct {
	root     string
	invoker  *ffmpegproc.Invoker
	encoders *encoder.Registry
	settings *settingscache.Cache
	log      telemetry.Logger

	requestInflight  *inflightRegistry
	prefetchInflight *inflightRegistry

	metrics *metrics.Collectors // optional; nil disables instrumentation
}

func New(root string, invoker *ffmpegproc.Invoker, encoders *encoder.Registry, settings *settingscache.Cache, log telemetry.Logger) *Cache {
	return &Cache{
		root:             root,
		invoker:          invoker,
		encoders:         encoders,
		settings:         settings,
		log:              log.Named("hlscache"),
		requestInflight:  newInflightRegistry(),
		prefetchInflight: newInflightRegistry(),
	}
}

// WithMetrics attaches Prometheus instrumentation. Optional: a Cache
// with no metrics attached behaves identically, just unobserved.
func (c *Cache) WithMetrics(m *metrics.Collectors) *Cache {
	c.metrics = m
	return c
}

// SegmentPath returns the on-disk path a segment occupies, whether or
// not it currently exists: <cacheRoot>/<mediaId>/a<audioTrackTag>/<tier>/<index>.ts
// (spec.md §6 "On-disk layout").
func (c *Cache) SegmentPath(req SegmentRequest) string {
	return filepath.Join(c.root, req.MediaID, "a"+string(req.AudioTrackTag), string(req.Tier), fmt.Sprintf("%d.ts", req.Index))
}

func keyOf(req SegmentRequest) string {
	return fmt.Sprintf("%s|%s|%s|%d", req.MediaID, req.AudioTrackTag, req.Tier, req.Index)
}

// Get implements the read path of spec.md §4.4: serve a warm file,
// await a matching in-flight generation, or drive one itself. On
// success it schedules prefetch of the following segments before
// returning.
func (c *Cache) Get(ctx context.Context, req SegmentRequest) (string, error) {
	path := c.SegmentPath(req)

	if warm, err := isWarm(path); err != nil {
		return "", err
	} else if warm {
		touch(path)
		c.schedulePrefetch(req)
		return path, nil
	}

	key := keyOf(req)
	entry, owner := c.requestInflight.start(key)
	if !owner {
		<-entry.done
		if warm, err := isWarm(path); err == nil && warm {
			touch(path)
			c.schedulePrefetch(req)
			return path, nil
		}
		return "", classifyGenerateErr(entry.err)
	}

	err := c.generate(ctx, req, path)
	c.requestInflight.finish(key, entry, err)
	if err != nil {
		return "", classifyGenerateErr(err)
	}

	touch(path)
	c.schedulePrefetch(req)
	return path, nil
}

// isWarm reports whether path exists and is non-empty. A zero-byte
// file is a crashed generation and is removed (spec.md §4.4 step 2).
func isWarm(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		os.Remove(path)
		return false, nil
	}
	return true, nil
}

func touch(path string) {
	now := time.Now()
	_ = os.Chtimes(path, now, now)
}

// generate runs one transcoder invocation for req, writing to a
// temporary file and atomically renaming into place so concurrent
// readers never observe a partial segment (spec.md §8).
func (c *Cache) generate(ctx context.Context, req SegmentRequest, finalPath string) error {
	runID := uuid.New().String()
	log := c.log.Named(runID)

	settings, err := c.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	startTime := req.Index * settings.SegmentDurationSec
	clippedLen := req.DurationSec - startTime
	if clippedLen > settings.SegmentDurationSec {
		clippedLen = settings.SegmentDurationSec
	}
	if clippedLen <= 0 {
		return fmt.Errorf("invalid segment index %d: %w", req.Index, errInvalidIndex)
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("mkdir cache dir: %w", err)
	}

	tmpPath := finalPath + ".tmp"
	args := c.buildArgs(req, startTime, clippedLen, settings, tmpPath)

	log.Debug("generating segment", "media", req.MediaID, "tier", req.Tier, "index", req.Index)

	start := time.Now()
	runErr := c.invoker.RunToFile(ctx, args)
	if c.metrics != nil {
		c.metrics.GenerationDuration.WithLabelValues(string(req.Tier)).Observe(time.Since(start).Seconds())
	}
	if runErr != nil {
		os.Remove(tmpPath)
		if c.metrics != nil {
			c.metrics.GenerationFailures.WithLabelValues(string(req.Tier)).Inc()
		}
		log.Warn("transcoder invocation failed", "error", runErr)
		return runErr
	}

	if info, statErr := os.Stat(tmpPath); statErr != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		if c.metrics != nil {
			c.metrics.GenerationFailures.WithLabelValues(string(req.Tier)).Inc()
		}
		return fmt.Errorf("transcoder produced empty output")
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize segment: %w", err)
	}
	return nil
}

var errInvalidIndex = errors.New("invalid segment index")

// classifyGenerateErr maps a generate failure to the HTTP-facing error
// taxonomy of spec.md §7: an out-of-range index is a 404, never the 500
// a genuine transcoder failure produces.
func classifyGenerateErr(err error) error {
	if errors.Is(err, errInvalidIndex) {
		return domain.NotFound("segment index out of range")
	}
	return domain.GenerationFailed("segment generation failed", err)
}

func (c *Cache) buildArgs(req SegmentRequest, startTime, clippedLen int, settings domain.TranscodingSettings, outputPath string) []string {
	seek := fmt.Sprintf("%d", startTime)
	duration := fmt.Sprintf("%d", clippedLen)

	var args []string
	original := req.Tier == domain.TierOriginal

	if original {
		args = append(args, "-i", req.SourcePath, "-ss", seek, "-copyts", "-output_ts_offset", seek)
	} else {
		args = append(args, "-ss", seek, "-i", req.SourcePath, "-output_ts_offset", seek)
	}
	args = append(args, "-t", duration)

	audioMap := "0:a:0"
	if req.AudioTrackTag != domain.DefaultAudioTrack {
		audioMap = "0:" + string(req.AudioTrackTag)
	}
	args = append(args, "-map", "0:v:0", "-map", audioMap)

	if original {
		args = append(args, "-c:v", "copy", "-c:a", "copy")
	} else {
		preset := domain.ResolvedPreset(req.Tier, settings)
		desc := c.encoders.Active(settings)
		args = append(args, desc.VideoArgs(preset.VideoBitrateKbps, preset.Width, preset.Height, settings)...)
		args = append(args,
			"-c:a", "aac", "-b:a", fmt.Sprintf("%dk", preset.AudioBitrateKbps), "-ac", "2",
			"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", settings.SegmentDurationSec),
		)
	}

	args = append(args, "-f", "mpegts", "-mpegts_copyts", "1", "-avoid_negative_ts", "disabled", "-y", outputPath)
	return args
}

// schedulePrefetch warms the next prefetchSegments segments in the
// background, using a namespace distinct from request-driven
// generation so prefetch never blocks a concurrent direct read
// (spec.md §4.4 "Prefetch").
func (c *Cache) schedulePrefetch(req SegmentRequest) {
	settings, err := c.settings.Get(context.Background())
	if err != nil {
		return
	}
	lastIndex := playlist.SegmentCount(req.DurationSec, settings.SegmentDurationSec) - 1

	for k := 1; k <= settings.PrefetchSegments; k++ {
		idx := req.Index + k
		if idx > lastIndex {
			break
		}
		next := req
		next.Index = idx
		c.prefetchOne(next)
	}
}

func (c *Cache) prefetchOne(req SegmentRequest) {
	path := c.SegmentPath(req)
	if warm, err := isWarm(path); err == nil && warm {
		return
	}

	key := "prefetch|" + keyOf(req)
	entry, owner := c.prefetchInflight.start(key)
	if !owner {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		err := c.generate(ctx, req, path)
		c.prefetchInflight.finish(key, entry, err)
		if err != nil {
			c.log.Warn("prefetch failed", "media", req.MediaID, "tier", req.Tier, "index", req.Index, "error", err)
		}
	}()
}

// Purge removes the entire on-disk subtree for mediaID (spec.md §4.4
// "Per-media purge"), called when the catalogue deletes a media item.
func (c *Cache) Purge(mediaID string) error {
	return os.RemoveAll(filepath.Join(c.root, mediaID))
}

// Stats walks the cache root and reports aggregate size and entry
// counts (spec.md §4.4 "stats"). Disk free space is not part of this
// report.
func (c *Cache) Stats() (totalBytes int64, mediaCount, segmentCount int, err error) {
	mediaDirs, err := os.ReadDir(c.root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, 0, 0, nil
	}
	if err != nil {
		return 0, 0, 0, err
	}

	for _, md := range mediaDirs {
		if !md.IsDir() {
			continue
		}
		mediaCount++
		err := filepath.WalkDir(filepath.Join(c.root, md.Name()), func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			info, infoErr := d.Info()
			if infoErr != nil {
				return infoErr
			}
			totalBytes += info.Size()
			if filepath.Ext(path) == ".ts" {
				segmentCount++
			}
			return nil
		})
		if err != nil {
			return 0, 0, 0, err
		}
	}

	return totalBytes, mediaCount, segmentCount, nil
}

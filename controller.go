// Package goshl wires the on-demand HLS segment cache, encoder
// registry, media prober, streaming HTTP surface and cleanup
// supervisor into one process-lifetime Service.
//
// # Architecture
//
// The core never touches persistent storage directly. Two interfaces,
// implemented by the host application, supply everything it needs:
//
//   - domain.Catalogue resolves a media id to a filesystem path and
//     duration, and serves the current transcoding settings.
//   - domain.BearerVerifier validates an opaque bearer token.
//
// # Basic usage
//
//	svc, err := goshl.NewService(goshl.Options{
//	    Catalogue: myCatalogue,
//	    Verifier:  myVerifier,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Start(ctx)
//	defer svc.Stop()
//
//	http.ListenAndServe(":8080", svc.Handler())
package goshl

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eleven-am/goshl/internal/cleanup"
	"github.com/eleven-am/goshl/internal/config"
	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/encoder"
	"github.com/eleven-am/goshl/internal/ffmpegproc"
	"github.com/eleven-am/goshl/internal/hlscache"
	"github.com/eleven-am/goshl/internal/httpapi"
	"github.com/eleven-am/goshl/internal/metrics"
	"github.com/eleven-am/goshl/internal/probe"
	"github.com/eleven-am/goshl/internal/settingscache"
	"github.com/eleven-am/goshl/internal/telemetry"
)

type (
	// Catalogue resolves media ids and transcoding settings. Persistent
	// storage, library scanning and metadata acquisition all live on the
	// other side of this interface (spec.md §6).
	Catalogue = domain.Catalogue

	// BearerVerifier validates an opaque bearer token supplied either
	// via the Authorization header or a token query parameter.
	BearerVerifier = domain.BearerVerifier
)

// Options configures a Service. Catalogue and Verifier are required;
// everything else falls back to config.Load's defaults (environment
// variable MEDIASTREAM_CONFIG, then ./mediastream.config.json, then
// built-in defaults).
type Options struct {
	// Catalogue is required. Resolves media ids to filesystem handles
	// and serves transcoding settings.
	Catalogue Catalogue

	// Verifier is required. Validates bearer tokens presented by
	// clients.
	Verifier BearerVerifier

	// LogLevel is an hclog level name ("trace", "debug", "info", "warn",
	// "error"). Defaults to "info".
	LogLevel string

	// DisableMetrics skips Prometheus collector registration and the
	// Metrics() handler.
	DisableMetrics bool
}

func (o *Options) validate() {
	if o.Catalogue == nil {
		panic("goshl: Catalogue is required")
	}
	if o.Verifier == nil {
		panic("goshl: Verifier is required")
	}
}

// Service is the process-lifetime entry point: it owns the HLS segment
// cache, the encoder registry, the cleanup supervisor, and the
// streaming HTTP surface built on top of them.
type Service struct {
	cfg *config.Config
	log telemetry.Logger

	invoker  *ffmpegproc.Invoker
	encoders *encoder.Registry
	prober   *probe.Prober
	settings *settingscache.Cache
	cache    *hlscache.Cache
	cleanup  *cleanup.Supervisor
	handler  *httpapi.Handler

	metricsReg *prometheus.Registry
}

// NewService loads configuration and assembles every collaborator. It
// does not start any background goroutine; call Start for that.
func NewService(opts Options) (*Service, error) {
	opts.validate()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := telemetry.NewLogger("mediastream", opts.LogLevel)

	invoker := ffmpegproc.New(log)
	encoders := encoder.New(log)
	prober := probe.New(log)
	settings := settingscache.New(opts.Catalogue, cfg.TranscodingSettings(), log)
	cache := hlscache.New(cfg.HLSCache.Path, invoker, encoders, settings, log)
	sup := cleanup.New(cfg.HLSCache.Path, cfg.HLSCache.SegmentTTLHours, log)

	svc := &Service{
		cfg:      cfg,
		log:      log,
		invoker:  invoker,
		encoders: encoders,
		prober:   prober,
		settings: settings,
		cache:    cache,
		cleanup:  sup,
	}

	if !opts.DisableMetrics {
		collectors, reg := metrics.New()
		svc.metricsReg = reg
		cache.WithMetrics(collectors)
		sup.WithMetrics(collectors)
	}

	svc.handler = httpapi.New(opts.Catalogue, opts.Verifier, cache, invoker, settings, log)

	return svc, nil
}

// Start detects the local encoder (idempotent after the first call)
// and starts the cleanup supervisor's sweep loop. Canceling ctx stops
// the supervisor's loop from within; call Stop to wait for it to exit.
func (s *Service) Start(ctx context.Context) {
	s.encoders.Detect(ctx)
	s.cleanup.Start(ctx)
}

// Stop waits for the cleanup supervisor's current sweep, if any, to
// finish and then returns. Segment generations already in flight are
// not interrupted (spec.md §5).
func (s *Service) Stop() {
	s.cleanup.Stop()
}

// Handler returns the gin engine serving every streaming endpoint
// (spec.md §4.6), ready to mount at the process's HTTP listener.
func (s *Service) Handler() *gin.Engine {
	return s.handler.Engine()
}

// Routes registers the streaming surface on an existing router group,
// for hosts embedding it into a larger gin application.
func (s *Service) Routes(r gin.IRouter) {
	s.handler.Routes(r)
}

// Metrics returns the Prometheus exposition handler, or nil if metrics
// were disabled via Options.DisableMetrics.
func (s *Service) Metrics() http.Handler {
	if s.metricsReg == nil {
		return nil
	}
	return metrics.Handler(s.metricsReg)
}

// InvalidateMediaCache removes every cached HLS segment for mediaID.
// The catalogue collaborator calls this when a media item is deleted
// or replaced (spec.md §6).
func (s *Service) InvalidateMediaCache(mediaID string) error {
	return s.cache.Purge(mediaID)
}

// CacheStats reports on-disk occupancy of the HLS segment cache.
func (s *Service) CacheStats() (totalBytes int64, mediaCount, segmentCount int, err error) {
	return s.cache.Stats()
}

// Probe runs ffprobe against path directly, for hosts that want stream
// metadata (e.g. available subtitle tracks) outside of a streaming
// request.
func (s *Service) Probe(ctx context.Context, path string) domain.ProbeResult {
	return s.prober.Probe(ctx, path)
}

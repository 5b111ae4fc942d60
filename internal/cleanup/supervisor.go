// Package cleanup runs the periodic TTL sweep that bounds the on-disk
// HLS cache (spec.md §4.8). Grounded on eleven-am/goshl's
// internal/transcode/pool.go Start/Stop/WaitGroup lifecycle shape, and
// on mantonx/viewra's go.mod adoption of shirou/gopsutil/v4 for disk
// free-space reporting.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/eleven-am/goshl/internal/domain"
	"github.com/eleven-am/goshl/internal/metrics"
	"github.com/eleven-am/goshl/internal/telemetry"
)

const (
	firstSweepDelay = 30 * time.Second
	sweepInterval   = time.Hour
)

// Supervisor periodically sweeps a cache root, deleting segment and
// playlist files whose access time has exceeded the configured TTL.
type Supervisor struct {
	root            string
	segmentTTLHours int
	log             telemetry.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastStats   domain.CacheStats
	lastSweepAt time.Time

	metrics *metrics.Collectors
}

func New(root string, segmentTTLHours int, log telemetry.Logger) *Supervisor {
	return &Supervisor{root: root, segmentTTLHours: segmentTTLHours, log: log.Named("cleanup")}
}

// WithMetrics attaches Prometheus instrumentation. Optional.
func (s *Supervisor) WithMetrics(m *metrics.Collectors) *Supervisor {
	s.metrics = m
	return s
}

// Start launches the sweep loop: one sweep 30s after start, then
// hourly. Safe to call once; a second call is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Supervisor) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(firstSweepDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.sweep()
			timer.Reset(sweepInterval)
		}
	}
}

// sweep walks the cache root depth-first, deleting expired segment and
// playlist files and pruning directories left empty (spec.md §4.8).
// Errors mid-sweep are logged; the sweep continues.
func (s *Supervisor) sweep() {
	var deleted int
	var freedBytes int64
	ttl := time.Duration(s.segmentTTLHours) * time.Hour
	cutoff := time.Now().Add(-ttl)

	var walk func(dir string) (hasEntries bool)
	walk = func(dir string) bool {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.log.Warn("sweep: read dir failed", "dir", dir, "error", err)
			return true
		}

		remaining := 0
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if walk(path) {
					remaining++
				} else {
					_ = os.Remove(path)
				}
				continue
			}

			if !isSweepTarget(e.Name()) {
				remaining++
				continue
			}

			info, err := e.Info()
			if err != nil {
				s.log.Warn("sweep: stat failed", "path", path, "error", err)
				remaining++
				continue
			}

			if accessTime(info).Before(cutoff) {
				size := info.Size()
				if err := os.Remove(path); err != nil {
					s.log.Warn("sweep: delete failed", "path", path, "error", err)
					remaining++
					continue
				}
				deleted++
				freedBytes += size
				continue
			}
			remaining++
		}

		return remaining > 0
	}

	if _, err := os.Stat(s.root); err == nil {
		walk(s.root)
	}

	after := s.statsNoLock()
	s.log.Info("sweep complete", "deleted", deleted, "freedBytes", freedBytes, "totalBytes", after.TotalBytes)
	if s.metrics != nil {
		s.metrics.SweepDeletions.Add(float64(deleted))
		s.metrics.SweepFreedByte.Add(float64(freedBytes))
		s.metrics.CacheTotalBytes.Set(float64(after.TotalBytes))
		s.metrics.CacheMediaCount.Set(float64(after.MediaCount))
		s.metrics.CacheSegmentCount.Set(float64(after.SegmentCount))
		s.metrics.DiskFreeBytes.Set(float64(after.DiskFreeBytes))
	}

	s.mu.Lock()
	s.lastStats = after
	s.lastSweepAt = time.Now()
	s.mu.Unlock()
}

func isSweepTarget(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".ts" || ext == ".m3u8"
}

// Stats returns the cache statistics captured by the most recent
// sweep, or a live walk if no sweep has run yet.
func (s *Supervisor) Stats() domain.CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSweepAt.IsZero() {
		return s.statsNoLock()
	}
	return s.lastStats
}

func (s *Supervisor) statsNoLock() domain.CacheStats {
	stats := domain.CacheStats{}

	_ = filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		stats.TotalBytes += info.Size()
		if filepath.Ext(path) == ".ts" {
			stats.SegmentCount++
		}
		return nil
	})

	if entries, err := os.ReadDir(s.root); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				stats.MediaCount++
			}
		}
	}

	if usage, err := disk.Usage(s.root); err == nil {
		stats.DiskFreeBytes = int64(usage.Free)
	}

	return stats
}

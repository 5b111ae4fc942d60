package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eleven-am/goshl/internal/telemetry"
)

func TestSweepDeletesExpiredSegmentsAndKeepsFreshOnes(t *testing.T) {
	root := t.TempDir()
	mediaDir := filepath.Join(root, "movie-1", "default", "720p")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	oldSegment := filepath.Join(mediaDir, "0.ts")
	freshSegment := filepath.Join(mediaDir, "1.ts")
	if err := os.WriteFile(oldSegment, []byte("old"), 0o644); err != nil {
		t.Fatalf("write old: %v", err)
	}
	if err := os.WriteFile(freshSegment, []byte("fresh"), 0o644); err != nil {
		t.Fatalf("write fresh: %v", err)
	}

	old := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(oldSegment, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s := New(root, 24, telemetry.NewNopLogger())
	s.sweep()

	if _, err := os.Stat(oldSegment); !os.IsNotExist(err) {
		t.Fatalf("expected expired segment removed")
	}
	if _, err := os.Stat(freshSegment); err != nil {
		t.Fatalf("expected fresh segment to survive: %v", err)
	}
}

func TestSweepRemovesDirectoriesLeftEmpty(t *testing.T) {
	root := t.TempDir()
	emptyTierDir := filepath.Join(root, "movie-2", "default", "360p")
	if err := os.MkdirAll(emptyTierDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	segment := filepath.Join(emptyTierDir, "0.ts")
	if err := os.WriteFile(segment, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(segment, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s := New(root, 24, telemetry.NewNopLogger())
	s.sweep()

	if _, err := os.Stat(emptyTierDir); !os.IsNotExist(err) {
		t.Fatalf("expected emptied tier dir removed")
	}
	if _, err := os.Stat(filepath.Join(root, "movie-2", "default")); !os.IsNotExist(err) {
		t.Fatalf("expected emptied audio-track dir removed")
	}
}

func TestSweepIgnoresNonSegmentFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	other := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(other, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(other, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s := New(root, 24, telemetry.NewNopLogger())
	s.sweep()

	if _, err := os.Stat(other); err != nil {
		t.Fatalf("expected non-segment file preserved: %v", err)
	}
}

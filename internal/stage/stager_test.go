package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestStager(t *testing.T) (*Stager, string, string) {
	t.Helper()
	work := t.TempDir()
	public := t.TempDir()
	s, err := New(work, public)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, work, public
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Repeat("a", size)), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestStage_PrefersReportedPath(t *testing.T) {
	s, work, public := newTestStager(t)
	reported := filepath.Join(work, "dQw4w9WgXcQ.mp4")
	writeFile(t, reported, 10)

	art, err := s.Stage(reported, "dQw4w9WgXcQ", "Some Clip")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if art.Ext != "mp4" {
		t.Errorf("ext = %q, want mp4", art.Ext)
	}
	if !strings.HasPrefix(art.Path, public) {
		t.Errorf("artifact not in public dir: %s", art.Path)
	}
	if _, err := os.Stat(reported); !os.IsNotExist(err) {
		t.Error("source file must be moved, not copied")
	}
	if art.SizeBytes != 10 {
		t.Errorf("size = %d, want 10", art.SizeBytes)
	}
}

func TestStage_SearchPicksLargest(t *testing.T) {
	s, work, _ := newTestStager(t)
	writeFile(t, filepath.Join(work, "vid1.mp4"), 100)
	writeFile(t, filepath.Join(work, "vid1.webm"), 40)
	writeFile(t, filepath.Join(work, "vid1.mp4.part"), 500)
	writeFile(t, filepath.Join(work, "other.mp4"), 900)

	art, err := s.Stage("", "vid1", "Title")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if art.Ext != "mp4" || art.SizeBytes != 100 {
		t.Errorf("expected the 100-byte mp4, got ext=%q size=%d", art.Ext, art.SizeBytes)
	}
}

func TestStage_IgnoresPartialOnly(t *testing.T) {
	s, work, _ := newTestStager(t)
	writeFile(t, filepath.Join(work, "vid2.mp4.part"), 500)
	writeFile(t, filepath.Join(work, "vid2.ytdl"), 10)

	if _, err := s.Stage("", "vid2", "Title"); err == nil {
		t.Fatal("expected an error when only partial files exist")
	}
}

func TestStage_UniqueNamesForSameTitle(t *testing.T) {
	s, work, _ := newTestStager(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		writeFile(t, filepath.Join(work, "vidx.mp4"), 10+i)
		art, err := s.Stage("", "vidx", "Same Title")
		if err != nil {
			t.Fatalf("Stage #%d: %v", i, err)
		}
		if seen[art.FileName] {
			t.Fatalf("staged name %q collided", art.FileName)
		}
		seen[art.FileName] = true
	}
}

func TestReserveName_ClaimsImmediately(t *testing.T) {
	s, _, _ := newTestStager(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	// Two reservations before any rename happens must already differ:
	// the claim itself has to reserve, not the later file move.
	n1, d1, err := s.reserveName("Same Title", "mp4")
	if err != nil {
		t.Fatalf("reserveName #1: %v", err)
	}
	n2, d2, err := s.reserveName("Same Title", "mp4")
	if err != nil {
		t.Fatalf("reserveName #2: %v", err)
	}
	if n1 == n2 {
		t.Fatalf("both reservations returned %q", n1)
	}
	for _, d := range []string{d1, d2} {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("reserved destination %s not claimed on disk: %v", d, err)
		}
	}
}

func TestStage_ConcurrentSameTitle(t *testing.T) {
	s, work, public := newTestStager(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	const jobs = 8
	var wg sync.WaitGroup
	names := make(chan string, jobs)

	for i := 0; i < jobs; i++ {
		src := filepath.Join(work, fmt.Sprintf("c%d.mp4", i))
		writeFile(t, src, 10+i)
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			art, err := s.Stage(src, "", "Same Title")
			if err != nil {
				t.Errorf("Stage(%s): %v", src, err)
				return
			}
			names <- art.FileName
		}(src)
	}
	wg.Wait()
	close(names)

	seen := make(map[string]bool)
	for name := range names {
		if seen[name] {
			t.Fatalf("staged name %q assigned twice", name)
		}
		seen[name] = true
	}
	if len(seen) != jobs {
		t.Fatalf("staged %d unique names, want %d", len(seen), jobs)
	}

	// Every artifact must survive with its own content; an overwrite
	// would collapse two sizes into one.
	sizes := make(map[int64]bool)
	for name := range seen {
		info, err := os.Stat(filepath.Join(public, name))
		if err != nil {
			t.Fatalf("staged file %s missing: %v", name, err)
		}
		sizes[info.Size()] = true
	}
	if len(sizes) != jobs {
		t.Errorf("found %d distinct sizes, want %d", len(sizes), jobs)
	}
}

func TestStage_NameShape(t *testing.T) {
	s, work, _ := newTestStager(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	writeFile(t, filepath.Join(work, "abc.mkv"), 5)

	art, err := s.Stage("", "abc", "Заголовок видео")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	parts := strings.SplitN(strings.TrimSuffix(art.FileName, ".mkv"), "_", 2)
	if len(parts) != 2 || len(parts[0]) != 8 {
		t.Fatalf("name %q must be <8-hex>_<unixts>.mkv", art.FileName)
	}
	if parts[1] != "1748779200" {
		// 2025-06-01T12:00:00Z
		t.Errorf("timestamp part = %q", parts[1])
	}
	if strings.Contains(art.FileName, "Заголовок") {
		t.Error("public name must not expose the title")
	}
}

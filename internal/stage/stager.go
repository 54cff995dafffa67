// Package stage locates a finished download in the working directory and
// relocates it into the public directory under a collision-free name.
package stage

import (
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ytdbot/ytd-bot/internal/domain"
)

// Extensions of partial or in-progress files, never staged.
var partialExts = map[string]bool{
	".part":     true,
	".ytdl":     true,
	".temp":     true,
	".download": true,
}

// Stager relocates downloaded artifacts from the working directory into
// the public directory.
type Stager struct {
	workDir   string
	publicDir string

	now func() time.Time
}

// New creates a Stager. Both directories are created if missing.
func New(workDir, publicDir string) (*Stager, error) {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if err := os.MkdirAll(publicDir, 0755); err != nil {
		return nil, fmt.Errorf("create public dir: %w", err)
	}
	return &Stager{workDir: workDir, publicDir: publicDir, now: time.Now}, nil
}

// Stage finds the produced artifact and atomically moves it into the public
// directory as "<md5(title)[:8]>_<unixts>.<ext>". reportedPath, when it
// names an existing file, wins over the directory search.
func (s *Stager) Stage(reportedPath, mediaID, title string) (*domain.StagedArtifact, error) {
	src := reportedPath
	if src == "" || !fileExists(src) {
		found, err := s.locate(mediaID)
		if err != nil {
			return nil, err
		}
		src = found
	}

	ext := strings.TrimPrefix(filepath.Ext(src), ".")
	if ext == "" {
		ext = "bin"
	}

	name, dest, err := s.reserveName(title, ext)
	if err != nil {
		return nil, err
	}

	if err := os.Rename(src, dest); err != nil {
		os.Remove(dest) // release the placeholder
		return nil, fmt.Errorf("relocate %s: %w", filepath.Base(src), err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("stat staged file: %w", err)
	}

	return &domain.StagedArtifact{
		FileName:  name,
		Ext:       ext,
		Path:      dest,
		SizeBytes: info.Size(),
	}, nil
}

// locate searches the working directory for files named by the media ID,
// excluding partial files. When multiple match the largest wins: partials
// and sidecar files are typically smaller than the media itself.
func (s *Stager) locate(mediaID string) (string, error) {
	if mediaID == "" {
		return "", fmt.Errorf("no media identifier to search by")
	}

	matches, err := filepath.Glob(filepath.Join(s.workDir, mediaID+".*"))
	if err != nil {
		return "", fmt.Errorf("search work dir: %w", err)
	}

	var best string
	var bestSize int64 = -1
	for _, m := range matches {
		if partialExts[strings.ToLower(filepath.Ext(m))] {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() > bestSize {
			best = m
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", fmt.Errorf("no output file found for %q", mediaID)
	}
	return best, nil
}

// reserveName claims a public name by creating the destination with
// O_EXCL, bumping a counter suffix until the create succeeds. The
// placeholder makes the claim atomic across concurrent jobs staging the
// same title in the same second; the rename in Stage replaces it.
func (s *Stager) reserveName(title, ext string) (string, string, error) {
	slug := titleSlug(title)
	ts := s.now().Unix()

	for i := 0; i <= 1000; i++ {
		name := fmt.Sprintf("%s_%d.%s", slug, ts, ext)
		if i > 0 {
			name = fmt.Sprintf("%s_%d_%d.%s", slug, ts, i, ext)
		}
		dest := filepath.Join(s.publicDir, name)

		f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return name, dest, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", fmt.Errorf("reserve staged name: %w", err)
		}
	}
	return "", "", fmt.Errorf("could not reserve a staged name for %q", title)
}

// titleSlug is a short stable digest of the title; it keeps the engine's
// internal filename out of the public link.
func titleSlug(title string) string {
	sum := md5.Sum([]byte(title))
	return fmt.Sprintf("%x", sum)[:8]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

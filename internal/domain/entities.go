// Package domain contains the core business entities and types.
package domain

import (
	"time"
)

// DownloadMode selects the format policy for a download job.
type DownloadMode string

const (
	// ModeInteractivePick downloads the rendition the user chose, merged
	// with the best available audio.
	ModeInteractivePick DownloadMode = "pick"
	// ModeSafeFallback prefers a progressive single-file MP4.
	ModeSafeFallback DownloadMode = "safe"
	// ModeBestQuality fetches best MP4 video and M4A audio separately and
	// merges them.
	ModeBestQuality DownloadMode = "best"
	// ModeAnyFormat takes the best available rendition without constraints.
	ModeAnyFormat DownloadMode = "any"
	// ModeAudioOnly extracts the best audio stream as MP3.
	ModeAudioOnly DownloadMode = "audio"
)

// JobState represents the current phase of a download job.
type JobState string

const (
	StateQueued              JobState = "queued"
	StateExtractingMetadata  JobState = "extracting_metadata"
	StateDownloadingPrimary  JobState = "downloading_primary"
	StateDownloadingFallback JobState = "downloading_fallback"
	StateStaging             JobState = "staging"
	StatePublished           JobState = "published"
	StateFailed              JobState = "failed"
)

// Terminal reports whether the state ends the job.
func (s JobState) Terminal() bool {
	return s == StatePublished || s == StateFailed
}

// MediaReference identifies one resolved media asset. Immutable once fetched.
type MediaReference struct {
	CanonicalURL string
	Title        string
	ThumbnailURL string
}

// Rendition is one concrete encoded variant of a media asset, as surfaced
// to the selection UI.
type Rendition struct {
	ID         string // extractor-assigned format identifier, opaque
	Height     int    // 0 when unknown
	Ext        string
	Size       int64 // 0 when unknown
	SizeApprox bool
	Label      string // unique within one catalog
}

// SelectionSession binds a selection-control message to a resolved media
// reference and its catalog. Valid until ExpiresAt, consumed at most once.
type SelectionSession struct {
	Key       int // message ID of the message bearing the controls
	Media     MediaReference
	Catalog   []Rendition
	CreatedAt time.Time
	ExpiresAt time.Time
}

// FindRendition returns the catalog entry with the given ID.
func (s *SelectionSession) FindRendition(id string) (Rendition, bool) {
	for _, r := range s.Catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Rendition{}, false
}

// DownloadJob is created per user action and lives only for the duration
// of the download.
type DownloadJob struct {
	ID          string
	URL         string
	Title       string
	Mode        DownloadMode
	RenditionID string // set only for ModeInteractivePick
	UserID      int64
	ChatID      int64
	State       JobState
	CreatedAt   time.Time
}

// NewDownloadJob creates a queued DownloadJob.
func NewDownloadJob(id, url, title string, mode DownloadMode, userID, chatID int64) *DownloadJob {
	return &DownloadJob{
		ID:        id,
		URL:       url,
		Title:     title,
		Mode:      mode,
		UserID:    userID,
		ChatID:    chatID,
		State:     StateQueued,
		CreatedAt: time.Now().UTC(),
	}
}

// StagedArtifact describes a downloaded file after relocation into the
// public directory.
type StagedArtifact struct {
	FileName  string // collision-free name in the public directory
	Ext       string
	Path      string
	SizeBytes int64
	PublicURL string
}

// HistoryEntry records the outcome of a finished job.
type HistoryEntry struct {
	JobID      string
	UserID     int64
	URL        string
	Title      string
	Mode       DownloadMode
	State      JobState
	FileName   string
	SizeBytes  int64
	PublicURL  string
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

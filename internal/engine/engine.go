// Package engine wraps the external extraction/download capability. Two
// interchangeable backends (primary and fallback) are configured as separate
// Command instances so a failed job can be retried once on the alternate
// backend.
package engine

import (
	"context"
	"time"
)

// Format is one extractor-reported rendition record, as found in the
// metadata JSON.
type Format struct {
	ID             string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Height         int     `json:"height"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	TBR            float64 `json:"tbr"` // total bitrate, Kbit/s
	Protocol       string  `json:"protocol"`
	FormatNote     string  `json:"format_note"`
}

// Metadata is the extractor's description of one media reference.
type Metadata struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Ext        string   `json:"ext"`
	Thumbnail  string   `json:"thumbnail"`
	WebpageURL string   `json:"webpage_url"`
	Duration   float64  `json:"duration"` // seconds
	Formats    []Format `json:"formats"`
}

// Options configures a single engine invocation.
type Options struct {
	FormatExpr      string // extractor format expression with fallback chain
	CookieFile      string // optional Netscape cookie jar path
	OutputTemplate  string // engine output path template
	Retries         int    // per-request retries inside the engine
	FragmentRetries int    // per-segment retries inside the engine
	MergeFormat     string // container for merged video+audio, e.g. "mp4"
	ExtractAudio    bool   // transcode to audio-only output
	AudioFormat     string // target audio container, e.g. "mp3"
	AudioBitrate    string // target audio bitrate, e.g. "192K"
	Timeout         time.Duration
}

// Result is the outcome of a successful download invocation.
type Result struct {
	// Path is the output file path the engine reported, empty when it
	// could not be determined from the engine output.
	Path string
}

// Engine is the extraction/download collaborator.
type Engine interface {
	Name() string
	Probe(ctx context.Context, url string, opts Options) (*Metadata, error)
	Download(ctx context.Context, url string, opts Options) (*Result, error)
}

package orchestrator

import (
	"fmt"
	"path/filepath"

	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/engine"
)

// FormatExpr returns the selector expression passed to the download
// backend for the given mode. Pick mode combines the chosen rendition
// with best audio and falls back to the muxed best.
func FormatExpr(mode domain.DownloadMode, renditionID string) string {
	switch mode {
	case domain.ModeInteractivePick:
		return fmt.Sprintf("%s+ba/b", renditionID)
	case domain.ModeSafeFallback:
		return "best[ext=mp4]/best"
	case domain.ModeBestQuality:
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	case domain.ModeAudioOnly:
		return "bestaudio/best"
	default:
		return "best"
	}
}

func (o *Orchestrator) buildOptions(job *domain.DownloadJob, cookieFile string) engine.Options {
	opts := engine.Options{
		FormatExpr:      FormatExpr(job.Mode, job.RenditionID),
		CookieFile:      cookieFile,
		OutputTemplate:  filepath.Join(o.workDir, job.ID+".%(ext)s"),
		Retries:         5,
		FragmentRetries: 10,
		Timeout:         o.downloadTimeout,
	}

	switch job.Mode {
	case domain.ModeAudioOnly:
		opts.ExtractAudio = true
		opts.AudioFormat = "mp3"
		opts.AudioBitrate = "192K"
	case domain.ModeBestQuality, domain.ModeInteractivePick:
		opts.MergeFormat = "mp4"
	}

	return opts
}

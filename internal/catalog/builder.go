// Package catalog turns raw extractor format records into the deduplicated,
// sorted, UI-bounded set of renditions surfaced for one media reference.
package catalog

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/ytdbot/ytd-bot/internal/domain"
	"github.com/ytdbot/ytd-bot/internal/engine"
	"github.com/ytdbot/ytd-bot/internal/protocol"
)

// MaxEntries bounds the surfaced catalog so selection keyboards stay usable.
// Entries beyond the cap are dropped, not hidden.
const MaxEntries = 12

const noCodec = "none"

// heightToken matches quality notes like "720p" or "1080p60".
var heightToken = regexp.MustCompile(`(\d{3,4})p`)

// Build constructs the rendition catalog from extractor metadata.
//
// Policy:
//   - structural entries with neither a video nor an audio track are dropped;
//   - manifest/streaming renditions are kept (excluding them produced empty
//     catalogs on some sources; the download fallback chain absorbs their
//     fragility);
//   - identical labels collapse to one entry, first seen wins;
//   - renditions whose selection token would exceed the UI payload limit are
//     silently excluded;
//   - result is sorted by descending known height, unknown heights last,
//     and capped at MaxEntries.
func Build(meta *engine.Metadata) []domain.Rendition {
	if meta == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []domain.Rendition

	for _, f := range meta.Formats {
		if f.ID == "" {
			continue
		}
		if isStructural(f) {
			continue
		}

		height := f.Height
		if height == 0 {
			height = heightFromNote(f.FormatNote)
		}

		size, approx := estimateSize(f, meta.Duration)

		r := domain.Rendition{
			ID:         f.ID,
			Height:     height,
			Ext:        f.Ext,
			Size:       size,
			SizeApprox: approx,
		}
		// Dedup on the height+container part: two candidates of the same
		// quality differing only in estimated size are one entry to the
		// user. First seen wins, and supplies the size in the label.
		base := labelBase(r)
		if seen[base] {
			continue
		}
		r.Label = label(r, base)
		if !protocol.Fits(protocol.Action{Kind: protocol.KindPickRendition, RenditionID: r.ID}) {
			continue
		}

		seen[base] = true
		out = append(out, r)
	}

	// Unknown heights sort after every known height; their relative
	// order is the input order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Height > out[j].Height
	})

	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}

// isStructural reports whether the record is a thumbnail sprite or
// metadata-only entry with no decodable track.
func isStructural(f engine.Format) bool {
	if f.Ext == "mhtml" {
		return true
	}
	return (f.VCodec == noCodec || f.VCodec == "") && (f.ACodec == noCodec || f.ACodec == "")
}

// heightFromNote recovers the height from a quality token when the explicit
// field is absent.
func heightFromNote(note string) int {
	m := heightToken.FindStringSubmatch(note)
	if m == nil {
		return 0
	}
	var h int
	fmt.Sscanf(m[1], "%d", &h)
	return h
}

// estimateSize prefers an exact reported size; a reported approximation or
// a bitrate×duration derivation is marked approximate. Missing bitrate or
// duration yields no estimate.
func estimateSize(f engine.Format, duration float64) (int64, bool) {
	if f.Filesize > 0 {
		return f.Filesize, false
	}
	if f.FilesizeApprox > 0 {
		return f.FilesizeApprox, true
	}
	if f.TBR > 0 && duration > 0 {
		return int64(f.TBR * 1000 * duration / 8), true
	}
	return 0, false
}

// labelBase is the quality part of the label: "<height>p <ext>", or the
// container alone when the height is unknown.
func labelBase(r domain.Rendition) string {
	if r.Height > 0 {
		return fmt.Sprintf("%dp %s", r.Height, r.Ext)
	}
	return r.Ext
}

// label derives the full UI label: "<height>p <ext> (~N МБ)". A missing
// size estimate omits the size part.
func label(r domain.Rendition, base string) string {
	if r.Size > 0 {
		return fmt.Sprintf("%s (~%d МБ)", base, r.Size/(1024*1024))
	}
	return base
}

// Package publish builds the externally shareable URL for a staged
// artifact. The local publisher points at the built-in file host; the R2
// publisher uploads to a bucket and presigns instead.
package publish

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ytdbot/ytd-bot/internal/domain"
)

// MaxDisplayNameLen bounds the user-visible filename.
const MaxDisplayNameLen = 150

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Local builds links into the public staging directory served by the file
// host.
type Local struct {
	baseURL string
}

// NewLocal creates a Local publisher. baseURL is the externally visible
// prefix of the public directory, without a trailing slash.
func NewLocal(baseURL string) *Local {
	return &Local{baseURL: strings.TrimRight(baseURL, "/")}
}

// Publish returns the shareable link for the artifact. The filename query
// parameter carries the sanitized display name the user's browser saves
// the file under.
func (l *Local) Publish(_ context.Context, art *domain.StagedArtifact, displayTitle string) (string, error) {
	display := SanitizeDisplayName(displayTitle) + "." + art.Ext
	return fmt.Sprintf("%s/%s?filename=%s",
		l.baseURL,
		url.PathEscape(art.FileName),
		url.QueryEscape(display),
	), nil
}

// SanitizeDisplayName strips filesystem-unsafe characters, collapses
// whitespace and bounds the length. Over-long names are truncated at a
// word boundary with an 8-character content hash appended, so two distinct
// titles never truncate to the same name.
func SanitizeDisplayName(title string) string {
	s := unsafeChars.ReplaceAllString(title, "")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if s == "" {
		s = "video"
	}

	runes := []rune(s)
	if len(runes) <= MaxDisplayNameLen {
		return s
	}

	head := string(runes[:MaxDisplayNameLen])
	if idx := strings.LastIndex(head, " "); idx > 0 {
		head = head[:idx]
	}
	sum := md5.Sum([]byte(title))
	return fmt.Sprintf("%s_%s", head, hex.EncodeToString(sum[:])[:8])
}

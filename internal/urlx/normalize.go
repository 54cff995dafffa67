// Package urlx canonicalizes media URLs before they enter the pipeline.
package urlx

import (
	"errors"
	"net/url"
	"strings"
)

// Normalization errors.
var (
	ErrEmptyURL   = errors.New("URL cannot be empty")
	ErrInvalidURL = errors.New("invalid URL format")
	ErrBadScheme  = errors.New("URL must use http or https")
)

// Normalizer strips cosmetic query-string variation so that tracking and
// cache-busting parameters never make the same media look distinct.
type Normalizer struct {
	// KeepPlaylist retains the playlist identifier parameter. Off by
	// default to prevent unwanted playlist expansion by the extractor.
	KeepPlaylist bool
}

// Query parameters that survive normalization, in output order. Everything
// else is dropped.
var allowedParams = []string{"v", "t", "list"}

// Normalize canonicalizes a URL. It is pure and idempotent:
// Normalize(Normalize(u)) == Normalize(u).
func (n Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrBadScheme
	}
	if u.Host == "" {
		return "", ErrInvalidURL
	}

	q := u.Query()
	kept := url.Values{}
	for _, p := range allowedParams {
		if p == "list" && !n.KeepPlaylist {
			continue
		}
		if v := q.Get(p); v != "" {
			kept.Set(p, v)
		}
	}

	u.RawQuery = encodeOrdered(kept)
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)

	return u.String(), nil
}

// Normalize canonicalizes a URL with the default policy (playlist
// parameter dropped).
func Normalize(raw string) (string, error) {
	return Normalizer{}.Normalize(raw)
}

// encodeOrdered serializes the kept parameters in allow-list order so the
// result is deterministic regardless of input ordering.
func encodeOrdered(v url.Values) string {
	var b strings.Builder
	for _, p := range allowedParams {
		val := v.Get(p)
		if val == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(val))
	}
	return b.String()
}

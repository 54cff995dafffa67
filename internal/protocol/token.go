// Package protocol encodes user selection actions as compact callback
// tokens. The host platform caps callback payloads at 64 bytes, so the wire
// form uses single-letter keys and action codes.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxTokenBytes is the payload size limit of the host UI.
const MaxTokenBytes = 64

// Kind identifies a selection action.
type Kind string

const (
	KindPickRendition  Kind = "d"
	KindDownloadSafe   Kind = "s"
	KindDownloadBest   Kind = "b"
	KindDownloadAny    Kind = "y"
	KindDownloadAudio  Kind = "m"
	KindFetchThumbnail Kind = "t"
)

// Protocol errors.
var (
	ErrTokenTooLong  = errors.New("selection token exceeds payload limit")
	ErrBadToken      = errors.New("selection token could not be decoded")
	ErrUnknownAction = errors.New("unknown selection action")
)

// Action is one decoded user selection.
type Action struct {
	Kind        Kind
	RenditionID string // set only for KindPickRendition
}

// wireToken is the serialized shape: {"a":"d","f":"137"}.
type wireToken struct {
	A string `json:"a"`
	F string `json:"f,omitempty"`
}

// Encode serializes an action. Returns ErrTokenTooLong when the result
// would not fit the payload limit.
func Encode(a Action) (string, error) {
	if !validKind(a.Kind) {
		return "", ErrUnknownAction
	}
	w := wireToken{A: string(a.Kind)}
	if a.Kind == KindPickRendition {
		w.F = a.RenditionID
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	if len(raw) > MaxTokenBytes {
		return "", ErrTokenTooLong
	}
	return string(raw), nil
}

// Fits reports whether the action's token stays within the payload limit.
// Used at catalog-build time to silently exclude oversized renditions.
func Fits(a Action) bool {
	_, err := Encode(a)
	return err == nil
}

// Decode parses a token received from the UI. Malformed input yields
// ErrBadToken, a recognized shape with an unknown action ErrUnknownAction;
// neither has side effects.
func Decode(token string) (Action, error) {
	var w wireToken
	if err := json.Unmarshal([]byte(token), &w); err != nil {
		return Action{}, ErrBadToken
	}
	k := Kind(w.A)
	if !validKind(k) {
		return Action{}, ErrUnknownAction
	}
	a := Action{Kind: k}
	if k == KindPickRendition {
		if w.F == "" {
			return Action{}, ErrBadToken
		}
		a.RenditionID = w.F
	}
	return a, nil
}

func validKind(k Kind) bool {
	switch k {
	case KindPickRendition, KindDownloadSafe, KindDownloadBest,
		KindDownloadAny, KindDownloadAudio, KindFetchThumbnail:
		return true
	}
	return false
}

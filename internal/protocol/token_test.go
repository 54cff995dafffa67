package protocol

import (
	"strings"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	actions := []Action{
		{Kind: KindPickRendition, RenditionID: "137"},
		{Kind: KindPickRendition, RenditionID: "hls-720-1"},
		{Kind: KindDownloadSafe},
		{Kind: KindDownloadBest},
		{Kind: KindDownloadAny},
		{Kind: KindDownloadAudio},
		{Kind: KindFetchThumbnail},
	}

	for _, a := range actions {
		token, err := Encode(a)
		if err != nil {
			t.Fatalf("Encode(%+v) error: %v", a, err)
		}
		if len(token) > MaxTokenBytes {
			t.Errorf("Encode(%+v) produced %d bytes, limit is %d", a, len(token), MaxTokenBytes)
		}
		got, err := Decode(token)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", token, err)
		}
		if got != a {
			t.Errorf("round trip %+v -> %q -> %+v", a, token, got)
		}
	}
}

func TestEncode_TooLong(t *testing.T) {
	a := Action{Kind: KindPickRendition, RenditionID: strings.Repeat("x", 80)}
	if _, err := Encode(a); err != ErrTokenTooLong {
		t.Errorf("Encode error = %v, want ErrTokenTooLong", err)
	}
	if Fits(a) {
		t.Error("Fits must be false for oversized rendition IDs")
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		token   string
		wantErr error
	}{
		{"", ErrBadToken},
		{"not json", ErrBadToken},
		{`{"a":"z"}`, ErrUnknownAction},
		{`{"a":""}`, ErrUnknownAction},
		{`{"a":"d"}`, ErrBadToken}, // pick without a rendition
		{`{"b":"d"}`, ErrUnknownAction},
	}

	for _, tt := range tests {
		if _, err := Decode(tt.token); err != tt.wantErr {
			t.Errorf("Decode(%q) error = %v, want %v", tt.token, err, tt.wantErr)
		}
	}
}

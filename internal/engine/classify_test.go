package engine

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want Reason
	}{
		{"ERROR: Sign in to confirm your age", ReasonAgeRestricted},
		{"ERROR: Private video. Sign in if you've been granted access", ReasonPrivate},
		{"ERROR: Premieres in 3 hours", ReasonPremiere},
		{"ERROR: Video unavailable", ReasonUnavailable},
		{"ERROR: This video has been removed by the uploader", ReasonUnavailable},
		{"ERROR: members-only content", ReasonAuthRequired},
		{"ERROR: The uploader has not made this video available in your country", ReasonGeoBlocked},
		{"connection reset by peer", ReasonUnknown},
		{"", ReasonUnknown},
	}

	for _, tt := range tests {
		got := Classify(errors.New(tt.msg))
		if got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}

	if Classify(nil) != ReasonUnknown {
		t.Error("Classify(nil) must be ReasonUnknown")
	}
}

func TestClassify_SpecificBeforeGeneric(t *testing.T) {
	// A private video message also contains "unavailable" on some
	// extractors; the specific category must win.
	err := errors.New("ERROR: Private video is unavailable")
	if got := Classify(err); got != ReasonPrivate {
		t.Errorf("Classify = %q, want %q", got, ReasonPrivate)
	}
}

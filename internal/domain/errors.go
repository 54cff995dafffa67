package domain

import (
	"errors"
	"fmt"
)

// FailureKind categorizes terminal failures for reporting.
type FailureKind string

const (
	FailNormalization  FailureKind = "normalization"
	FailExtraction     FailureKind = "extraction"
	FailDownload       FailureKind = "download"
	FailStaging        FailureKind = "staging"
	FailProtocol       FailureKind = "protocol"
	FailSessionExpired FailureKind = "session_expired"
)

// Failure wraps an underlying error with its category and an optional
// user-facing hint key (private video, age restriction and so on).
type Failure struct {
	Kind FailureKind
	Hint string
	Err  error
}

// NewFailure creates a Failure of the given kind.
func NewFailure(kind FailureKind, hint string, err error) *Failure {
	return &Failure{Kind: kind, Hint: hint, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind of err, or an empty string when err is
// not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// HintOf returns the hint attached to err, if any.
func HintOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Hint
	}
	return ""
}

package engine

import "strings"

// Reason is a coarse category for extraction/download failures, derived
// from known substrings of the engine's free-text error output. This is a
// heuristic layer; keep every string match here so the rest of the control
// flow only deals with Reason values.
type Reason string

const (
	ReasonAgeRestricted Reason = "age_restricted"
	ReasonPrivate       Reason = "private"
	ReasonPremiere      Reason = "premiere"
	ReasonUnavailable   Reason = "unavailable"
	ReasonAuthRequired  Reason = "auth_required"
	ReasonGeoBlocked    Reason = "geo_blocked"
	ReasonUnknown       Reason = ""
)

// Ordered: the first matching rule wins, specific restrictions before the
// generic "unavailable".
var reasonRules = []struct {
	substr string
	reason Reason
}{
	{"confirm your age", ReasonAgeRestricted},
	{"age-restricted", ReasonAgeRestricted},
	{"sign in to confirm", ReasonAgeRestricted},
	{"private video", ReasonPrivate},
	{"this video is private", ReasonPrivate},
	{"premieres in", ReasonPremiere},
	{"premiere", ReasonPremiere},
	{"sign in", ReasonAuthRequired},
	{"login required", ReasonAuthRequired},
	{"members-only", ReasonAuthRequired},
	{"not available in your country", ReasonGeoBlocked},
	{"geo restricted", ReasonGeoBlocked},
	{"video unavailable", ReasonUnavailable},
	{"unavailable", ReasonUnavailable},
	{"has been removed", ReasonUnavailable},
	{"does not exist", ReasonUnavailable},
}

// Classify maps an engine error to a Reason. Unrecognized errors yield
// ReasonUnknown.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range reasonRules {
		if strings.Contains(msg, rule.substr) {
			return rule.reason
		}
	}
	return ReasonUnknown
}

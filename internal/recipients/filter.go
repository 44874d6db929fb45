// Package recipients narrows collected candidates down to the exact set of
// push tokens that should receive an alert.
package recipients

import (
	"github.com/eternisai/fire-alerts/internal/geo"
	"github.com/eternisai/fire-alerts/internal/presence"
)

// Reason explains why a candidate was dropped.
type Reason string

const (
	ReasonMissingToken  Reason = "missing_token"
	ReasonInvalidCoords Reason = "invalid_coordinates"
	ReasonReporter      Reason = "reporter"
	ReasonOutOfRange    Reason = "out_of_range"
	ReasonDuplicate     Reason = "duplicate"
)

// Stats counts what happened to each candidate.
type Stats struct {
	Considered int
	Accepted   int
	Dropped    map[Reason]int
}

// Set is the ordered, deduplicated recipient list. Tokens[i] belongs to UIDs[i].
type Set struct {
	Tokens []string
	UIDs   []string
	Stats  Stats
}

// Len returns the number of recipients.
func (s Set) Len() int {
	return len(s.Tokens)
}

// Filter keeps the candidates that have a token and finite coordinates, are
// not the reporter, and lie within radiusMeters of center by great-circle
// distance. The first occurrence of a uid wins; the input order is kept.
func Filter(candidates []presence.Candidate, center geo.Point, radiusMeters float64, reporterUID string) Set {
	set := Set{
		Tokens: []string{},
		UIDs:   []string{},
		Stats: Stats{
			Considered: len(candidates),
			Dropped:    map[Reason]int{},
		},
	}
	accepted := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		uid := c.UID
		if uid == "" {
			uid = c.DocID
		}

		switch {
		case c.FCMToken == "":
			set.Stats.Dropped[ReasonMissingToken]++
			continue
		case !geo.IsFinite(c.Latitude) || !geo.IsFinite(c.Longitude):
			set.Stats.Dropped[ReasonInvalidCoords]++
			continue
		case reporterUID != "" && uid == reporterUID:
			set.Stats.Dropped[ReasonReporter]++
			continue
		}

		if geo.Distance(c.Point(), center) > radiusMeters {
			set.Stats.Dropped[ReasonOutOfRange]++
			continue
		}

		if _, dup := accepted[uid]; dup {
			set.Stats.Dropped[ReasonDuplicate]++
			continue
		}

		accepted[uid] = struct{}{}
		set.Tokens = append(set.Tokens, c.FCMToken)
		set.UIDs = append(set.UIDs, uid)
	}

	set.Stats.Accepted = len(set.Tokens)
	return set
}

package model

import (
	"strings"
	"time"
)

// Scene is a named vertical lane (column) into which events are placed.
// Scenes are supplied wholesale by configuration and are immutable for the
// lifetime of the component. Identity for event matching is derived from
// Name (see timeline.Slugify), never stored.
type Scene struct {
	Name string
}

// RiskLevel drives only the visual tier of an event, never its layout.
type RiskLevel string

const (
	RiskHigh    RiskLevel = "high"
	RiskMedium  RiskLevel = "medium"
	RiskLow     RiskLevel = "low"
	RiskUnknown RiskLevel = "unknown"
)

// ParseRiskLevel maps a free-form risk string onto a known tier.
// Matching is case-insensitive; anything unrecognized is RiskUnknown.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh
	case "medium":
		return RiskMedium
	case "low":
		return RiskLow
	default:
		return RiskUnknown
	}
}

// Label returns the display text for the tier.
func (r RiskLevel) Label() string {
	switch r {
	case RiskHigh:
		return "High"
	case RiskMedium:
		return "Medium"
	case RiskLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// Timestamp is the tagged result of parsing an absolute point in time.
// Every place that needs a timestamp consumes this uniformly instead of
// relying on sentinel values or panics on malformed input.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// At wraps a known-good time.Time.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// timestampLayouts are tried in order. RFC3339 covers API-style payloads;
// the remaining forms cover hand-written config files.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses s against the known layouts, interpreting layouts
// without an explicit offset in loc (time.Local when loc is nil). An empty
// or unparseable string yields an invalid Timestamp, never an error.
func ParseTimestamp(s string, loc *time.Location) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Timestamp{Time: t, Valid: true}
		}
	}
	return Timestamp{}
}

// Event is a scheduled item assigned to exactly one scene via slug match.
// Start is required; an invalid End means "no end given" and defaults to
// Start plus 60 minutes during layout. The free-text fields are opaque to
// layout and only surface in the detail view.
type Event struct {
	ID    string
	Title string

	Start Timestamp
	End   Timestamp

	SceneID string
	Risk    RiskLevel

	Description  string
	Remarks      string
	CrowdProfile string
	Notes        string
}

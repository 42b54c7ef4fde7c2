package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "festcal/internal/log"
	"festcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls how feed events are expanded into timeline events.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be
	// converted. If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid extremely large
	// expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandEvents turns parsed feed events into timeline events within the
// given range. It handles single events, RRULE-based recurrence, EXDATE
// removal, and all-day semantics. The resulting events carry their scene id
// from the source pin or the VEVENT's LOCATION, and their risk tier from
// CATEGORIES.
func ExpandEvents(events []feedEvent, cfg ExpandConfig) ([]model.Event, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.RawRRule == "" {
			if occ, ok := expandSingle(ev, cfg); ok {
				out = append(out, occ)
			}
			continue
		}
		out = append(out, expandRecurring(ev, cfg)...)
	}
	return out, nil
}

func expandSingle(ev feedEvent, cfg ExpandConfig) (model.Event, bool) {
	// For the overlap check, stand in the layout engine's shoes: a missing
	// DTEND means a one-hour default duration.
	end := ev.End
	if !end.After(ev.Start) {
		end = ev.Start.Add(time.Hour)
	}
	if !rangesOverlap(ev.Start, end, cfg.RangeStart, cfg.RangeEnd) {
		return model.Event{}, false
	}
	return makeEvent(ev, ev.Start, ev.End, cfg.DisplayLocation), true
}

func expandRecurring(ev feedEvent, cfg ExpandConfig) []model.Event {
	out := make([]model.Event, 0)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		// Best effort: align EXDATE location with event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Adjust range into the event's original location for Between().
	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		appLog.Warn("expand: truncated occurrences for UID due to cap",
			"uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
	}

	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day: [date 00:00, next day 00:00) in event's timezone.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		} else {
			// Preserve original duration.
			occEnd = occStart.Add(ev.End.Sub(ev.Start))
		}
		out = append(out, makeEvent(ev, occStart, occEnd, cfg.DisplayLocation))
	}

	return out
}

// makeEvent converts a feed event plus one concrete start/end into a
// timeline event normalized into displayLoc.
func makeEvent(ev feedEvent, start, end time.Time, displayLoc *time.Location) model.Event {
	startLocal := start.In(displayLoc)
	endLocal := end.In(displayLoc)

	sceneID := ev.Source.SceneID
	if sceneID == "" {
		sceneID = ev.Location
	}

	// A feed event without a usable DTEND gets no end timestamp; the layout
	// engine applies its 60-minute default.
	endTS := model.Timestamp{}
	if endLocal.After(startLocal) {
		endTS = model.At(endLocal)
	}

	return model.Event{
		// Stable per-occurrence id: UID plus local start.
		ID:          ev.UID + "/" + startLocal.Format(time.RFC3339),
		Title:       ev.Summary,
		Start:       model.At(startLocal),
		End:         endTS,
		SceneID:     sceneID,
		Risk:        riskFromCategories(ev.Categories),
		Description: ev.Description,
	}
}

func rangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}

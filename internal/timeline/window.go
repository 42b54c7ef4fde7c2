package timeline

import (
	"math"
	"strconv"
	"strings"
	"time"

	appLog "festcal/internal/log"
	"festcal/internal/model"
)

// Default visible window when neither explicit boundaries nor any valid
// event timestamp is available.
const (
	defaultDayStartHour = 8
	defaultDayEndHour   = 22
)

// Window is the visible time range of the timeline, [Start, End).
// Start is truncated to the hour and End is strictly after Start.
// It is resolved once per render and shared read-only by every event
// layout computation.
type Window struct {
	Start time.Time
	End   time.Time

	// TotalHours is End-Start in hours, kept fractional for precision.
	// Always at least 1.
	TotalHours float64
}

// Rows returns the number of hour rows needed to cover the window.
// A partial hour at the tail still produces one full row.
func (w Window) Rows() int {
	rows := int(math.Ceil(w.TotalHours))
	if rows < 1 {
		rows = 1
	}
	return rows
}

// WindowConfig carries the boundary inputs for ResolveWindow.
type WindowConfig struct {
	// DayStart / DayEnd are optional "HH:MM" strings. Both must be present
	// and well-formed to take effect; a partial or malformed pair is
	// treated as absent.
	DayStart string
	DayEnd   string

	// Location is the display timezone. Nil means time.Local.
	Location *time.Location

	// Now anchors the "current date" fallbacks. Zero means time.Now().
	Now time.Time
}

// ResolveWindow computes the visible window from explicit day boundaries,
// or failing that from the event data, or failing that from the built-in
// 08:00-22:00 default. It never fails: malformed inputs are logged and
// excluded, and the result always has strictly positive duration.
//
// Priority order:
//  1. Explicit DayStart/DayEnd on the first event's date (or today),
//     crossing midnight when the end time-of-day precedes the start.
//  2. No boundaries, no events: today 08:00-22:00.
//  3. No boundaries, events present: floor-to-hour of the earliest valid
//     timestamp through ceil-to-hour of the latest.
//
// A degenerate result (end <= start, possible with contradictory explicit
// boundaries) is corrected by rolling the end forward with a wrap-around
// hour-of-day computation.
func ResolveWindow(cfg WindowConfig, events []model.Event) Window {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	var start, end time.Time

	startH, startM, startOK := parseClock(cfg.DayStart)
	endH, endM, endOK := parseClock(cfg.DayEnd)
	if (cfg.DayStart != "" || cfg.DayEnd != "") && (!startOK || !endOK) {
		appLog.Warn("ignoring partial or malformed day boundaries",
			"day_start", cfg.DayStart, "day_end", cfg.DayEnd)
	}

	switch {
	case startOK && endOK:
		ref := now
		if len(events) > 0 && events[0].Start.Valid {
			ref = events[0].Start.Time.In(loc)
		}
		start = time.Date(ref.Year(), ref.Month(), ref.Day(), startH, startM, 0, 0, loc)
		end = time.Date(ref.Year(), ref.Month(), ref.Day(), endH, endM, 0, 0, loc)
		// Overnight festival day: 14:00-03:00 means the end is tomorrow.
		if endH < startH || (endH == startH && endM < startM) {
			end = end.AddDate(0, 0, 1)
		}

	default:
		times := collectValidTimes(events, loc)
		if len(times) == 0 {
			start = time.Date(now.Year(), now.Month(), now.Day(), defaultDayStartHour, 0, 0, 0, loc)
			end = time.Date(now.Year(), now.Month(), now.Day(), defaultDayEndHour, 0, 0, 0, loc)
		} else {
			min, max := times[0], times[0]
			for _, t := range times[1:] {
				if t.Before(min) {
					min = t
				}
				if t.After(max) {
					max = t
				}
			}
			start = floorToHour(min)
			end = max
			if end.Minute() != 0 || end.Second() != 0 || end.Nanosecond() != 0 {
				end = floorToHour(end).Add(time.Hour)
			}
		}
	}

	if !end.After(start) {
		// Wrap the end forward by at least one hour so the window always
		// has strictly positive duration.
		wrap := 24 - start.Hour() + end.Hour()
		if wrap < 1 {
			wrap = 1
		}
		end = time.Date(end.Year(), end.Month(), end.Day(),
			start.Hour()+wrap, end.Minute(), end.Second(), end.Nanosecond(), loc)
	}

	total := end.Sub(start).Hours()
	if total < 1 {
		total = 1
	}

	return Window{Start: start, End: end, TotalHours: total}
}

// collectValidTimes gathers every valid start and end timestamp across the
// events, converted into loc. Invalid timestamps are excluded with a warning.
func collectValidTimes(events []model.Event, loc *time.Location) []time.Time {
	times := make([]time.Time, 0, len(events)*2)
	for _, ev := range events {
		if ev.Start.Valid {
			times = append(times, ev.Start.Time.In(loc))
		} else {
			appLog.Warn("event has no valid start time; excluded from window resolution",
				"id", ev.ID, "title", ev.Title)
		}
		if ev.End.Valid {
			times = append(times, ev.End.Time.In(loc))
		}
	}
	return times
}

func floorToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// parseClock parses an "HH:MM" string. Anything else reports ok=false.
func parseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

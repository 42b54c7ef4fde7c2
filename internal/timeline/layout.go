package timeline

import (
	"time"

	appLog "festcal/internal/log"
	"festcal/internal/model"
)

const (
	// DefaultPixelsPerHour is the vertical scale when none is configured.
	DefaultPixelsPerHour = 100

	// MinEventHeightPx keeps very short events tappable and readable.
	// Short events are visually exaggerated on purpose.
	MinEventHeightPx = 18

	// EventGapPx reserves visual separation from the next event.
	EventGapPx = 2

	// DefaultEventDuration applies when an event carries no end time.
	DefaultEventDuration = 60 * time.Minute
)

// Geometry is the vertical placement of one event inside its column.
type Geometry struct {
	TopOffsetPx float64
	HeightPx    float64

	// Start / End are the event's interval after clipping to the window,
	// used for the time sub-label.
	Start time.Time
	End   time.Time
}

// Layout computes the clipped geometry for one event against the resolved
// window. ok is false when the event must not be rendered: invalid
// timestamps, non-positive duration, or an interval entirely outside the
// window. The computation is pure; calling it twice yields identical
// geometry.
func Layout(ev model.Event, w Window, pixelsPerHour float64) (Geometry, bool) {
	if pixelsPerHour <= 0 {
		pixelsPerHour = DefaultPixelsPerHour
	}

	start, end, ok := ResolveInterval(ev)
	if !ok {
		return Geometry{}, false
	}

	// Clip to the window.
	actualStart := start
	if w.Start.After(actualStart) {
		actualStart = w.Start
	}
	actualEnd := end
	if w.End.Before(actualEnd) {
		actualEnd = w.End
	}
	if !actualEnd.After(actualStart) {
		return Geometry{}, false
	}

	offsetMinutes := actualStart.Sub(w.Start).Minutes()
	durationMinutes := actualEnd.Sub(actualStart).Minutes()

	height := durationMinutes/60*pixelsPerHour - EventGapPx
	if height < MinEventHeightPx {
		height = MinEventHeightPx
	}

	return Geometry{
		TopOffsetPx: offsetMinutes / 60 * pixelsPerHour,
		HeightPx:    height,
		Start:       actualStart,
		End:         actualEnd,
	}, true
}

// ResolveInterval returns the event's effective [start, end) interval with
// the 60-minute default applied for a missing end. ok is false when the
// start is invalid or the interval has non-positive duration.
func ResolveInterval(ev model.Event) (start, end time.Time, ok bool) {
	if !ev.Start.Valid {
		return time.Time{}, time.Time{}, false
	}
	start = ev.Start.Time
	if ev.End.Valid {
		end = ev.End.Time
	} else {
		end = start.Add(DefaultEventDuration)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// ColumnIndex maps normalized scene slugs to column positions. It is built
// once after window resolution so that per-event assignment is a single
// lookup rather than a scan over every scene.
type ColumnIndex struct {
	scenes []model.Scene
	bySlug map[string]int
}

// NewColumnIndex builds the index in display order. On duplicate slugs the
// first scene wins; later duplicates are reported and unreachable.
func NewColumnIndex(scenes []model.Scene) *ColumnIndex {
	idx := &ColumnIndex{
		scenes: scenes,
		bySlug: make(map[string]int, len(scenes)),
	}
	for i, sc := range scenes {
		slug := Slugify(sc.Name)
		if _, exists := idx.bySlug[slug]; exists {
			appLog.Warn("duplicate scene slug; later scene is unreachable",
				"slug", slug, "scene", sc.Name)
			continue
		}
		idx.bySlug[slug] = i
	}
	return idx
}

// Lookup resolves a raw (not necessarily pre-slugified) scene identifier to
// its column. A miss emits a diagnostic naming both the normalized and the
// original identifier; the caller drops the event.
func (c *ColumnIndex) Lookup(sceneID string) (column int, ok bool) {
	slug := Slugify(sceneID)
	column, ok = c.bySlug[slug]
	if !ok {
		appLog.Warn("no scene matches event scene id",
			"slug", slug, "scene_id", sceneID)
	}
	return column, ok
}

// Scene returns the scene at the given column.
func (c *ColumnIndex) Scene(column int) model.Scene {
	return c.scenes[column]
}

// Slug returns the normalized identifier for the scene at the given column.
func (c *ColumnIndex) Slug(column int) string {
	return Slugify(c.scenes[column].Name)
}

// Len returns the number of columns.
func (c *ColumnIndex) Len() int {
	return len(c.scenes)
}

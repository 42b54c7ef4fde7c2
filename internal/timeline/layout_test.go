package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"festcal/internal/model"
)

func testWindow() Window {
	start := time.Date(2026, 7, 10, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 10, 22, 0, 0, 0, time.UTC)
	return Window{Start: start, End: end, TotalHours: 12}
}

func TestLayoutBasic(t *testing.T) {
	w := testWindow()
	ev := eventAt(w.Start.Add(2*time.Hour), w.Start.Add(3*time.Hour+30*time.Minute))

	geo, ok := Layout(ev, w, 100)
	require.True(t, ok)
	require.Equal(t, 200.0, geo.TopOffsetPx)
	require.Equal(t, 148.0, geo.HeightPx) // 1.5h * 100 - gap
}

func TestLayoutClipsToWindowStart(t *testing.T) {
	// Event starting 2h before the window, ending 1h in: clipped to
	// [window.Start, window.Start+1h).
	w := testWindow()
	ev := eventAt(w.Start.Add(-2*time.Hour), w.Start.Add(time.Hour))

	geo, ok := Layout(ev, w, 100)
	require.True(t, ok)
	require.Equal(t, 0.0, geo.TopOffsetPx)
	require.Equal(t, 98.0, geo.HeightPx) // 1h * 100 - gap
	require.Equal(t, w.Start, geo.Start)
}

func TestLayoutRejectsOutsideWindow(t *testing.T) {
	w := testWindow()

	before := eventAt(w.Start.Add(-3*time.Hour), w.Start.Add(-1*time.Hour))
	_, ok := Layout(before, w, 100)
	require.False(t, ok)

	after := eventAt(w.End.Add(time.Hour), w.End.Add(2*time.Hour))
	_, ok = Layout(after, w, 100)
	require.False(t, ok)
}

func TestLayoutRejectsInvalidTimestamps(t *testing.T) {
	w := testWindow()

	_, ok := Layout(model.Event{}, w, 100)
	require.False(t, ok)

	inverted := eventAt(w.Start.Add(2*time.Hour), w.Start.Add(time.Hour))
	_, ok = Layout(inverted, w, 100)
	require.False(t, ok)

	zeroDuration := eventAt(w.Start.Add(time.Hour), w.Start.Add(time.Hour))
	_, ok = Layout(zeroDuration, w, 100)
	require.False(t, ok)
}

func TestLayoutDefaultDuration(t *testing.T) {
	// No end time means 60 minutes.
	w := testWindow()
	ev := eventAt(w.Start.Add(time.Hour), time.Time{})

	geo, ok := Layout(ev, w, 100)
	require.True(t, ok)
	require.Equal(t, 100.0, geo.TopOffsetPx)
	require.Equal(t, 98.0, geo.HeightPx)
	require.Equal(t, w.Start.Add(2*time.Hour), geo.End)
}

func TestLayoutMinimumHeight(t *testing.T) {
	// Very short events are exaggerated to stay readable.
	w := testWindow()
	ev := eventAt(w.Start, w.Start.Add(5*time.Minute))

	geo, ok := Layout(ev, w, 100)
	require.True(t, ok)
	require.Equal(t, float64(MinEventHeightPx), geo.HeightPx)
}

func TestLayoutIdempotent(t *testing.T) {
	w := testWindow()
	ev := eventAt(w.Start.Add(90*time.Minute), w.Start.Add(4*time.Hour))

	first, ok1 := Layout(ev, w, 100)
	second, ok2 := Layout(ev, w, 100)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, first, second)
}

func TestLayoutScaleMonotonicity(t *testing.T) {
	// A larger pixelsPerHour strictly increases both offset and height.
	w := testWindow()
	ev := eventAt(w.Start.Add(time.Hour), w.Start.Add(3*time.Hour))

	small, ok := Layout(ev, w, 100)
	require.True(t, ok)
	large, ok := Layout(ev, w, 150)
	require.True(t, ok)

	require.Greater(t, large.TopOffsetPx, small.TopOffsetPx)
	require.Greater(t, large.HeightPx, small.HeightPx)
}

func TestColumnIndexLookup(t *testing.T) {
	index := NewColumnIndex([]model.Scene{
		{Name: "Main Stage"},
		{Name: "Bøgescenen"},
	})

	// A raw, not pre-slugified scene id matches by normalized slug.
	col, ok := index.Lookup("main stage")
	require.True(t, ok)
	require.Equal(t, 0, col)
	require.Equal(t, "Main Stage", index.Scene(col).Name)

	col, ok = index.Lookup("BØGESCENEN")
	require.True(t, ok)
	require.Equal(t, 1, col)

	_, ok = index.Lookup("no such stage")
	require.False(t, ok)
}

func TestColumnIndexFirstMatchWins(t *testing.T) {
	index := NewColumnIndex([]model.Scene{
		{Name: "Main Stage"},
		{Name: "MAIN   STAGE"},
	})

	col, ok := index.Lookup("Main Stage")
	require.True(t, ok)
	require.Equal(t, 0, col)
	require.Equal(t, 2, index.Len())
}

func TestResolveInterval(t *testing.T) {
	start := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)

	s, e, ok := ResolveInterval(eventAt(start, time.Time{}))
	require.True(t, ok)
	require.Equal(t, start, s)
	require.Equal(t, start.Add(time.Hour), e)

	_, _, ok = ResolveInterval(model.Event{})
	require.False(t, ok)
}

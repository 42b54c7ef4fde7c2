// Package render is presentation glue on top of the timeline layout
// engine: it consumes geometry (top offset, height, column) and emits the
// HTML page, CSS tier classes, and detail payloads. It contains no layout
// decisions of its own.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	appLog "festcal/internal/log"
	"festcal/internal/model"
	"festcal/internal/timeline"
)

//go:embed templates
var templateFS embed.FS

var pageTemplate = template.Must(template.New("calendar.html.tmpl").
	Funcs(template.FuncMap{"detailJSON": detailJSON}).
	ParseFS(templateFS, "templates/calendar.html.tmpl"))

// detailJSON serializes a detail payload for the data-detail attribute; the
// template's attribute context handles escaping.
func detailJSON(d Detail) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Detail-level thresholds, in computed height pixels. The time sub-label
// and the description line only appear when the event box is tall enough
// to hold them; the description additionally requires a wide viewport.
const (
	timeLabelMinHeightNarrow = 22
	timeLabelMinHeightWide   = 25
	descriptionMinHeight     = 60
	wideViewportMinWidth     = 640
)

// Placeholders for absent optional detail fields. Optional text is never
// omitted from a detail payload, only replaced.
const (
	placeholderNA          = "N/A"
	placeholderDescription = "No description available."
	placeholderScene       = "Unknown scene"
)

// Options configures view construction.
type Options struct {
	PixelsPerHour float64
	TimeFormat    string
	ViewportWidth int
	DayStart      string
	DayEnd        string
	Location      *time.Location
	Now           time.Time
}

// Column is one scene lane of the rendered grid.
type Column struct {
	Name string
	Slug string
}

// Detail is the read-only payload behind an event's detail view.
type Detail struct {
	Title        string `json:"title"`
	TimeRange    string `json:"formattedTimeRange"`
	SceneName    string `json:"sceneName"`
	RiskTier     string `json:"riskTier"`
	RiskLabel    string `json:"riskLabel"`
	Description  string `json:"description"`
	Remarks      string `json:"remarks"`
	CrowdProfile string `json:"crowdProfile"`
	Notes        string `json:"notes"`
}

// PlacedEvent is one renderable event with its computed geometry and the
// presentation flags derived from it.
type PlacedEvent struct {
	ID       string
	Title    string
	Column   int
	ColumnID string

	TopOffsetPx float64
	HeightPx    float64

	RiskTier  model.RiskLevel
	TierClass string

	TimeLabel       string
	ShowTimeLabel   bool
	Description     string
	ShowDescription bool

	Detail Detail
}

// View is a fully computed timeline: the resolved window, the hour grid,
// the columns, and every renderable event. It is rebuilt from scratch on
// each render; nothing is cached between renders.
type View struct {
	Window        timeline.Window
	PixelsPerHour float64
	HourLabels    []string
	Columns       []Column
	Events        []PlacedEvent
}

// BuildView runs the layout engine over the full event set: the window is
// resolved once, the scene index is built once, then each event is clipped
// and placed independently. Events with invalid timestamps or without a
// matching scene are dropped with a diagnostic and never affect the rest.
func BuildView(scenes []model.Scene, events []model.Event, opts Options) View {
	if opts.PixelsPerHour <= 0 {
		opts.PixelsPerHour = timeline.DefaultPixelsPerHour
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = "15:04"
	}

	window := timeline.ResolveWindow(timeline.WindowConfig{
		DayStart: opts.DayStart,
		DayEnd:   opts.DayEnd,
		Location: opts.Location,
		Now:      opts.Now,
	}, events)

	index := timeline.NewColumnIndex(scenes)

	view := View{
		Window:        window,
		PixelsPerHour: opts.PixelsPerHour,
		HourLabels:    hourLabels(window, opts.TimeFormat),
		Columns:       make([]Column, 0, index.Len()),
		Events:        make([]PlacedEvent, 0, len(events)),
	}
	for i := 0; i < index.Len(); i++ {
		view.Columns = append(view.Columns, Column{
			Name: index.Scene(i).Name,
			Slug: index.Slug(i),
		})
	}

	for _, ev := range events {
		placed, ok := placeEvent(ev, window, index, opts)
		if !ok {
			continue
		}
		view.Events = append(view.Events, placed)
	}

	appLog.Debug("view built",
		"total_hours", window.TotalHours,
		"columns", index.Len(),
		"events", len(view.Events),
	)
	return view
}

func placeEvent(ev model.Event, w timeline.Window, index *timeline.ColumnIndex, opts Options) (PlacedEvent, bool) {
	column, ok := index.Lookup(ev.SceneID)
	if !ok {
		// Lookup already emitted a diagnostic with both identifiers.
		return PlacedEvent{}, false
	}

	geo, ok := timeline.Layout(ev, w, opts.PixelsPerHour)
	if !ok {
		appLog.Warn("event not renderable in window; skipped",
			"id", ev.ID, "title", ev.Title)
		return PlacedEvent{}, false
	}

	// The time label always shows the event's own interval, not the
	// clipped one.
	start, end, _ := timeline.ResolveInterval(ev)
	timeLabel := formatRange(start, end, opts.TimeFormat, opts.Location)

	timeThreshold := float64(timeLabelMinHeightWide)
	if opts.ViewportWidth < wideViewportMinWidth {
		timeThreshold = timeLabelMinHeightNarrow
	}

	return PlacedEvent{
		ID:          ev.ID,
		Title:       ev.Title,
		Column:      column,
		ColumnID:    index.Slug(column),
		TopOffsetPx: geo.TopOffsetPx,
		HeightPx:    geo.HeightPx,
		RiskTier:    ev.Risk,
		TierClass:   tierClass(ev.Risk),
		TimeLabel:   timeLabel,
		ShowTimeLabel: geo.HeightPx > timeThreshold,
		Description:   ev.Description,
		ShowDescription: ev.Description != "" &&
			geo.HeightPx > descriptionMinHeight &&
			opts.ViewportWidth >= wideViewportMinWidth,
		Detail: BuildDetail(ev, index, opts),
	}, true
}

// BuildDetail assembles the read-only detail payload for one event. Every
// optional text field defaults to an explicit placeholder rather than
// being omitted.
func BuildDetail(ev model.Event, index *timeline.ColumnIndex, opts Options) Detail {
	sceneName := placeholderScene
	if column, ok := index.Lookup(ev.SceneID); ok {
		sceneName = index.Scene(column).Name
	}

	timeRange := ""
	if start, end, ok := timeline.ResolveInterval(ev); ok {
		timeRange = formatRange(start, end, opts.TimeFormat, opts.Location)
	}

	return Detail{
		Title:        ev.Title,
		TimeRange:    timeRange,
		SceneName:    sceneName,
		RiskTier:     string(ev.Risk),
		RiskLabel:    ev.Risk.Label(),
		Description:  orPlaceholder(ev.Description, placeholderDescription),
		Remarks:      orPlaceholder(ev.Remarks, placeholderNA),
		CrowdProfile: orPlaceholder(ev.CrowdProfile, placeholderNA),
		Notes:        orPlaceholder(ev.Notes, placeholderNA),
	}
}

// WritePage renders the full HTML timeline page for the given view.
func WritePage(w io.Writer, view View) error {
	if err := pageTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render: execute page template: %w", err)
	}
	return nil
}

func hourLabels(w timeline.Window, format string) []string {
	labels := make([]string, 0, w.Rows())
	for i := 0; i < w.Rows(); i++ {
		labels = append(labels, w.Start.Add(time.Duration(i)*time.Hour).Format(format))
	}
	return labels
}

func formatRange(start, end time.Time, format string, loc *time.Location) string {
	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}
	return start.Format(format) + " - " + end.Format(format)
}

func tierClass(r model.RiskLevel) string {
	switch r {
	case model.RiskHigh:
		return "risk-high"
	case model.RiskMedium:
		return "risk-medium"
	case model.RiskLow:
		return "risk-low"
	default:
		return "risk-unknown"
	}
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"festcal/internal/model"
)

func icsBody(lines ...string) []byte {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//festcal//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

func TestParseFeedSingleEvent(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:one@example.com",
		"DTSTART:20260710T180000Z",
		"DTEND:20260710T193000Z",
		"SUMMARY:Headliner",
		"LOCATION:Main Stage",
		"CATEGORIES:Music,High",
		"DESCRIPTION:Pyro show",
		"END:VEVENT",
	)

	events, err := ParseFeed(Source{ID: "test"}, body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, "one@example.com", ev.UID)
	require.Equal(t, "Headliner", ev.Summary)
	require.Equal(t, "Main Stage", ev.Location)
	require.Equal(t, []string{"Music", "High"}, ev.Categories)
	require.False(t, ev.AllDay)
	require.Equal(t, time.Date(2026, 7, 10, 18, 0, 0, 0, time.UTC), ev.Start.UTC())
}

func TestParseFeedSkipsEventWithoutUID(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"DTSTART:20260710T180000Z",
		"SUMMARY:Anonymous",
		"END:VEVENT",
	)

	events, err := ParseFeed(Source{ID: "test"}, body)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestParseFeedEmptyBody(t *testing.T) {
	_, err := ParseFeed(Source{ID: "test"}, nil)
	require.Error(t, err)
}

func TestExpandSingleEvent(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:one@example.com",
		"DTSTART:20260710T180000Z",
		"DTEND:20260710T193000Z",
		"SUMMARY:Headliner",
		"LOCATION:Main Stage",
		"CATEGORIES:High",
		"END:VEVENT",
	)
	parsed, err := ParseFeed(Source{ID: "test"}, body)
	require.NoError(t, err)

	events, err := ExpandEvents(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	require.Equal(t, "Headliner", ev.Title)
	require.Equal(t, "Main Stage", ev.SceneID)
	require.Equal(t, model.RiskHigh, ev.Risk)
	require.True(t, ev.Start.Valid)
	require.True(t, ev.End.Valid)
	require.Equal(t, time.Date(2026, 7, 10, 18, 0, 0, 0, time.UTC), ev.Start.Time)
}

func TestExpandSourcePinOverridesLocation(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:one@example.com",
		"DTSTART:20260710T180000Z",
		"DTEND:20260710T190000Z",
		"SUMMARY:Headliner",
		"LOCATION:Somewhere Else",
		"END:VEVENT",
	)
	parsed, err := ParseFeed(Source{ID: "test", SceneID: "Main Stage"}, body)
	require.NoError(t, err)

	events, err := ExpandEvents(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "Main Stage", events[0].SceneID)
}

func TestExpandRecurringEvent(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:daily@example.com",
		"DTSTART:20260710T100000Z",
		"DTEND:20260710T110000Z",
		"SUMMARY:Soundcheck",
		"LOCATION:Main Stage",
		"RRULE:FREQ=DAILY;COUNT=5",
		"END:VEVENT",
	)
	parsed, err := ParseFeed(Source{ID: "test"}, body)
	require.NoError(t, err)

	events, err := ExpandEvents(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2026, 7, 12, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, events, 3) // 10th, 11th, 12th

	for i, ev := range events {
		require.Equal(t, "Soundcheck", ev.Title)
		require.Equal(t, time.Date(2026, 7, 10+i, 10, 0, 0, 0, time.UTC), ev.Start.Time)
		// Original one-hour duration is preserved per occurrence.
		require.Equal(t, ev.Start.Time.Add(time.Hour), ev.End.Time)
		// Per-occurrence ids stay distinct.
		if i > 0 {
			require.NotEqual(t, events[i-1].ID, ev.ID)
		}
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	_, err := ExpandEvents(nil, ExpandConfig{
		RangeStart: time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
}

func TestFetchOneUsesHTTPCache(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:one@example.com",
		"DTSTART:20260710T180000Z",
		"SUMMARY:Headliner",
		"END:VEVENT",
	)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "test", URL: srv.URL}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	require.False(t, first.FromCache)
	require.Equal(t, body, first.Body)

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, body, second.Body)
	require.Equal(t, 2, hits)
}

func TestFetchOneEmptyURL(t *testing.T) {
	f := NewFetcher(t.TempDir())
	_, err := f.FetchOne(context.Background(), Source{ID: "test"})
	require.Error(t, err)
}

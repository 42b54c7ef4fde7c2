// Package web serves the rendered timeline and its JSON form over HTTP.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"festcal/internal/config"
	"festcal/internal/ics"
	appLog "festcal/internal/log"
	"festcal/internal/model"
	"festcal/internal/render"
)

// Server provides the timeline page, the timeline API, and the preview
// image. Layout is recomputed from scratch on every request: the window and
// each event's geometry are re-derived per render, never cached.
type Server struct {
	cfg   *config.Config
	debug bool
	mux   *http.ServeMux
	loc   *time.Location

	// feedEvents holds the last refreshed ICS occurrences. Config events
	// are converted fresh on each request; only the feed snapshot is
	// shared state, replaced wholesale by RefreshFeeds.
	feedMu     sync.RWMutex
	feedEvents []model.Event
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, debug bool) *Server {
	s := &Server{
		cfg:   cfg,
		debug: debug,
		mux:   http.NewServeMux(),
		loc:   resolveLocationOrLocal(cfg.Timezone),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password is treated as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="festcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/calendar", s.handleCalendar)
	s.mux.HandleFunc("/api/timeline", s.handleTimeline)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/calendar", http.StatusFound)
}

// handleCalendar serves the rendered HTML timeline. A full relayout runs on
// every request.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	view := s.buildView()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WritePage(w, view); err != nil {
		appLog.Error("failed to render calendar page", err)
	}
}

// timelineResponse is the JSON shape for /api/timeline.
type timelineResponse struct {
	Grid   gridDTO    `json:"grid"`
	Events []eventDTO `json:"events"`
}

type gridDTO struct {
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	TotalHours    float64   `json:"total_hours"`
	Rows          int       `json:"rows"`
	PixelsPerHour float64   `json:"pixels_per_hour"`
}

type eventDTO struct {
	ID          string        `json:"id,omitempty"`
	ColumnID    string        `json:"column_id"`
	TopOffsetPx float64       `json:"top_offset_px"`
	HeightPx    float64       `json:"height_px"`
	RiskTier    string        `json:"risk_tier"`
	Detail      render.Detail `json:"detail"`
}

// handleTimeline returns the layout engine's output: grid sizing plus the
// geometry and detail payload of every renderable event.
func (s *Server) handleTimeline(w http.ResponseWriter, _ *http.Request) {
	view := s.buildView()

	events := make([]eventDTO, 0, len(view.Events))
	for _, ev := range view.Events {
		events = append(events, eventDTO{
			ID:          ev.ID,
			ColumnID:    ev.ColumnID,
			TopOffsetPx: ev.TopOffsetPx,
			HeightPx:    ev.HeightPx,
			RiskTier:    string(ev.RiskTier),
			Detail:      ev.Detail,
		})
	}

	writeJSON(w, http.StatusOK, timelineResponse{
		Grid: gridDTO{
			WindowStart:   view.Window.Start,
			WindowEnd:     view.Window.End,
			TotalHours:    view.Window.TotalHours,
			Rows:          view.Window.Rows(),
			PixelsPerHour: view.PixelsPerHour,
		},
		Events: events,
	})
}

// handlePreview serves the last captured PNG preview from disk. The path
// convention matches the capture pipeline in cmd/festcal.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, PreviewPath(s.cfg, s.debug))
}

// buildView assembles the full event set (config events plus the ICS feed
// snapshot) and runs the layout engine over it.
func (s *Server) buildView() render.View {
	events := ConvertEvents(s.cfg.Events, s.loc)

	s.feedMu.RLock()
	events = append(events, s.feedEvents...)
	s.feedMu.RUnlock()

	return render.BuildView(Scenes(s.cfg), events, render.Options{
		PixelsPerHour: s.cfg.PixelsPerHour,
		TimeFormat:    s.cfg.TimeFormat,
		ViewportWidth: s.cfg.ViewportWidth,
		DayStart:      s.cfg.DayStartTime,
		DayEnd:        s.cfg.DayEndTime,
		Location:      s.loc,
	})
}

// RefreshFeeds fetches, parses, and expands every configured ICS source and
// replaces the feed snapshot. Individual feed failures are logged and the
// remaining feeds still apply.
func (s *Server) RefreshFeeds(ctx context.Context) {
	sources := make([]ics.Source, 0, len(s.cfg.ICS))
	for _, csrc := range s.cfg.ICS {
		if csrc.URL == "" {
			continue
		}
		id := csrc.ID
		if id == "" {
			if csrc.Name != "" {
				id = csrc.Name
			} else {
				id = csrc.URL
			}
		}
		sources = append(sources, ics.Source{
			ID:      id,
			URL:     csrc.URL,
			SceneID: csrc.SceneID,
		})
	}
	if len(sources) == 0 {
		return
	}

	fetcher := ics.NewFetcher(ICSCacheDir(s.cfg, s.debug))
	results, errs := fetcher.FetchAll(ctx, sources)
	for _, err := range errs {
		appLog.Error("ics refresh: fetch failed", err)
	}

	// Expand around the present: a day of backfill for overnight windows
	// and a week of lookahead.
	now := time.Now().In(s.loc)
	expandCfg := ics.ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      now.AddDate(0, 0, -1),
		RangeEnd:        now.AddDate(0, 0, 7),
	}

	feedEvents := make([]model.Event, 0)
	for _, res := range results {
		parsed, err := ics.ParseFeed(res.Source, res.Body)
		if err != nil {
			appLog.Error("ics refresh: parse failed", err, "id", res.Source.ID)
			continue
		}
		expanded, err := ics.ExpandEvents(parsed, expandCfg)
		if err != nil {
			appLog.Error("ics refresh: expand failed", err, "id", res.Source.ID)
			continue
		}
		feedEvents = append(feedEvents, expanded...)
	}

	s.feedMu.Lock()
	s.feedEvents = feedEvents
	s.feedMu.Unlock()

	appLog.Info("ics refresh completed", "sources", len(sources), "events", len(feedEvents))
}

// ConvertEvents maps configured events onto the timeline model. Timestamps
// are parsed into tagged results here; events with an invalid start are
// kept (and warned about) so that window resolution and layout apply the
// drop rules uniformly.
func ConvertEvents(events []config.EventConfig, loc *time.Location) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ec := range events {
		ev := model.Event{
			ID:           ec.ID,
			Title:        ec.Title,
			Start:        model.ParseTimestamp(ec.StartTime, loc),
			End:          model.ParseTimestamp(ec.EndTime, loc),
			SceneID:      ec.SceneID,
			Risk:         model.ParseRiskLevel(ec.RiskLevel),
			Description:  ec.Description,
			Remarks:      ec.Remarks,
			CrowdProfile: ec.CrowdProfile,
			Notes:        ec.Notes,
		}
		if !ev.Start.Valid {
			appLog.Warn("event has unparseable start time; it will not be rendered",
				"id", ec.ID, "title", ec.Title, "start_time", ec.StartTime)
		}
		out = append(out, ev)
	}
	return out
}

// Scenes maps configured scenes onto the timeline model, preserving order.
func Scenes(cfg *config.Config) []model.Scene {
	scenes := make([]model.Scene, 0, len(cfg.Scenes))
	for _, sc := range cfg.Scenes {
		scenes = append(scenes, model.Scene{Name: sc.Name})
	}
	return scenes
}

// PreviewPath returns where the capture pipeline writes (and /preview.png
// reads) the rendered screenshot.
func PreviewPath(cfg *config.Config, debug bool) string {
	if debug {
		return "./cache/preview.png"
	}
	return filepath.Join(cfg.DataDir, "preview.png")
}

// ICSCacheDir returns the disk cache directory for ICS fetching.
func ICSCacheDir(cfg *config.Config, debug bool) string {
	if debug {
		return "./cache/ics-cache"
	}
	return filepath.Join(cfg.DataDir, "ics-cache")
}

// StartServer starts an HTTP server bound to cfg.Listen. The returned
// server's handler is already wrapped with basic auth when configured.
func StartServer(_ context.Context, s *Server) error {
	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
	return http.ListenAndServe(s.cfg.Listen, s.Handler())
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

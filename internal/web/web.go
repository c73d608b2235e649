package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"calgrid/internal/config"
	"calgrid/internal/layout"
	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/recur"
	"calgrid/internal/source"
	"calgrid/internal/state"
	"calgrid/internal/view"
	"calgrid/internal/visible"
)

// cacheTTL bounds how long a computed /api/events response is reused.
const cacheTTL = 60 * time.Second

// Server exposes the computed calendar data as a JSON API.
type Server struct {
	cfg *config.Config
	ref *state.Ref
	src source.Source
	mux *http.ServeMux

	// Single-slot response cache for /api/events, keyed by the full
	// request tuple. Avoids re-fetching and re-expanding on every poll.
	cacheMu sync.RWMutex
	cache   *eventsCache
}

type eventsCache struct {
	key     string
	payload []byte
	expires time.Time
}

// NewServer constructs a Server over the given state holder and source.
func NewServer(cfg *config.Config, ref *state.Ref, src source.Source) *Server {
	s := &Server{cfg: cfg, ref: ref, src: src, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/range", s.handleRange)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("GET /api/calendars", s.handleCalendars)
	return s
}

// Handler returns the root handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware guards every endpoint except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calgrid", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRange reports the data-fetch range for an anchor and view, plus
// the padded grid range and day cells for the month view.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	anchor, mode, ok := s.anchorAndMode(w, r)
	if !ok {
		return
	}

	rng, err := view.Range(anchor, mode)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	resp := map[string]any{
		"view":  mode,
		"range": rng,
	}
	if mode == view.ModeMonth {
		resp["grid_range"] = view.GridRange(anchor)
		resp["grid_days"] = view.MonthGridDays(anchor)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents returns the recurrence-expanded, selection-filtered
// visible event set for the requested range, merged with the enabled
// static sources.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	anchor, mode, ok := s.anchorAndMode(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("search")

	st := s.ref.Get()
	key := cacheKey(anchor, mode, query, st)
	if payload, ok := s.cached(key); ok {
		writeRaw(w, payload)
		return
	}

	rng, err := view.Range(anchor, mode)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	fetched, err := s.src.FetchEvents(r.Context(), rng, query)
	if err != nil {
		httpError(w, http.StatusBadGateway, err)
		return
	}

	expanded := recur.ExpandAll(fetched, rng)
	events := visible.Visible(expanded.Events, st.Selection, visible.Options{
		ShowHolidays:  st.ShowHolidays,
		ShowBirthdays: st.ShowBirthdays,
	})

	payload, err := json.Marshal(map[string]any{
		"range":     rng,
		"events":    events,
		"truncated": expanded.Truncated,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	s.store(key, payload)
	writeRaw(w, payload)
}

// handleLayout positions one day's timed events on the 24-hour grid.
// ?legacy=1 selects the historical full-width stacking.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	anchor, ok := s.anchor(w, r)
	if !ok {
		return
	}

	rng, err := view.Range(anchor, view.ModeDay)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	st := s.ref.Get()
	fetched, err := s.src.FetchEvents(r.Context(), rng, r.URL.Query().Get("search"))
	if err != nil {
		httpError(w, http.StatusBadGateway, err)
		return
	}

	expanded := recur.ExpandAll(fetched, rng)
	events := visible.Visible(expanded.Events, st.Selection, visible.Options{
		ShowHolidays:  st.ShowHolidays,
		ShowBirthdays: st.ShowBirthdays,
	})

	var timed, allDay []model.Event
	for _, ev := range events {
		if ev.AllDay {
			allDay = append(allDay, ev)
			continue
		}
		timed = append(timed, ev)
	}

	var placed []layout.Placed
	if r.URL.Query().Get("legacy") == "1" {
		placed = layout.Legacy(timed)
	} else {
		placed = layout.Lanes(timed)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"day":     view.StartOfDay(anchor),
		"placed":  placed,
		"all_day": allDay,
	})
}

func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	st := s.ref.Get()
	selected := make([]string, 0, len(st.Selection))
	for id := range st.Selection {
		selected = append(selected, id)
	}
	sort.Strings(selected)
	writeJSON(w, http.StatusOK, map[string]any{
		"calendars": st.Calendars,
		"selected":  selected,
	})
}

// anchorAndMode parses the shared anchor/view query parameters, writing
// the error response itself on failure.
func (s *Server) anchorAndMode(w http.ResponseWriter, r *http.Request) (time.Time, view.ViewMode, bool) {
	anchor, ok := s.anchor(w, r)
	if !ok {
		return time.Time{}, "", false
	}

	modeStr := r.URL.Query().Get("view")
	if modeStr == "" {
		modeStr = string(view.ModeMonth)
	}
	mode, err := view.ParseViewMode(modeStr)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return time.Time{}, "", false
	}
	return anchor, mode, true
}

func (s *Server) anchor(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("anchor")
	if raw == "" {
		return time.Now(), true
	}
	for _, l := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.ParseInLocation(l, raw, time.Local); err == nil {
			return t, true
		}
	}
	http.Error(w, "bad anchor date", http.StatusBadRequest)
	return time.Time{}, false
}

func cacheKey(anchor time.Time, mode view.ViewMode, query string, st state.State) string {
	var b strings.Builder
	b.WriteString(anchor.Format("2006-01-02"))
	b.WriteString("|")
	b.WriteString(string(mode))
	b.WriteString("|")
	b.WriteString(query)
	b.WriteString("|")
	ids := make([]string, 0, len(st.Selection))
	for id := range st.Selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.WriteString(id)
		b.WriteString(",")
	}
	if st.ShowHolidays {
		b.WriteString("|h")
	}
	if st.ShowBirthdays {
		b.WriteString("|b")
	}
	return b.String()
}

func (s *Server) cached(key string) ([]byte, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	if s.cache != nil && s.cache.key == key && time.Now().Before(s.cache.expires) {
		return s.cache.payload, true
	}
	return nil, false
}

func (s *Server) store(key string, payload []byte) {
	s.cacheMu.Lock()
	s.cache = &eventsCache{key: key, payload: payload, expires: time.Now().Add(cacheTTL)}
	s.cacheMu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("response encode failed", err)
	}
}

func writeRaw(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		appLog.Error("response write failed", err)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	appLog.Error("request failed", err, "status", status)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

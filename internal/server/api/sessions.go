package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/history"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/transcript"
)

// SessionHandler handles HTTP requests for recorded sessions.
//
// Routes:
//
//	GET    /api/sessions
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/events
//	GET    /api/sessions/{id}/transcript
type SessionHandler struct {
	store   *store.Store
	history config.HistoryConfig
	log     *zap.Logger
}

// NewSessionHandler creates a SessionHandler. The history settings are used
// to rebuild token tallies for stored sessions.
func NewSessionHandler(s *store.Store, cfg config.HistoryConfig) *SessionHandler {
	return &SessionHandler{store: s, history: cfg, log: zap.L().Named("api")}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case sub == "events" && r.Method == http.MethodGet:
		h.events(w, r, id)
	case sub == "transcript" && r.Method == http.MethodGet:
		h.transcript(w, r, id)
	case sub == "" || sub == "events" || sub == "transcript":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

type eventsResponse struct {
	SessionID string          `json:"session_id"`
	Events    []gesture.Event `json:"events"`
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		h.log.Error("list sessions", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}
	WriteJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.lookup(w, id)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.log.Error("delete session", zap.String("session", id), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// events handles GET /api/sessions/{id}/events.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}
	events, ok := h.loadEvents(w, id)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, eventsResponse{SessionID: id, Events: events})
}

// transcript handles GET /api/sessions/{id}/transcript. The template is
// rendered as text unless format=json is requested.
func (h *SessionHandler) transcript(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.lookup(w, id)
	if !ok {
		return
	}
	events, ok := h.loadEvents(w, id)
	if !ok {
		return
	}

	tokens, err := tally(h.history, events)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to build transcript")
		return
	}

	ended := time.Now()
	if sess.EndedAt != nil {
		ended = *sess.EndedAt
	}
	tpl := transcript.Build(sess.ID, sess.StartedAt, ended, events, tokens)

	WriteTranscript(w, r, tpl)
}

// WriteTranscript writes tpl as JSON when format=json is requested and as
// plain text otherwise.
func WriteTranscript(w http.ResponseWriter, r *http.Request, tpl transcript.Template) {
	if r.URL.Query().Get("format") == "json" {
		WriteJSON(w, http.StatusOK, tpl)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := transcript.Render(w, tpl); err != nil {
		zap.L().Named("api").Error("render transcript", zap.Error(err))
	}
}

func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		h.log.Error("get session", zap.String("session", id), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) loadEvents(w http.ResponseWriter, id string) ([]gesture.Event, bool) {
	rows, err := h.store.Events().ListBySession(id)
	if err != nil {
		h.log.Error("list events", zap.String("session", id), zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return nil, false
	}
	events := make([]gesture.Event, len(rows))
	for i, row := range rows {
		events[i] = app.FromStoreEvent(row)
	}
	return events, true
}

// tally replays stored events through an aggregator to rebuild the token
// counts under the current cutoffs.
func tally(cfg config.HistoryConfig, events []gesture.Event) ([]history.TokenStat, error) {
	cfg.Capacity = max(cfg.Capacity, len(events), 1)
	agg, err := history.NewAggregator(cfg)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		agg.Add(ev)
	}
	return agg.Tokens(), nil
}

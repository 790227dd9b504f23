package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/history"
	"github.com/ayusman/mudra/internal/server/api"
)

// detectorHandler exposes the App's status, history and controls.
type detectorHandler struct {
	app *app.App
	log *zap.Logger
}

type historyResponse struct {
	Events []gesture.Event `json:"events"`
}

type tokensResponse struct {
	// Placeholder is always true: tokens are not a translation.
	Placeholder bool                `json:"placeholder"`
	Tokens      []history.TokenStat `json:"tokens"`
}

// status handles GET /api/status.
func (h *detectorHandler) status(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	api.WriteJSON(w, http.StatusOK, h.app.Status())
}

// history handles GET /api/history.
func (h *detectorHandler) history(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	api.WriteJSON(w, http.StatusOK, historyResponse{Events: h.app.History()})
}

// tokens handles GET /api/tokens.
func (h *detectorHandler) tokens(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	api.WriteJSON(w, http.StatusOK, tokensResponse{Placeholder: true, Tokens: h.app.Tokens()})
}

// transcript handles GET /api/transcript for the active or last session.
func (h *detectorHandler) transcript(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	tpl, err := h.app.Transcript()
	if err != nil {
		api.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	api.WriteTranscript(w, r, tpl)
}

// start handles POST /api/detector/start.
func (h *detectorHandler) start(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	// The session outlives the request.
	err := h.app.Start(context.WithoutCancel(r.Context()), nil)
	h.respond(w, "start", err)
}

// stop handles POST /api/detector/stop.
func (h *detectorHandler) stop(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	h.respond(w, "stop", h.app.Stop())
}

// restart handles POST /api/detector/restart.
func (h *detectorHandler) restart(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	h.respond(w, "restart", h.app.Restart())
}

func (h *detectorHandler) respond(w http.ResponseWriter, op string, err error) {
	switch {
	case err == nil:
		api.WriteJSON(w, http.StatusOK, h.app.Status())
	case errors.Is(err, app.ErrRunning), errors.Is(err, app.ErrNotRunning):
		api.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNoSource):
		api.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error("detector "+op, zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

package e2e

import (
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/capture/capturetest"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/transcript"
)

// rightHand is a patch inside the right hand zone and clear of the edge band.
var rightHand = capturetest.Region{MinX: 0.66, MinY: 0.3, MaxX: 0.74, MaxY: 0.7}

func recording() []image.Image {
	base := capturetest.Solid(240, 180, 40)
	frames := make([]image.Image, 0, 33)
	for i := 0; i < 31; i++ {
		frames = append(frames, base)
	}
	return append(frames, capturetest.WithPatch(base, rightHand, 220), base)
}

type env struct {
	store *store.Store
	app   *app.App
	ts    *httptest.Server
}

func setup(t *testing.T) *env {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	src := capture.NewMockSource(recording(), false)
	if err := src.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// Ticks are driven by the test.
	cfg := config.Default()
	cfg.Sampler.Interval = config.Duration(time.Hour)

	a, err := app.New(app.Config{Detection: cfg, Source: src, Store: s})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Stop() })

	ts := httptest.NewServer(server.New(server.Config{Store: s, App: a}))
	t.Cleanup(ts.Close)

	return &env{store: s, app: a, ts: ts}
}

func (e *env) post(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.ts.Client().Post(e.ts.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	return resp
}

func (e *env) getJSON(t *testing.T, path string, v any) {
	t.Helper()
	resp, err := e.ts.Client().Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s decode error = %v", path, err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	e := setup(t)

	t.Run("Start", func(t *testing.T) {
		resp := e.post(t, "/api/detector/start")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var status app.Status
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if status.State != app.StateCalibrating {
			t.Errorf("state = %q, want %q", status.State, app.StateCalibrating)
		}
	})

	t.Run("Calibrate", func(t *testing.T) {
		for i := 0; i < 31; i++ {
			if _, err := e.app.Tick(); err != nil {
				t.Fatalf("tick %d error = %v", i, err)
			}
		}

		var status app.Status
		e.getJSON(t, "/api/status", &status)
		if status.State != app.StateReady {
			t.Fatalf("state = %q, want %q", status.State, app.StateReady)
		}
		if status.Thresholds == nil {
			t.Error("expected thresholds once calibrated")
		}
		if status.CalibrationProgress != 1 {
			t.Errorf("calibration progress = %v, want 1", status.CalibrationProgress)
		}
	})

	t.Run("DetectRightHand", func(t *testing.T) {
		res, err := e.app.Tick()
		if err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
		if res.Event.Category != gesture.CategorySingleHandDominant {
			t.Fatalf("category = %q, want %q", res.Event.Category, gesture.CategorySingleHandDominant)
		}

		var hist struct {
			Events []gesture.Event `json:"events"`
		}
		e.getJSON(t, "/api/history", &hist)
		if len(hist.Events) != 1 {
			t.Fatalf("history has %d events, want 1", len(hist.Events))
		}
		if !hist.Events[0].Hands.Right || hist.Events[0].Hands.Left {
			t.Errorf("hands = %+v, want right only", hist.Events[0].Hands)
		}
	})

	t.Run("LiveTranscript", func(t *testing.T) {
		resp, err := e.ts.Client().Get(e.ts.URL + "/api/transcript")
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), transcript.Disclaimer) {
			t.Errorf("transcript is missing the disclaimer:\n%s", body)
		}
	})

	var sessionID string
	t.Run("Stop", func(t *testing.T) {
		resp := e.post(t, "/api/detector/stop")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var list struct {
			Sessions []store.Session `json:"sessions"`
		}
		e.getJSON(t, "/api/sessions", &list)
		if len(list.Sessions) != 1 {
			t.Fatalf("got %d sessions, want 1", len(list.Sessions))
		}
		sess := list.Sessions[0]
		if sess.EndedAt == nil {
			t.Error("stopped session should have an end time")
		}
		if sess.EventCount != 1 {
			t.Errorf("event_count = %d, want 1", sess.EventCount)
		}
		if sess.Baseline == nil {
			t.Error("stopped session should record its baseline")
		}
		sessionID = sess.ID
	})

	t.Run("StoredTranscript", func(t *testing.T) {
		if sessionID == "" {
			t.Skip("no session recorded")
		}

		var tpl transcript.Template
		e.getJSON(t, "/api/sessions/"+sessionID+"/transcript?format=json", &tpl)
		if tpl.SessionID != sessionID {
			t.Errorf("session_id = %q, want %q", tpl.SessionID, sessionID)
		}
		if tpl.Events != 1 {
			t.Errorf("events = %d, want 1", tpl.Events)
		}
		if tpl.Disclaimer != transcript.Disclaimer {
			t.Errorf("disclaimer = %q", tpl.Disclaimer)
		}

		found := false
		for _, c := range tpl.Categories {
			if c.Category == gesture.CategorySingleHandDominant && c.Count == 1 {
				found = true
			}
		}
		if !found {
			t.Errorf("categories = %+v, want one single-hand-dominant", tpl.Categories)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := e.ts.Client().Get(e.ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after detector operations")
		}
	})
}

func TestE2E_DetectorControlConflicts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	e := setup(t)

	resp := e.post(t, "/api/detector/restart")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("restart while idle: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	resp = e.post(t, "/api/detector/start")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp = e.post(t, "/api/detector/start")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second start: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	resp = e.post(t, "/api/detector/restart")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("restart: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := e.app.State(); got != app.StateCalibrating {
		t.Errorf("state after restart = %q, want %q", got, app.StateCalibrating)
	}

	// The restart ended the first session.
	sessions, err := e.store.Sessions().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2", len(sessions))
	}
}

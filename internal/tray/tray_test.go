package tray

import (
	"errors"
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		ev   gesture.Event
		want string
	}{
		{"none", gesture.Event{Category: gesture.CategoryNone}, "none"},
		{"empty", gesture.Event{}, "none"},
		{"wave", gesture.Event{Category: gesture.CategoryWave, Confidence: 0.92}, "wave (92%)"},
		{"two-hand", gesture.Event{Category: gesture.CategoryTwoHand, Confidence: 0.5}, "two-hand (50%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.ev); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTray_HandleToggle(t *testing.T) {
	tr := New(false)

	var calls []bool
	tr.OnToggle(func(enabled bool) error {
		calls = append(calls, enabled)
		return nil
	})

	tr.handleToggle()
	if !tr.IsEnabled() {
		t.Error("expected tray to be enabled after first toggle")
	}

	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected tray to be disabled after second toggle")
	}

	if len(calls) != 2 || calls[0] != true || calls[1] != false {
		t.Errorf("unexpected toggle calls: %v", calls)
	}
}

func TestTray_HandleToggle_RevertsOnError(t *testing.T) {
	tr := New(false)
	tr.OnToggle(func(bool) error { return errors.New("no camera") })

	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("expected toggle to be reverted when the callback fails")
	}
}

func TestTray_HandleOpen(t *testing.T) {
	tr := New(true)

	opened := 0
	tr.OnOpen(func() { opened++ })
	tr.handleOpen()

	if opened != 1 {
		t.Errorf("expected open callback once, got %d", opened)
	}
}

func TestTray_UpdatesBeforeReady(t *testing.T) {
	tr := New(true)

	// Menu items do not exist until the tray is running.
	tr.SetStatus("ready")
	tr.SetLastGesture(gesture.Event{Category: gesture.CategoryWave, Confidence: 0.9})

	events := make(chan gesture.Event, 2)
	events <- gesture.Event{Category: gesture.CategoryNone}
	events <- gesture.Event{Category: gesture.CategoryGenericHand, Confidence: 0.5}
	close(events)
	tr.Follow(events)
}

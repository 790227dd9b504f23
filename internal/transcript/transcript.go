// Package transcript compiles a session's history into a template for a
// person to complete by hand. It never produces a translation.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/history"
)

// Disclaimer is printed at the top of every rendered template.
const Disclaimer = "Markers below are placeholders from a coarse motion detector. " +
	"They are not a sign-language translation and must be completed manually."

// CategoryCount is the number of recorded events of one category.
type CategoryCount struct {
	Category gesture.Category `json:"category"`
	Count    int              `json:"count"`
}

// Template is the material a person uses to write the real transcript.
type Template struct {
	SessionID  string              `json:"session_id"`
	Started    time.Time           `json:"started"`
	Ended      time.Time           `json:"ended"`
	Events     int                 `json:"events"`
	Categories []CategoryCount     `json:"categories"`
	Tokens     []history.TokenStat `json:"placeholder_tokens"`
	Disclaimer string              `json:"disclaimer"`
}

// Duration returns the session length.
func (t Template) Duration() time.Duration {
	if t.Ended.Before(t.Started) {
		return 0
	}
	return t.Ended.Sub(t.Started)
}

// Build summarises events and tokens for one session.
// Categories are listed in classification precedence order and only when seen.
func Build(sessionID string, started, ended time.Time, events []gesture.Event, tokens []history.TokenStat) Template {
	counts := make(map[gesture.Category]int)
	for _, ev := range events {
		if ev.IsGesture() {
			counts[ev.Category]++
		}
	}

	var cats []CategoryCount
	for _, c := range gesture.Categories {
		if n := counts[c]; n > 0 {
			cats = append(cats, CategoryCount{Category: c, Count: n})
		}
	}

	return Template{
		SessionID:  sessionID,
		Started:    started,
		Ended:      ended,
		Events:     len(events),
		Categories: cats,
		Tokens:     append([]history.TokenStat(nil), tokens...),
		Disclaimer: Disclaimer,
	}
}

var text = template.Must(template.New("transcript").Funcs(template.FuncMap{
	"clock": func(t time.Time) string { return t.Format("15:04:05") },
	"date":  func(t time.Time) string { return t.Format(time.RFC3339) },
	"rule":  func(n int) string { return strings.Repeat("-", n) },
}).Parse(`SESSION TRANSCRIPT TEMPLATE
{{rule 27}}
NOTE: {{.Disclaimer}}

Session:  {{.SessionID}}
Started:  {{date .Started}}
Ended:    {{date .Ended}}
Duration: {{.Duration}}
Recorded events: {{.Events}}

Activity by category:
{{- range .Categories}}
  {{printf "%-22s" .Category}} {{.Count}}
{{- else}}
  (none)
{{- end}}

Placeholder markers (first seen, last seen, count):
{{- range .Tokens}}
  [{{.Token}}] {{clock .FirstSeen}} {{clock .LastSeen}} x{{.Count}}
    Actual meaning: ____________________
{{- else}}
  (none)
{{- end}}

Notes:
____________________________________________________________
`))

// Render writes the plain-text template for t.
func Render(w io.Writer, t Template) error {
	if t.Disclaimer == "" {
		t.Disclaimer = Disclaimer
	}
	if err := text.Execute(w, t); err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}
	return nil
}

package transcript

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/history"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestBuild(t *testing.T) {
	events := []gesture.Event{
		{Timestamp: t0, Category: gesture.CategoryBodyMovement, Confidence: 0.5},
		{Timestamp: t0.Add(time.Second), Category: gesture.CategoryWave, Confidence: 0.9, Tokens: []string{"hello"}},
		{Timestamp: t0.Add(2 * time.Second), Category: gesture.CategoryWave, Confidence: 0.8, Tokens: []string{"hello"}},
	}
	tokens := []history.TokenStat{{Token: "hello", Count: 2, FirstSeen: t0.Add(time.Second), LastSeen: t0.Add(2 * time.Second)}}

	got := Build("s-1", t0, t0.Add(time.Minute), events, tokens)

	want := []CategoryCount{
		{Category: gesture.CategoryWave, Count: 2},
		{Category: gesture.CategoryBodyMovement, Count: 1},
	}
	if diff := cmp.Diff(want, got.Categories); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, got.Events)
	assert.Equal(t, time.Minute, got.Duration())
	assert.Equal(t, Disclaimer, got.Disclaimer)

	tokens[0].Count = 99
	assert.Equal(t, 2, got.Tokens[0].Count, "tokens are copied")
}

func TestRender_AlwaysCarriesDisclaimer(t *testing.T) {
	var buf bytes.Buffer
	tpl := Build("s-2", t0, t0.Add(30*time.Second), nil, []history.TokenStat{
		{Token: "help", Count: 3, FirstSeen: t0.Add(5 * time.Second), LastSeen: t0.Add(20 * time.Second)},
	})
	tpl.Disclaimer = ""

	require.NoError(t, Render(&buf, tpl))

	out := buf.String()
	assert.Contains(t, out, "not a sign-language translation")
	assert.Contains(t, out, "Session:  s-2")
	assert.Contains(t, out, "[help] 10:00:05 10:00:20 x3")
	assert.Contains(t, out, "Actual meaning:")
	assert.Contains(t, out, "(none)", "no categories recorded")
}

func TestTemplate_DurationNeverNegative(t *testing.T) {
	tpl := Template{Started: t0, Ended: t0.Add(-time.Second)}
	assert.Zero(t, tpl.Duration())
}

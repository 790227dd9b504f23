package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/gesture"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func event(i int, c gesture.Category, conf float64, tokens ...string) gesture.Event {
	return gesture.Event{
		Timestamp:  t0.Add(time.Duration(i) * time.Second),
		Category:   c,
		Confidence: conf,
		Tokens:     tokens,
	}
}

func TestRing_NeverExceedsCapacity(t *testing.T) {
	r := NewRing(5)

	for i := 0; i < 12; i++ {
		r.Append(event(i, gesture.CategoryWave, 0.9))
		assert.LessOrEqual(t, r.Len(), r.Cap())
	}

	snap := r.Snapshot()
	require.Len(t, snap, 5)
	for i, ev := range snap {
		assert.Equal(t, t0.Add(time.Duration(7+i)*time.Second), ev.Timestamp, "entry %d", i)
	}
}

func TestRing_AppendReportsEviction(t *testing.T) {
	r := NewRing(2)

	assert.False(t, r.Append(event(0, gesture.CategoryWave, 0.9)))
	assert.False(t, r.Append(event(1, gesture.CategoryWave, 0.9)))
	assert.True(t, r.Append(event(2, gesture.CategoryWave, 0.9)))
}

func TestRing_SnapshotIsACopy(t *testing.T) {
	r := NewRing(3)
	r.Append(event(0, gesture.CategoryTwoHand, 0.9, "help"))

	snap := r.Snapshot()
	snap[0].Tokens[0] = "changed"
	snap[0].Category = gesture.CategoryNone

	again := r.Snapshot()
	assert.Equal(t, "help", again[0].Tokens[0])
	assert.Equal(t, gesture.CategoryTwoHand, again[0].Category)
}

func TestRing_AppendCopiesTokens(t *testing.T) {
	r := NewRing(3)
	tokens := []string{"help"}
	r.Append(event(0, gesture.CategoryTwoHand, 0.9, tokens...))

	tokens[0] = "changed"

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, "help", last.Tokens[0])
}

func TestRing_LastAndReset(t *testing.T) {
	r := NewRing(3)
	_, ok := r.Last()
	assert.False(t, ok)

	for i := 0; i < 4; i++ {
		r.Append(event(i, gesture.CategoryWave, 0.9))
	}
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, t0.Add(3*time.Second), last.Timestamp)

	r.Reset()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, 3, r.Cap())
}

func TestNewRing_MinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewRing(0).Cap())
}

func TestRing_ConcurrentReaders(t *testing.T) {
	r := NewRing(50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			r.Append(event(i, gesture.CategoryWave, 0.9, fmt.Sprint(i)))
		}
	}()

	for i := 0; i < 100; i++ {
		assert.LessOrEqual(t, len(r.Snapshot()), 50)
	}
	<-done
	assert.Equal(t, 50, r.Len())
}

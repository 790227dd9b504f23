package gesture

import "sync"

// Vocabulary hands out placeholder tokens round-robin.
// The choice depends only on how many tokens were drawn before, never on the
// content of the frames.
type Vocabulary struct {
	words   []string
	counter uint64
	mu      sync.Mutex
}

// NewVocabulary creates a Vocabulary over a copy of words.
func NewVocabulary(words []string) *Vocabulary {
	return &Vocabulary{words: append([]string(nil), words...)}
}

// Next returns the next placeholder token.
func (v *Vocabulary) Next() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.words) == 0 {
		return ""
	}
	w := v.words[v.counter%uint64(len(v.words))]
	v.counter++
	return w
}

// Drawn returns how many tokens have been handed out.
func (v *Vocabulary) Drawn() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counter
}

package capture

import (
	"fmt"
	"image"
	"sync"
)

// MockSource plays back pre-built images for testing
type MockSource struct {
	frames  []image.Image
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
}

func NewMockSource(frames []image.Image, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrCameraNotOpen
	}

	if len(s.frames) == 0 {
		return nil, fmt.Errorf("%w: no frames available", ErrSourceNotReady)
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, fmt.Errorf("%w: no more frames", ErrSourceNotReady)
		}
		s.index = 0
	}

	frame := s.frames[s.index]
	s.index++

	return frame, nil
}

func (s *MockSource) SetFPS(fps int) {}
func (s *MockSource) FPS() int       { return DefaultFPS }
func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetFrames replaces the frame sequence
func (s *MockSource) SetFrames(frames []image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// Reset restarts playback from the beginning
func (s *MockSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}

// Remaining returns how many frames are left before playback ends.
func (s *MockSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.index
}

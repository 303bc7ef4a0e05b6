package panelclient

import (
	"sync"
	"time"
)

// Colors a status message renders in.
const (
	ColorGreen = "green"
	ColorRed   = "red"
)

// DefaultHideDelay is how long a status message stays visible.
const DefaultHideDelay = 3 * time.Second

// StatusArea is the timed message strip the admin operations write
// to. A single timer owns hiding: each new message stops the previous
// timer and starts its own, so an older timer can never hide a newer
// message.
type StatusArea struct {
	mu      sync.Mutex
	text    string
	color   string
	visible bool
	timer   *time.Timer
	delay   time.Duration
}

// NewStatusArea creates a StatusArea with the default hide delay.
func NewStatusArea() *StatusArea {
	return &StatusArea{delay: DefaultHideDelay}
}

// NewStatusAreaWithDelay creates a StatusArea hiding after delay.
func NewStatusAreaWithDelay(delay time.Duration) *StatusArea {
	return &StatusArea{delay: delay}
}

// Show displays a message, green for success and red for errors, and
// schedules it to hide after the configured delay.
func (s *StatusArea) Show(text string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	s.color = ColorRed
	if success {
		s.color = ColorGreen
	}
	s.visible = true

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.hide)
}

func (s *StatusArea) hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
}

// Message returns the current text and color.
func (s *StatusArea) Message() (text, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.color
}

// Visible reports whether the message strip currently shows.
func (s *StatusArea) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

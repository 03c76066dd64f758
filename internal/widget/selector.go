// Package widget implements the client-side state machines that keep the
// image selector and the preview pane consistent with the server's filtered
// listings under rapid subfolder switching.
package widget

import "sync"

// Selector is a mutable option-set widget surface. It is updated in place
// with SetOptions rather than destroyed and rebuilt on every refresh.
type Selector struct {
	mu      sync.RWMutex
	options []string
	value   string
}

// NewSelector creates an empty Selector.
func NewSelector() *Selector {
	return &Selector{}
}

// SetOptions replaces the option set and selection atomically. A value not
// present in options is never retained: selection falls back to the first
// option, or "" when there are none.
func (s *Selector) SetOptions(options []string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.options = append([]string(nil), options...)
	s.value = ""
	if len(s.options) > 0 {
		s.value = s.options[0]
		for _, opt := range s.options {
			if opt == value {
				s.value = value
				break
			}
		}
	}
}

// SetValue changes the selection, clamping to the current option set.
// It returns the selection actually in effect afterwards.
func (s *Selector) SetValue(value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, opt := range s.options {
		if opt == value {
			s.value = value
			return value
		}
	}
	return s.value
}

// Options returns a copy of the current option set.
func (s *Selector) Options() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.options...)
}

// Value returns the current selection.
func (s *Selector) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

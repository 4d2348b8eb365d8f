package pipeline

import (
	"sync"

	"github.com/jonathan/jobscout/internal/agent"
)

// History is the rolling interaction log of one run.
// It keeps only the most recent window entries and is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	window  int
	entries []agent.Interaction
}

// NewHistory creates a history holding at most window entries
func NewHistory(window int) *History {
	return &History{window: window}
}

// Add appends an interaction, evicting the oldest once the window is full
func (h *History) Add(i agent.Interaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, i)
	if over := len(h.entries) - h.window; over > 0 {
		h.entries = append([]agent.Interaction(nil), h.entries[over:]...)
	}
}

// Recent returns a copy of the retained interactions, oldest first
func (h *History) Recent() []agent.Interaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]agent.Interaction(nil), h.entries...)
}

// Len returns the number of retained interactions
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Package navigation models the client's location history.
package navigation

import "sync"

// Navigator reads and changes the current location.
type Navigator interface {
	Path() string
	// Push adds a history entry.
	Push(path string)
	// Replace overwrites the current entry, so Back can no longer reach it.
	Replace(path string)
}

// History is an in-memory browser-style history stack.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
}

var _ Navigator = (*History)(nil)

func NewHistory(start string) *History {
	return &History{entries: []string{start}}
}

func (h *History) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Push drops any forward entries and appends path.
func (h *History) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], path)
	h.index++
}

func (h *History) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = path
}

// Back moves to the previous entry. It reports false at the first entry.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Entries returns a copy of the stack up to and including the current entry.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, h.index+1)
	copy(out, h.entries[:h.index+1])
	return out
}

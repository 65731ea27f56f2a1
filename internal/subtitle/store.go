// Package subtitle holds caption cues and reads/writes them as SRT.
package subtitle

import (
	"sync"

	"clipforge/internal/model"
)

// Store is the active, ordered set of cues. Cues are never edited in place:
// callers replace the whole set or append new entries, and the compiler
// works on a Snapshot.
type Store struct {
	mu   sync.RWMutex
	cues []model.SubtitleCue
	gen  uint64
}

// NewStore returns a store seeded with cues.
func NewStore(cues []model.SubtitleCue) *Store {
	s := &Store{}
	s.Replace(cues)
	return s
}

// Replace swaps the whole cue set, e.g. after re-transcribing in another language.
func (s *Store) Replace(cues []model.SubtitleCue) {
	cp := append([]model.SubtitleCue(nil), cues...)
	s.mu.Lock()
	s.cues = cp
	s.gen++
	s.mu.Unlock()
}

// Append adds a manually entered cue at the end.
func (s *Store) Append(c model.SubtitleCue) {
	s.mu.Lock()
	s.cues = append(s.cues, c)
	s.gen++
	s.mu.Unlock()
}

// Snapshot returns an independent copy of the current cues.
func (s *Store) Snapshot() []model.SubtitleCue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SubtitleCue(nil), s.cues...)
}

// Len returns the number of cues.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cues)
}

// Generation increments on every change.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

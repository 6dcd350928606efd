// Package playlist keeps the ordered list of tracks the session has loaded.
package playlist

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/glog"
)

// ErrEmpty is returned by Advance when there is nothing to play.
var ErrEmpty = errors.New("playlist is empty")

// Store is an ordered, duplicate-free list of track paths with a cursor on
// the current track. It is owned by whoever creates it and passed to the
// session; there is no package-level playlist.
type Store struct {
	tracks  []string
	current int

	// OnAdded and OnRemoved, when set, are called after the list changes.
	OnAdded   func(path string)
	OnRemoved func(path string)
}

// New returns an empty store.
func New() *Store {
	return &Store{current: -1}
}

// Add appends path unless it is already present, and makes it current.
// It reports whether the list grew.
func (s *Store) Add(path string) bool {
	if i := slices.Index(s.tracks, path); i >= 0 {
		s.current = i
		return false
	}
	s.tracks = append(s.tracks, path)
	s.current = len(s.tracks) - 1
	if s.OnAdded != nil {
		s.OnAdded(path)
	}
	return true
}

// Remove deletes path. It reports whether it was present.
func (s *Store) Remove(path string) bool {
	i := slices.Index(s.tracks, path)
	if i < 0 {
		return false
	}
	s.tracks = slices.Delete(s.tracks, i, i+1)
	switch {
	case len(s.tracks) == 0:
		s.current = -1
	case i < s.current:
		s.current--
	case i == s.current:
		// The next track slides into place; keep the cursor in range.
		s.current = min(s.current, len(s.tracks)-1)
	}
	if s.OnRemoved != nil {
		s.OnRemoved(path)
	}
	return true
}

// Tracks returns a copy of the list.
func (s *Store) Tracks() []string { return slices.Clone(s.tracks) }

// Len is the number of tracks.
func (s *Store) Len() int { return len(s.tracks) }

// Current returns the current track.
func (s *Store) Current() (string, bool) {
	if s.current < 0 || s.current >= len(s.tracks) {
		return "", false
	}
	return s.tracks[s.current], true
}

// Advance tries the tracks after the current one, wrapping around, until
// load succeeds. Each track is tried at most once. The current track itself
// is tried last. Tracks that fail to load are removed from the list, so
// OnRemoved fires for each of them.
func (s *Store) Advance(load func(path string) error) (string, error) {
	n := len(s.tracks)
	if n == 0 {
		return "", ErrEmpty
	}
	var (
		errs   []error
		failed []string
		picked string
		ok     bool
	)
	for step := 1; step <= n; step++ {
		i := (s.current + step) % n
		if i < 0 {
			i += n
		}
		path := s.tracks[i]
		if err := load(path); err != nil {
			glog.Warningf("playlist: dropping %s: %v", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			failed = append(failed, path)
			continue
		}
		s.current = i
		picked, ok = path, true
		break
	}
	for _, path := range failed {
		s.Remove(path)
	}
	if !ok {
		return "", fmt.Errorf("no playable track: %w", errors.Join(errs...))
	}
	return picked, nil
}

package models

import (
	"sync"
)

// EpisodeList is the lock-guarded episode sequence owned by a podcast.
// Callers never see the backing slice; every accessor copies data in or
// out under the lock. When a caller also holds the catalog lock, the
// catalog lock must be taken first.
type EpisodeList struct {
	mu    sync.Mutex
	items []Episode
}

func NewEpisodeList(items []Episode) *EpisodeList {
	l := &EpisodeList{items: make([]Episode, len(items))}
	copy(l.items, items)
	return l
}

func (l *EpisodeList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Get returns a copy of the episode at i.
func (l *EpisodeList) Get(i int) (Episode, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.items) {
		return Episode{}, false
	}
	return l.items[i], true
}

// Set replaces the episode at i.
func (l *EpisodeList) Set(i int, ep Episode) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.items) {
		return false
	}
	l.items[i] = ep
	return true
}

// Replace swaps in a whole new episode sequence.
func (l *EpisodeList) Replace(items []Episode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make([]Episode, len(items))
	copy(l.items, items)
}

// Snapshot returns a copy of the full sequence. The copy is safe to
// use after the call returns; no lock is held by then.
func (l *EpisodeList) Snapshot() []Episode {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Episode, len(l.items))
	copy(out, l.items)
	return out
}

// AnyUnplayed reports whether at least one episode is unplayed.
func (l *EpisodeList) AnyUnplayed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ep := range l.items {
		if !ep.Played {
			return true
		}
	}
	return false
}

// SetPlayed updates the played flag at i and reports whether any
// episode remains unplayed afterward, both under one lock scope.
func (l *EpisodeList) SetPlayed(i int, played bool) (anyUnplayed bool, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.items) {
		return false, false
	}
	l.items[i].Played = played
	for _, ep := range l.items {
		if !ep.Played {
			anyUnplayed = true
			break
		}
	}
	return anyUnplayed, true
}

// AttachPath records the local file path for the episode with the given
// persisted id.
func (l *EpisodeList) AttachPath(episodeID int64, path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == episodeID {
			l.items[i].Path = path
			return true
		}
	}
	return false
}

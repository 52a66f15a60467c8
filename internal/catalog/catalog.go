// Package catalog holds the shared in-memory view of subscribed
// podcasts. The controller owns the catalog's structure; the
// presentation layer only ever sees clone-out snapshots. Two locks are
// involved: the catalog lock over the podcast sequence and, per
// podcast, the episode-list lock. They nest in that order only, and no
// method holds either lock across a call that can block on I/O.
package catalog

import (
	"sync"

	"shellcast/internal/models"
)

// FeedRef is the minimal data a feed sync worker needs, copied out
// under the lock so no worker ever touches live catalog state.
type FeedRef struct {
	URL string
	ID  int64
}

// PodcastInfo is a clone-out of a podcast's own fields, without the
// episode list.
type PodcastInfo struct {
	ID          int64
	Title       string
	URL         string
	AnyUnplayed bool
}

type Catalog struct {
	mu       sync.Mutex
	podcasts []*models.Podcast
}

func New(podcasts []*models.Podcast) *Catalog {
	return &Catalog{podcasts: podcasts}
}

// Replace swaps in a freshly loaded podcast list. Positional indexes
// obtained before this call are no longer valid.
func (c *Catalog) Replace(podcasts []*models.Podcast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.podcasts = podcasts
}

func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.podcasts)
}

// FeedAt copies out the sync data for the podcast at i.
func (c *Catalog) FeedAt(i int) (FeedRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.podcasts) {
		return FeedRef{}, false
	}
	p := c.podcasts[i]
	return FeedRef{URL: p.URL, ID: p.ID}, true
}

// Feeds snapshots the sync data for every podcast under a single short
// lock, so the caller can fan out workers without touching the catalog
// again.
func (c *Catalog) Feeds() []FeedRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]FeedRef, len(c.podcasts))
	for i, p := range c.podcasts {
		refs[i] = FeedRef{URL: p.URL, ID: p.ID}
	}
	return refs
}

// PodcastAt copies out the podcast-level fields at i.
func (c *Catalog) PodcastAt(i int) (PodcastInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.podcasts) {
		return PodcastInfo{}, false
	}
	p := c.podcasts[i]
	return PodcastInfo{ID: p.ID, Title: p.Title, URL: p.URL, AnyUnplayed: p.AnyUnplayed}, true
}

// Episode copies out the episode at (pod, ep).
func (c *Catalog) Episode(pod, ep int) (models.Episode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pod < 0 || pod >= len(c.podcasts) {
		return models.Episode{}, false
	}
	return c.podcasts[pod].Episodes.Get(ep)
}

// Episodes snapshots the full episode list of the podcast at pod.
func (c *Catalog) Episodes(pod int) ([]models.Episode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pod < 0 || pod >= len(c.podcasts) {
		return nil, false
	}
	return c.podcasts[pod].Episodes.Snapshot(), true
}

// SetEpisodePlayed flips the played flag at (pod, ep) and re-derives
// the podcast's AnyUnplayed flag in the same lock scope. It reports
// whether the derived flag changed.
func (c *Catalog) SetEpisodePlayed(pod, ep int, played bool) (flagChanged, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pod < 0 || pod >= len(c.podcasts) {
		return false, false
	}
	p := c.podcasts[pod]
	anyUnplayed, ok := p.Episodes.SetPlayed(ep, played)
	if !ok {
		return false, false
	}
	if anyUnplayed != p.AnyUnplayed {
		p.AnyUnplayed = anyUnplayed
		return true, true
	}
	return false, true
}

// ReplaceEpisodes swaps in a reloaded episode list for the podcast at
// pod and sets its derived flag from the new list.
func (c *Catalog) ReplaceEpisodes(pod int, episodes []models.Episode) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pod < 0 || pod >= len(c.podcasts) {
		return false
	}
	p := c.podcasts[pod]
	p.Episodes.Replace(episodes)
	p.AnyUnplayed = p.Episodes.AnyUnplayed()
	return true
}

// AttachFile records a completed download against the episode with the
// given persisted ids. Lookup is by id, not position: the catalog may
// have been reordered since the download was queued.
func (c *Catalog) AttachFile(podcastID, episodeID int64, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.podcasts {
		if p.ID == podcastID {
			return p.Episodes.AttachPath(episodeID, path)
		}
	}
	return false
}

// Snapshot clones out the whole catalog for rendering: podcast infos in
// order, each with a copy of its episodes. Nothing in the result
// aliases live state.
func (c *Catalog) Snapshot() []PodcastSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PodcastSnapshot, len(c.podcasts))
	for i, p := range c.podcasts {
		out[i] = PodcastSnapshot{
			Info:     PodcastInfo{ID: p.ID, Title: p.Title, URL: p.URL, AnyUnplayed: p.AnyUnplayed},
			Episodes: p.Episodes.Snapshot(),
		}
	}
	return out
}

// PodcastSnapshot is one rendered row group: a podcast and a copy of
// its episodes.
type PodcastSnapshot struct {
	Info     PodcastInfo
	Episodes []models.Episode
}

package models

import (
	"time"
)

// Podcast holds the metadata for one subscribed feed plus its episode
// list. ID is zero until the podcast has been persisted. AnyUnplayed is
// derived state: it must always equal "at least one episode is unplayed"
// and is recomputed by the controller after any mutation that can change
// played state or episode membership.
type Podcast struct {
	ID          int64
	Title       string
	URL         string
	Description string
	Author      string
	Explicit    bool
	LastChecked time.Time
	AnyUnplayed bool
	Episodes    *EpisodeList
}

// Episode is one entry in a podcast feed. Path is empty until the
// episode has been downloaded. ID is zero until persisted.
type Episode struct {
	ID          int64
	PodcastID   int64
	Title       string
	URL         string
	Description string
	PubDate     time.Time
	Duration    time.Duration
	Path        string
	Played      bool
}

// Downloaded reports whether the episode has a local copy.
func (e Episode) Downloaded() bool {
	return e.Path != ""
}

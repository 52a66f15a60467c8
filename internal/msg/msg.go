// Package msg defines the messages that flow between the presentation
// layer, the controller, and the background workers. Everything the
// controller consumes arrives on a single channel as a Message; the
// controller answers with Notifications.
package msg

import "shellcast/internal/models"

// Message is the sealed union of everything the controller can receive:
// user intents plus asynchronous worker results.
type Message interface {
	message()
}

// User intents.

type Quit struct{}

type AddFeed struct {
	URL string
}

type Sync struct {
	Pod int
}

type SyncAll struct{}

type Play struct {
	Pod, Ep int
}

type MarkPlayed struct {
	Pod, Ep int
	Played  bool
}

type MarkAllPlayed struct {
	Pod    int
	Played bool
}

type Download struct {
	Pod, Ep int
}

type DownloadAll struct {
	Pod int
}

type Noop struct{}

// Feed worker results.

// FeedNew is a successful first fetch of a feed that has no persisted
// identity yet.
type FeedNew struct {
	Podcast *models.Podcast
}

// FeedSync is a successful re-fetch; Podcast.ID carries the existing
// identity to merge against.
type FeedSync struct {
	Podcast *models.Podcast
}

// FeedError reports a failed fetch or parse. No further detail crosses
// the channel; the worker logs the specifics.
type FeedError struct{}

// Download worker results.

// FailureKind classifies where in the download pipeline a failure
// happened.
type FailureKind int

const (
	RequestError FailureKind = iota
	DataStreamError
	FileCreateError
	FileWriteError
)

func (k FailureKind) String() string {
	switch k {
	case RequestError:
		return "request"
	case DataStreamError:
		return "data stream"
	case FileCreateError:
		return "file create"
	case FileWriteError:
		return "file write"
	default:
		return "unknown"
	}
}

type DownloadComplete struct {
	PodcastID int64
	EpisodeID int64
	Path      string
}

type DownloadFailed struct {
	EpisodeID int64
	Kind      FailureKind
}

func (Quit) message()             {}
func (AddFeed) message()          {}
func (Sync) message()             {}
func (SyncAll) message()          {}
func (Play) message()             {}
func (MarkPlayed) message()       {}
func (MarkAllPlayed) message()    {}
func (Download) message()         {}
func (DownloadAll) message()      {}
func (Noop) message()             {}
func (FeedNew) message()          {}
func (FeedSync) message()         {}
func (FeedError) message()        {}
func (DownloadComplete) message() {}
func (DownloadFailed) message()   {}

// Notification is the sealed union of controller-to-presentation
// messages.
type Notification interface {
	notification()
}

// RefreshMenus tells the presentation layer to re-render from a fresh
// catalog snapshot.
type RefreshMenus struct{}

// ShowMessage displays a transient status line for DurationMs.
type ShowMessage struct {
	Text       string
	DurationMs int
}

// TearDown tells the presentation layer to shut down.
type TearDown struct{}

func (RefreshMenus) notification() {}
func (ShowMessage) notification()  {}
func (TearDown) notification()     {}

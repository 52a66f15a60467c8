// Package controller is the single owner of the catalog. It consumes
// every inbound message (user intents and worker results) from one
// channel, applies mutations one at a time, talks to the persistent
// store, and emits notifications for the presentation layer. Network
// and disk transfers never happen on this goroutine; they belong to the
// feed and download workers.
package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"shellcast/internal/catalog"
	"shellcast/internal/config"
	"shellcast/internal/download"
	"shellcast/internal/models"
	"shellcast/internal/msg"
	"shellcast/internal/player"
)

// msgDurationMs is how long transient status messages stay visible.
const msgDurationMs = 5000

// Persistence is the durable store the controller merges worker results
// into. Only the controller goroutine calls it, which serializes all
// writes.
type Persistence interface {
	GetPodcasts() ([]*models.Podcast, error)
	GetEpisodes(podcastID int64) ([]models.Episode, error)
	InsertPodcast(p *models.Podcast) (int, error)
	UpdatePodcast(p *models.Podcast) error
	SetPlayedStatus(episodeID int64, played bool) error
	InsertFile(episodeID int64, path string) error
}

// FeedSyncer spawns background feed fetches.
type FeedSyncer interface {
	Spawn(url string, podcastID int64)
	Shutdown()
}

// Downloader accepts download batches.
type Downloader interface {
	Enqueue(tasks []download.Task) (queued, skipped int)
	Stop()
}

type Controller struct {
	catalog   *catalog.Catalog
	store     Persistence
	feeds     FeedSyncer
	downloads Downloader
	cfg       *config.Config
	rx        <-chan msg.Message
	notify    chan<- msg.Notification

	// play is swappable so tests don't spawn real processes.
	play func(command, target string) error
}

func New(cat *catalog.Catalog, store Persistence, feeds FeedSyncer, downloads Downloader, cfg *config.Config, rx <-chan msg.Message, notify chan<- msg.Notification) *Controller {
	return &Controller{
		catalog:   cat,
		store:     store,
		feeds:     feeds,
		downloads: downloads,
		cfg:       cfg,
		rx:        rx,
		notify:    notify,
		play:      player.PlayOrStream,
	}
}

// Run processes messages in strict arrival order until Quit. On Quit it
// stops the workers, drains them, and tells the presentation layer to
// tear down.
func (c *Controller) Run() {
	for message := range c.rx {
		switch m := message.(type) {
		case msg.Quit:
			c.shutdown()
			return

		case msg.AddFeed:
			c.feeds.Spawn(m.URL, 0)

		case msg.Sync:
			if ref, ok := c.catalog.FeedAt(m.Pod); ok {
				c.feeds.Spawn(ref.URL, ref.ID)
			}

		case msg.SyncAll:
			// Copy all (url, id) pairs out under one short lock, then
			// fan out with no lock held.
			for _, ref := range c.catalog.Feeds() {
				c.feeds.Spawn(ref.URL, ref.ID)
			}

		case msg.Play:
			c.handlePlay(m)

		case msg.MarkPlayed:
			c.handleMarkPlayed(m)

		case msg.MarkAllPlayed:
			c.handleMarkAllPlayed(m)

		case msg.Download:
			c.handleDownload(m)

		case msg.DownloadAll:
			c.handleDownloadAll(m)

		case msg.FeedNew:
			c.handleFeedNew(m)

		case msg.FeedSync:
			c.handleFeedSync(m)

		case msg.FeedError:
			c.showMessage("Error retrieving RSS feed.")

		case msg.DownloadComplete:
			c.handleDownloadComplete(m)

		case msg.DownloadFailed:
			c.handleDownloadFailed(m)

		case msg.Noop:
		}
	}
}

func (c *Controller) handlePlay(m msg.Play) {
	episode, ok := c.catalog.Episode(m.Pod, m.Ep)
	if !ok {
		return
	}

	if episode.Downloaded() {
		if !utf8.ValidString(episode.Path) {
			c.showMessage("Error: Filepath is not valid Unicode.")
			return
		}
		if err := c.play(c.cfg.PlayCommand, episode.Path); err != nil {
			log.WithError(err).Warn("Player invocation failed")
			c.showMessage("Error: Could not play file. Check configuration.")
		}
		return
	}

	if err := c.play(c.cfg.PlayCommand, episode.URL); err != nil {
		log.WithError(err).Warn("Player invocation failed")
		c.showMessage("Error: Could not stream URL.")
	}
}

func (c *Controller) handleMarkPlayed(m msg.MarkPlayed) {
	episode, ok := c.catalog.Episode(m.Pod, m.Ep)
	if !ok {
		return
	}

	if err := c.store.SetPlayedStatus(episode.ID, m.Played); err != nil {
		log.WithError(err).Error("Failed to persist played status")
		c.showMessage("Error writing to database.")
		return
	}

	c.catalog.SetEpisodePlayed(m.Pod, m.Ep, m.Played)
}

func (c *Controller) handleMarkAllPlayed(m msg.MarkAllPlayed) {
	info, ok := c.catalog.PodcastAt(m.Pod)
	if !ok {
		return
	}
	episodes, ok := c.catalog.Episodes(m.Pod)
	if !ok {
		return
	}

	for _, ep := range episodes {
		if err := c.store.SetPlayedStatus(ep.ID, m.Played); err != nil {
			log.WithField("episode", ep.Title).WithError(err).Error("Failed to persist played status")
		}
	}

	// Reload from the store so the in-memory list reflects a consistent
	// post-write state.
	reloaded, err := c.store.GetEpisodes(info.ID)
	if err != nil {
		log.WithError(err).Error("Failed to reload episodes")
		c.showMessage("Error reading from database.")
		return
	}
	c.catalog.ReplaceEpisodes(m.Pod, reloaded)
	c.send(msg.RefreshMenus{})
}

func (c *Controller) handleDownload(m msg.Download) {
	info, ok := c.catalog.PodcastAt(m.Pod)
	if !ok {
		return
	}
	episode, ok := c.catalog.Episode(m.Pod, m.Ep)
	if !ok {
		return
	}

	dir, ok := c.ensureDownloadDir(info.Title)
	if !ok {
		return
	}

	_, skipped := c.downloads.Enqueue([]download.Task{{Episode: episode, PodcastID: info.ID, Dir: dir}})
	if skipped > 0 {
		c.showMessage("Episode is already downloading.")
	}
}

func (c *Controller) handleDownloadAll(m msg.DownloadAll) {
	info, ok := c.catalog.PodcastAt(m.Pod)
	if !ok {
		return
	}
	episodes, ok := c.catalog.Episodes(m.Pod)
	if !ok {
		return
	}

	dir, ok := c.ensureDownloadDir(info.Title)
	if !ok {
		return
	}

	tasks := make([]download.Task, 0, len(episodes))
	for _, ep := range episodes {
		tasks = append(tasks, download.Task{Episode: ep, PodcastID: info.ID, Dir: dir})
	}

	_, skipped := c.downloads.Enqueue(tasks)
	if skipped > 0 {
		c.showMessage(fmt.Sprintf("%d episodes already downloading.", skipped))
	}
}

// ensureDownloadDir creates the per-podcast download directory. This is
// the one piece of disk I/O the controller does itself; a failure is
// reported and the download is not submitted.
func (c *Controller) ensureDownloadDir(podcastTitle string) (string, bool) {
	dir := filepath.Join(c.cfg.DownloadPath, download.DirName(podcastTitle))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithField("dir", dir).WithError(err).Error("Failed to create download directory")
		c.showMessage(fmt.Sprintf("Could not create dir: %s", podcastTitle))
		return "", false
	}
	return dir, true
}

func (c *Controller) handleFeedNew(m msg.FeedNew) {
	count, err := c.store.InsertPodcast(m.Podcast)
	if err != nil {
		log.WithField("url", m.Podcast.URL).WithError(err).Error("Failed to insert podcast")
		c.showMessage("Error adding podcast to database.")
		return
	}

	if c.reloadCatalog() {
		c.send(msg.RefreshMenus{})
		c.showMessage(fmt.Sprintf("Successfully added %d episodes.", count))
	}
}

func (c *Controller) handleFeedSync(m msg.FeedSync) {
	title := m.Podcast.Title
	if err := c.store.UpdatePodcast(m.Podcast); err != nil {
		log.WithField("podcast", title).WithError(err).Error("Failed to update podcast")
		c.showMessage(fmt.Sprintf("Error synchronizing %s.", title))
		return
	}

	if c.reloadCatalog() {
		c.send(msg.RefreshMenus{})
		c.showMessage(fmt.Sprintf("Synchronized %s.", title))
	}
}

func (c *Controller) handleDownloadComplete(m msg.DownloadComplete) {
	if err := c.store.InsertFile(m.EpisodeID, m.Path); err != nil {
		log.WithField("path", m.Path).WithError(err).Error("Failed to record downloaded file")
	}
	c.catalog.AttachFile(m.PodcastID, m.EpisodeID, m.Path)
	c.send(msg.RefreshMenus{})
}

func (c *Controller) handleDownloadFailed(m msg.DownloadFailed) {
	switch m.Kind {
	case msg.RequestError:
		c.showMessage("Error sending download request.")
	case msg.DataStreamError:
		c.showMessage("Error downloading episode.")
	case msg.FileCreateError:
		c.showMessage("Error creating file.")
	case msg.FileWriteError:
		c.showMessage("Error writing file to disk.")
	}
}

// reloadCatalog swaps in a fresh podcast list from the store. Reported
// as a notification on failure; the old in-memory state stays.
func (c *Controller) reloadCatalog() bool {
	podcasts, err := c.store.GetPodcasts()
	if err != nil {
		log.WithError(err).Error("Failed to reload catalog")
		c.showMessage("Error reading from database.")
		return false
	}
	c.catalog.Replace(podcasts)
	return true
}

func (c *Controller) shutdown() {
	c.feeds.Shutdown()
	c.downloads.Stop()
	c.send(msg.TearDown{})
}

func (c *Controller) showMessage(text string) {
	c.send(msg.ShowMessage{Text: text, DurationMs: msgDurationMs})
}

func (c *Controller) send(n msg.Notification) {
	c.notify <- n
}

// Package feed fetches and parses RSS feeds in the background. Each
// sync is an ephemeral worker that reports back to the controller over
// the shared message channel; the Syncer bounds how many run at once.
package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"shellcast/internal/msg"
)

// Syncer spawns feed sync workers. At most maxWorkers fetches run
// concurrently; further spawns queue on the semaphore.
type Syncer struct {
	tx     chan<- msg.Message
	client *http.Client
	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSyncer(tx chan<- msg.Message, maxWorkers int, timeout time.Duration) *Syncer {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		tx:     tx,
		client: &http.Client{Timeout: timeout},
		sem:    make(chan struct{}, maxWorkers),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Spawn starts a worker for one feed. A zero podcastID means the feed
// has no persisted identity yet and a success is reported as FeedNew;
// otherwise the result is FeedSync carrying that identity.
func (s *Syncer) Spawn(url string, podcastID int64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-s.ctx.Done():
			return
		}

		s.check(url, podcastID)
	}()
}

// Shutdown cancels all outstanding workers and waits for them to
// finish. Results not yet delivered when shutdown begins are discarded
// explicitly, never sent into a channel nobody reads.
func (s *Syncer) Shutdown() {
	s.cancel()
	s.wg.Wait()
}

func (s *Syncer) check(url string, podcastID int64) {
	data, err := Fetch(s.ctx, s.client, url)
	if err != nil {
		log.WithField("url", url).WithError(err).Warn("Feed fetch failed")
		s.send(msg.FeedError{})
		return
	}

	podcast, err := Parse(url, data)
	if err != nil {
		log.WithField("url", url).WithError(err).Warn("Feed parse failed")
		s.send(msg.FeedError{})
		return
	}

	if podcastID == 0 {
		s.send(msg.FeedNew{Podcast: podcast})
		return
	}
	podcast.ID = podcastID
	s.send(msg.FeedSync{Podcast: podcast})
}

func (s *Syncer) send(m msg.Message) {
	select {
	case s.tx <- m:
	case <-s.ctx.Done():
	}
}

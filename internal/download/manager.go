// Package download runs episode downloads on a bounded worker pool.
// Each task moves through Queued -> InProgress -> Completed or Failed
// independently; one failure never blocks its siblings. Terminal
// outcomes are reported to the controller over the shared message
// channel.
package download

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"shellcast/internal/msg"
)

const queueCapacity = 256

// Manager owns the download queue, the worker pool, and the per-episode
// status map.
type Manager struct {
	mu       sync.Mutex
	tx       chan<- msg.Message
	queue    chan Task
	statuses map[int64]Status
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	fetcher  *fetcher
	workers  int
	running  bool
}

// NewManager creates a manager that reports results on tx. workers
// bounds concurrent downloads; maxRetries bounds retry attempts per
// transient failure.
func NewManager(tx chan<- msg.Message, workers int, maxRetries uint64) *Manager {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		tx:       tx,
		queue:    make(chan Task, queueCapacity),
		statuses: make(map[int64]Status),
		ctx:      ctx,
		cancel:   cancel,
		fetcher:  newFetcher(maxRetries),
		workers:  workers,
	}
}

// Start launches the worker pool.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	log.WithField("workers", m.workers).Info("Download manager started")
}

// Stop cancels in-flight downloads and waits for all workers to exit.
// Results that were not delivered before Stop are discarded explicitly.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	log.Info("Download manager stopped")
}

// Enqueue submits a batch of tasks. Episodes already queued or in
// progress are rejected rather than downloaded twice; a full queue also
// rejects. Returns how many tasks were accepted and how many skipped.
func (m *Manager) Enqueue(tasks []Task) (queued, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, task := range tasks {
		id := task.Episode.ID
		if st, ok := m.statuses[id]; ok && (st == StatusQueued || st == StatusInProgress) {
			skipped++
			continue
		}
		select {
		case m.queue <- task:
			m.statuses[id] = StatusQueued
			queued++
		default:
			log.WithField("episode", task.Episode.Title).Warn("Download queue full, rejecting task")
			skipped++
		}
	}
	return queued, skipped
}

// Status returns the download state of an episode, if it has one.
func (m *Manager) Status(episodeID int64) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.statuses[episodeID]
	return st, ok
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case task := <-m.queue:
			m.process(task)
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) process(task Task) {
	id := task.Episode.ID
	m.setStatus(id, StatusInProgress)
	start := time.Now()

	path, err := m.fetcher.fetch(m.ctx, task)
	if err != nil {
		if m.ctx.Err() != nil {
			// Shutdown raced the download; no result to report.
			return
		}
		m.setStatus(id, StatusFailed)
		kind := failureKind(err)
		log.WithFields(log.Fields{
			"episode": task.Episode.Title,
			"kind":    kind,
		}).WithError(err).Warn("Download failed")
		m.send(msg.DownloadFailed{EpisodeID: id, Kind: kind})
		return
	}

	m.setStatus(id, StatusCompleted)
	log.WithFields(log.Fields{
		"episode": task.Episode.Title,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("Download completed")
	m.send(msg.DownloadComplete{PodcastID: task.PodcastID, EpisodeID: id, Path: path})
}

func (m *Manager) setStatus(episodeID int64, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[episodeID] = st
}

func (m *Manager) send(message msg.Message) {
	select {
	case m.tx <- message:
	case <-m.ctx.Done():
	}
}

func failureKind(err error) msg.FailureKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return msg.RequestError
}

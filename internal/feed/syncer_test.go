package feed

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"shellcast/internal/msg"
)

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	t.Cleanup(server.Close)
	return server
}

func receive(t *testing.T, rx <-chan msg.Message) msg.Message {
	t.Helper()
	select {
	case m := <-rx:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for worker result")
		return nil
	}
}

func TestSpawnReportsNewWhenNoIdentity(t *testing.T) {
	server := feedServer(t)
	rx := make(chan msg.Message, 1)
	s := NewSyncer(rx, 2, 5*time.Second)
	defer s.Shutdown()

	s.Spawn(server.URL, 0)

	m, ok := receive(t, rx).(msg.FeedNew)
	if !ok {
		t.Fatalf("expected FeedNew, got %T", m)
	}
	if m.Podcast.Title != "Test Podcast" {
		t.Errorf("unexpected title %q", m.Podcast.Title)
	}
	if m.Podcast.ID != 0 {
		t.Errorf("new feed result should carry no identity, got %d", m.Podcast.ID)
	}
}

func TestSpawnReportsSyncWithIdentity(t *testing.T) {
	server := feedServer(t)
	rx := make(chan msg.Message, 1)
	s := NewSyncer(rx, 2, 5*time.Second)
	defer s.Shutdown()

	s.Spawn(server.URL, 42)

	m, ok := receive(t, rx).(msg.FeedSync)
	if !ok {
		t.Fatalf("expected FeedSync, got %T", m)
	}
	if m.Podcast.ID != 42 {
		t.Errorf("expected identity 42, got %d", m.Podcast.ID)
	}
}

func TestSpawnReportsErrorOnFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rx := make(chan msg.Message, 1)
	s := NewSyncer(rx, 2, 5*time.Second)
	defer s.Shutdown()

	s.Spawn(server.URL, 0)

	if _, ok := receive(t, rx).(msg.FeedError); !ok {
		t.Fatal("expected FeedError")
	}
}

func TestSpawnReportsErrorOnParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer server.Close()

	rx := make(chan msg.Message, 1)
	s := NewSyncer(rx, 2, 5*time.Second)
	defer s.Shutdown()

	s.Spawn(server.URL, 0)

	if _, ok := receive(t, rx).(msg.FeedError); !ok {
		t.Fatal("expected FeedError")
	}
}

// SyncAll fan-out is bounded: with a single worker slot, the second
// spawn waits for the first to finish instead of fetching concurrently.
func TestSpawnBoundsConcurrency(t *testing.T) {
	var inflight, maxSeen atomic.Int32
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		for {
			seen := maxSeen.Load()
			if n <= seen || maxSeen.CompareAndSwap(seen, n) {
				break
			}
		}
		<-block
		inflight.Add(-1)
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	rx := make(chan msg.Message, 8)
	s := NewSyncer(rx, 1, 5*time.Second)
	defer s.Shutdown()

	for i := 0; i < 3; i++ {
		s.Spawn(server.URL, 0)
	}

	// Let the workers race for the single slot, then release them all.
	time.Sleep(100 * time.Millisecond)
	close(block)

	for i := 0; i < 3; i++ {
		receive(t, rx)
	}
	if maxSeen.Load() > 1 {
		t.Errorf("expected at most 1 concurrent fetch, saw %d", maxSeen.Load())
	}
}

func TestShutdownDiscardsUndeliveredResults(t *testing.T) {
	server := feedServer(t)

	// Unbuffered channel with no reader: the result cannot be
	// delivered, so Shutdown must not hang.
	rx := make(chan msg.Message)
	s := NewSyncer(rx, 2, 5*time.Second)

	s.Spawn(server.URL, 0)
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown hung on an undeliverable worker result")
	}
}

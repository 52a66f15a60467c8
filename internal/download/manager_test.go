package download

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shellcast/internal/models"
	"shellcast/internal/msg"
)

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("fake audio data for " + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server
}

func collectResults(t *testing.T, rx <-chan msg.Message, n int) []msg.Message {
	t.Helper()
	results := make([]msg.Message, 0, n)
	for len(results) < n {
		select {
		case m := <-rx:
			results = append(results, m)
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out: got %d of %d results", len(results), n)
		}
	}
	return results
}

func TestBatchCompleteness(t *testing.T) {
	server := mediaServer(t)
	dir := t.TempDir()
	rx := make(chan msg.Message, 16)
	m := NewManager(rx, 2, 0)
	m.Start()
	defer m.Stop()

	var tasks []Task
	for i := 1; i <= 5; i++ {
		tasks = append(tasks, Task{
			Episode: models.Episode{
				ID:    int64(i),
				Title: fmt.Sprintf("Episode %d", i),
				URL:   fmt.Sprintf("%s/ep%d.mp3", server.URL, i),
			},
			PodcastID: 1,
			Dir:       dir,
		})
	}

	queued, skipped := m.Enqueue(tasks)
	if queued != 5 || skipped != 0 {
		t.Fatalf("expected 5 queued, 0 skipped; got %d, %d", queued, skipped)
	}

	// Exactly one terminal result per submitted episode.
	results := collectResults(t, rx, 5)
	seen := make(map[int64]bool)
	for _, r := range results {
		c, ok := r.(msg.DownloadComplete)
		if !ok {
			t.Fatalf("expected DownloadComplete, got %T", r)
		}
		if seen[c.EpisodeID] {
			t.Errorf("duplicate result for episode %d", c.EpisodeID)
		}
		seen[c.EpisodeID] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected results for 5 distinct episodes, got %d", len(seen))
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	server := mediaServer(t)
	dir := t.TempDir()
	rx := make(chan msg.Message, 16)
	m := NewManager(rx, 2, 0)
	m.Start()
	defer m.Stop()

	tasks := []Task{
		{Episode: models.Episode{ID: 1, Title: "One", URL: server.URL + "/one.mp3"}, PodcastID: 1, Dir: dir},
		{Episode: models.Episode{ID: 2, Title: "Two", URL: server.URL + "/missing.mp3"}, PodcastID: 1, Dir: dir},
		{Episode: models.Episode{ID: 3, Title: "Three", URL: server.URL + "/three.mp3"}, PodcastID: 1, Dir: dir},
	}
	m.Enqueue(tasks)

	completed := 0
	failed := 0
	for _, r := range collectResults(t, rx, 3) {
		switch r := r.(type) {
		case msg.DownloadComplete:
			completed++
		case msg.DownloadFailed:
			failed++
			if r.EpisodeID != 2 {
				t.Errorf("expected episode 2 to fail, got %d", r.EpisodeID)
			}
			if r.Kind != msg.RequestError {
				t.Errorf("expected request error, got %v", r.Kind)
			}
		}
	}
	if completed != 2 || failed != 1 {
		t.Errorf("expected 2 completed and 1 failed, got %d and %d", completed, failed)
	}
}

func TestEnqueueRejectsDuplicateInFlight(t *testing.T) {
	dir := t.TempDir()
	rx := make(chan msg.Message, 16)
	// Manager not started: tasks stay queued, which is enough to test
	// the duplicate check.
	m := NewManager(rx, 1, 0)

	task := Task{Episode: models.Episode{ID: 7, Title: "Seven", URL: "http://127.0.0.1/7.mp3"}, Dir: dir}

	queued, skipped := m.Enqueue([]Task{task})
	if queued != 1 || skipped != 0 {
		t.Fatalf("first enqueue: got queued=%d skipped=%d", queued, skipped)
	}

	queued, skipped = m.Enqueue([]Task{task})
	if queued != 0 || skipped != 1 {
		t.Errorf("duplicate enqueue: got queued=%d skipped=%d", queued, skipped)
	}

	if st, ok := m.Status(7); !ok || st != StatusQueued {
		t.Errorf("expected queued status, got %v ok=%v", st, ok)
	}
}

func TestCompletedFileIsRenamedFromTemp(t *testing.T) {
	server := mediaServer(t)
	dir := t.TempDir()
	rx := make(chan msg.Message, 16)
	m := NewManager(rx, 1, 0)
	m.Start()
	defer m.Stop()

	episode := models.Episode{ID: 1, Title: "My Episode", URL: server.URL + "/my.mp3"}
	m.Enqueue([]Task{{Episode: episode, PodcastID: 1, Dir: dir}})

	result := collectResults(t, rx, 1)[0]
	c, ok := result.(msg.DownloadComplete)
	if !ok {
		t.Fatalf("expected DownloadComplete, got %T", result)
	}

	if c.Path != filepath.Join(dir, "My_Episode.mp3") {
		t.Errorf("unexpected final path %q", c.Path)
	}
	if _, err := os.Stat(c.Path); err != nil {
		t.Errorf("expected final file to exist: %v", err)
	}
	if _, err := os.Stat(c.Path + ".part"); !os.IsNotExist(err) {
		t.Error("expected temp file to be gone after rename")
	}

	if st, _ := m.Status(1); st != StatusCompleted {
		t.Errorf("expected completed status, got %v", st)
	}
}

func TestStopDiscardsUndeliveredResults(t *testing.T) {
	server := mediaServer(t)
	dir := t.TempDir()

	// No reader on an unbuffered channel: results cannot be delivered.
	rx := make(chan msg.Message)
	m := NewManager(rx, 1, 0)
	m.Start()

	m.Enqueue([]Task{{Episode: models.Episode{ID: 1, Title: "One", URL: server.URL + "/one.mp3"}, Dir: dir}})
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop hung on an undeliverable worker result")
	}
}

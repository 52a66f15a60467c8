package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://itunes.apple.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>Test Podcast</title>
    <description>A test podcast for unit testing</description>
    <link>https://example.com</link>
    <itunes:author>Jane Tester</itunes:author>
    <itunes:explicit>yes</itunes:explicit>
    <item>
      <title>Episode 1</title>
      <description>First test episode</description>
      <enclosure url="https://example.com/episode1.mp3" type="audio/mpeg" length="1024"/>
      <pubDate>Mon, 15 Oct 2023 12:00:00 GMT</pubDate>
      <itunes:duration>30:00</itunes:duration>
    </item>
    <item>
      <title>Episode 2</title>
      <description>Second test episode</description>
      <enclosure url="https://example.com/episode2.mp3" type="audio/mpeg" length="2048"/>
      <pubDate>Tue, 16 Oct 2023 12:00:00 GMT</pubDate>
      <itunes:duration>2700</itunes:duration>
    </item>
  </channel>
</rss>`

func TestParse(t *testing.T) {
	podcast, err := Parse("https://example.com/feed.xml", []byte(sampleFeed))
	if err != nil {
		t.Fatalf("failed to parse feed: %v", err)
	}

	if podcast.Title != "Test Podcast" {
		t.Errorf("expected title 'Test Podcast', got %q", podcast.Title)
	}
	if podcast.URL != "https://example.com/feed.xml" {
		t.Errorf("expected subscription url, got %q", podcast.URL)
	}
	if podcast.Author != "Jane Tester" {
		t.Errorf("expected author 'Jane Tester', got %q", podcast.Author)
	}
	if !podcast.Explicit {
		t.Error("expected explicit flag")
	}
	if podcast.ID != 0 {
		t.Errorf("parsed podcast should carry no identity, got %d", podcast.ID)
	}

	if podcast.Episodes.Len() != 2 {
		t.Fatalf("expected 2 episodes, got %d", podcast.Episodes.Len())
	}

	ep, _ := podcast.Episodes.Get(0)
	if ep.Title != "Episode 1" {
		t.Errorf("expected 'Episode 1', got %q", ep.Title)
	}
	if ep.URL != "https://example.com/episode1.mp3" {
		t.Errorf("unexpected enclosure url %q", ep.URL)
	}
	if ep.Duration != 30*time.Minute {
		t.Errorf("expected 30m duration, got %v", ep.Duration)
	}
	if ep.PubDate.IsZero() {
		t.Error("expected pubdate to parse")
	}
	if ep.Played {
		t.Error("new episodes start unplayed")
	}

	ep2, _ := podcast.Episodes.Get(1)
	if ep2.Duration != 45*time.Minute {
		t.Errorf("expected 45m duration from plain seconds, got %v", ep2.Duration)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse("https://example.com/feed.xml", []byte("not xml at all <<<")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	data, err := Fetch(context.Background(), server.Client(), server.URL)
	if err != nil {
		t.Fatalf("failed to fetch feed: %v", err)
	}
	if string(data) != sampleFeed {
		t.Error("fetched data does not match served feed")
	}
}

func TestFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := Fetch(context.Background(), server.Client(), server.URL); err == nil {
		t.Fatal("expected fetch error for 404")
	}
}

func TestCleanDescription(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<p>Show notes <b>here</b>.</p>", "Show notes here."},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"  <br/> padded  ", "padded"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cleanDescription(tc.in); got != tc.want {
			t.Errorf("cleanDescription(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"90", 90 * time.Second},
		{"05:30", 5*time.Minute + 30*time.Second},
		{"1:02:03", time.Hour + 2*time.Minute + 3*time.Second},
		{"junk", 0},
		{"1:2:3:4", 0},
	}
	for _, tc := range cases {
		if got := parseDuration(tc.in); got != tc.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shellcast/internal/models"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// cleanDescription strips HTML markup out of feed description text;
// feeds routinely embed markup that is useless outside a browser.
func cleanDescription(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title          string `xml:"title"`
	Description    string `xml:"description"`
	Link           string `xml:"link"`
	ITunesAuthor   string `xml:"author"`
	ITunesExplicit string `xml:"explicit"`
	Items          []item `xml:"item"`
}

type item struct {
	Title          string    `xml:"title"`
	Description    string    `xml:"description"`
	Enclosure      enclosure `xml:"enclosure"`
	PubDate        string    `xml:"pubDate"`
	ITunesDuration string    `xml:"duration"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length string `xml:"length,attr"`
}

// Fetch retrieves the raw feed document. Failures here are network
// failures, distinct from parse failures.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// Parse turns a feed document into a podcast with its episodes. The
// result carries no persisted identity; the caller attaches one when
// merging against an existing row.
func Parse(url string, data []byte) (*models.Podcast, error) {
	var doc rss
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse RSS: %w", err)
	}

	episodes := make([]models.Episode, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		ep := models.Episode{
			Title:       it.Title,
			Description: cleanDescription(it.Description),
			URL:         it.Enclosure.URL,
			Duration:    parseDuration(it.ITunesDuration),
		}
		if pubDate, err := parseRFC2822Date(it.PubDate); err == nil {
			ep.PubDate = pubDate
		}
		episodes = append(episodes, ep)
	}

	podcast := &models.Podcast{
		Title:       doc.Channel.Title,
		URL:         url,
		Description: cleanDescription(doc.Channel.Description),
		Author:      doc.Channel.ITunesAuthor,
		Explicit:    strings.EqualFold(strings.TrimSpace(doc.Channel.ITunesExplicit), "yes"),
		LastChecked: time.Now(),
		Episodes:    models.NewEpisodeList(episodes),
	}
	return podcast, nil
}

func parseRFC2822Date(dateStr string) (time.Time, error) {
	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 02 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 -0700",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// parseDuration converts the duration formats seen in feeds (plain
// seconds, MM:SS, HH:MM:SS) to a time.Duration. Anything unparseable
// comes back as zero.
func parseDuration(duration string) time.Duration {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(duration); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if strings.Contains(duration, ":") {
		return parseClockDuration(duration)
	}

	return 0
}

func parseClockDuration(timeStr string) time.Duration {
	parts := strings.Split(timeStr, ":")

	var hours, minutes, seconds int
	var err error

	switch len(parts) {
	case 2:
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return 0
		}
		if seconds, err = strconv.Atoi(parts[1]); err != nil {
			return 0
		}
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0
		}
		if seconds, err = strconv.Atoi(parts[2]); err != nil {
			return 0
		}
	default:
		return 0
	}

	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
}

package download

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"shellcast/internal/models"
)

// DirName creates a filesystem-safe directory name from a podcast
// title.
func DirName(podcastTitle string) string {
	sanitized := sanitize(podcastTitle)
	if sanitized == "" {
		h := sha256.New()
		h.Write([]byte(strings.ToLower(strings.TrimSpace(podcastTitle))))
		return fmt.Sprintf("podcast_%x", h.Sum(nil))[:20]
	}
	return sanitized
}

// Filename creates a filesystem-safe filename for an episode.
func Filename(episode models.Episode) string {
	title := sanitize(episode.Title)
	if title == "" {
		title = fmt.Sprintf("episode_%d", episode.ID)
	}
	// Reserve room for the extension.
	if len(title) > 251 {
		title = strings.Trim(title[:251], "_")
	}
	return title + ".mp3"
}

// sanitize replaces anything outside [a-zA-Z0-9 ] with underscores and
// collapses the result.
func sanitize(s string) string {
	s = strings.TrimSpace(s)

	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	s = result.String()

	s = strings.ReplaceAll(s, "  ", " ")
	s = strings.ReplaceAll(s, " ", "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	s = strings.Trim(s, "_")

	if len(s) > 255 {
		s = strings.Trim(s[:255], "_")
	}
	return s
}

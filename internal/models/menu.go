package models

// Menuable is the capability a menu row needs: a title cropped to the
// rendering width. Podcasts and episodes both satisfy it; episodes with
// a local copy are marked with a download glyph.
type Menuable interface {
	MenuTitle(width int) string
}

func (p *Podcast) MenuTitle(width int) string {
	return truncate(p.Title, width)
}

func (e Episode) MenuTitle(width int) string {
	if e.Downloaded() {
		return "[D] " + truncate(e.Title, width-4)
	}
	return truncate(e.Title, width)
}

// truncate crops s to at most n runes, never splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

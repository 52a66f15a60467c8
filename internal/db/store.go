// Package db is the durable store for podcasts and episodes, backed by
// SQLite. Only the controller goroutine talks to it, which serializes
// all writes without further locking.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"shellcast/internal/models"
)

type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the database at path, creating it and applying
// migrations as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	if err := Migrate(path); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// SQLite supports a single writer; keep the pool at one connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if _, err := conn.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &Store{db: conn, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetPodcasts loads every podcast with its episodes, ordered by title.
// The derived AnyUnplayed flag is computed from the loaded episodes.
func (s *Store) GetPodcasts() ([]*models.Podcast, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "title", "url", "description", "author", "explicit", "last_checked").
		From("podcasts").
		OrderBy("title COLLATE NOCASE")

	query, args := sb.Build()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []*models.Podcast
	for rows.Next() {
		var p models.Podcast
		var explicit int
		var lastChecked string
		if err := rows.Scan(&p.ID, &p.Title, &p.URL, &p.Description, &p.Author, &explicit, &lastChecked); err != nil {
			return nil, fmt.Errorf("scan podcast: %w", err)
		}
		p.Explicit = explicit != 0
		if t, err := time.Parse(time.RFC3339, lastChecked); err == nil {
			p.LastChecked = t
		}
		podcasts = append(podcasts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate podcasts: %w", err)
	}

	for _, p := range podcasts {
		episodes, err := s.GetEpisodes(p.ID)
		if err != nil {
			return nil, err
		}
		p.Episodes = models.NewEpisodeList(episodes)
		p.AnyUnplayed = p.Episodes.AnyUnplayed()
	}

	return podcasts, nil
}

// GetEpisodes loads the episode list for one podcast, newest first.
// Downloaded episodes carry their local path from the files table.
func (s *Store) GetEpisodes(podcastID int64) ([]models.Episode, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"episodes.id", "episodes.podcast_id", "episodes.title", "episodes.url",
		"episodes.description", "episodes.pubdate", "episodes.duration",
		"episodes.played", "files.path",
	).
		From("episodes").
		JoinWithOption(sqlbuilder.LeftJoin, "files", "files.episode_id = episodes.id").
		Where(sb.Equal("episodes.podcast_id", podcastID)).
		OrderBy("episodes.pubdate DESC", "episodes.id DESC")

	query, args := sb.Build()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []models.Episode
	for rows.Next() {
		var ep models.Episode
		var pubdate sql.NullString
		var duration int64
		var played int
		var path sql.NullString
		if err := rows.Scan(&ep.ID, &ep.PodcastID, &ep.Title, &ep.URL, &ep.Description, &pubdate, &duration, &played, &path); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		if pubdate.Valid {
			if t, err := time.Parse(time.RFC3339, pubdate.String); err == nil {
				ep.PubDate = t
			}
		}
		ep.Duration = time.Duration(duration) * time.Second
		ep.Played = played != 0
		if path.Valid {
			ep.Path = path.String
		}
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}

	return episodes, nil
}

// InsertPodcast stores a newly fetched podcast and its episodes,
// returning the number of episodes inserted.
func (s *Store) InsertPodcast(p *models.Podcast) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin insert podcast: %w", err)
	}
	defer tx.Rollback()

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("podcasts").
		Cols("title", "url", "description", "author", "explicit", "last_checked").
		Values(p.Title, p.URL, p.Description, p.Author, boolToInt(p.Explicit), p.LastChecked.UTC().Format(time.RFC3339))

	query, args := ib.Build()
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert podcast: %w", err)
	}
	podcastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("podcast insert id: %w", err)
	}

	count := 0
	for _, ep := range p.Episodes.Snapshot() {
		if _, err := insertEpisode(tx, podcastID, ep); err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert podcast: %w", err)
	}
	return count, nil
}

// UpdatePodcast merges a re-fetched podcast into the existing rows:
// podcast metadata is refreshed, episodes not seen before are inserted,
// and existing episodes keep their played state and files.
func (s *Store) UpdatePodcast(p *models.Podcast) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin update podcast: %w", err)
	}
	defer tx.Rollback()

	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update("podcasts").
		Set(
			ub.Assign("title", p.Title),
			ub.Assign("description", p.Description),
			ub.Assign("author", p.Author),
			ub.Assign("explicit", boolToInt(p.Explicit)),
			ub.Assign("last_checked", p.LastChecked.UTC().Format(time.RFC3339)),
		).
		Where(ub.Equal("id", p.ID))

	query, args := ub.Build()
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("update podcast: %w", err)
	}

	added := 0
	for _, ep := range p.Episodes.Snapshot() {
		var existing int64
		err := tx.QueryRow("SELECT id FROM episodes WHERE podcast_id = ? AND url = ?", p.ID, ep.URL).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			if _, err := insertEpisode(tx, p.ID, ep); err != nil {
				return err
			}
			added++
		case err != nil:
			return fmt.Errorf("check episode: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update podcast: %w", err)
	}
	if added > 0 {
		log.WithFields(log.Fields{"podcast": p.Title, "episodes": added}).Info("Added new episodes")
	}
	return nil
}

// SetPlayedStatus updates the played flag of one episode.
func (s *Store) SetPlayedStatus(episodeID int64, played bool) error {
	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update("episodes").
		Set(ub.Assign("played", boolToInt(played))).
		Where(ub.Equal("id", episodeID))

	query, args := ub.Build()
	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("set played status: %w", err)
	}
	return nil
}

// InsertFile records the local path of a downloaded episode. A repeat
// download of the same episode replaces the recorded path.
func (s *Store) InsertFile(episodeID int64, path string) error {
	if _, err := s.db.Exec(
		"INSERT INTO files (episode_id, path) VALUES (?, ?) ON CONFLICT (episode_id) DO UPDATE SET path = excluded.path",
		episodeID, path,
	); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func insertEpisode(tx *sql.Tx, podcastID int64, ep models.Episode) (int64, error) {
	var pubdate interface{}
	if !ep.PubDate.IsZero() {
		pubdate = ep.PubDate.UTC().Format(time.RFC3339)
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("episodes").
		Cols("podcast_id", "title", "url", "description", "pubdate", "duration", "played").
		Values(podcastID, ep.Title, ep.URL, ep.Description, pubdate, int64(ep.Duration/time.Second), boolToInt(ep.Played))

	query, args := ib.Build()
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("episode insert id: %w", err)
	}
	return id, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

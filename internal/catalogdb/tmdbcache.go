package catalogdb

import (
	"context"
	"database/sql"
)

// BlurhashCacheTTLSeconds is the default freshness window for a cached
// blurhash, per spec.md §4.2 ("TTL (default 90 days)").
const BlurhashCacheTTLSeconds = 90 * 24 * 60 * 60

// GetBlurhash returns the cached blurhash for a normalized remote image
// URL if present and not older than BlurhashCacheTTLSeconds relative to
// now.
func (d *DB) GetBlurhash(ctx context.Context, imageURL string, now int64) (string, bool, error) {
	var hash string
	var createdAt int64
	var found bool

	err := d.WithRead(ctx, "tmdbcache.get", func(conn *sql.DB) error {
		row := conn.QueryRowContext(ctx, `SELECT blurhash, created_at FROM blurhash_cache WHERE image_url = ?`, imageURL)
		scanErr := row.Scan(&hash, &createdAt)
		if scanErr == sql.ErrNoRows {
			return nil
		}
		found = scanErr == nil
		return scanErr
	})
	if err != nil || !found {
		return "", false, err
	}
	if now-createdAt > BlurhashCacheTTLSeconds {
		return "", false, nil
	}
	return hash, true, nil
}

// PutBlurhash stores (or refreshes) the cached blurhash for imageURL.
func (d *DB) PutBlurhash(ctx context.Context, imageURL, hash string, now int64) error {
	return d.WithWrite(ctx, "tmdbcache.put", func(conn Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO blurhash_cache (image_url, blurhash, created_at) VALUES (?, ?, ?)
			ON CONFLICT(image_url) DO UPDATE SET blurhash = excluded.blurhash, created_at = excluded.created_at
		`, imageURL, hash, now)
		return err
	})
}

// IntroMarker is one row of the intros database, carried forward from
// spec.md §4.5's concern list — the intro/recap boundary timestamps an
// external skip-intro collaborator would consume, given a concrete home
// here since spec.md names the database without detailing its schema
// (see SPEC_FULL.md §4.5).
type IntroMarker struct {
	EpisodeID    string
	IntroStartMs int64
	IntroEndMs   int64
	RecapEndMs   int64
	UpdatedAt    int64
}

// GetIntroMarker reads the intro/recap boundaries for an episode ID, if any.
func (d *DB) GetIntroMarker(ctx context.Context, episodeID string) (IntroMarker, bool, error) {
	var m IntroMarker
	var found bool
	err := d.WithRead(ctx, "intros.get", func(conn *sql.DB) error {
		row := conn.QueryRowContext(ctx, `
			SELECT episode_id, intro_start_ms, intro_end_ms, recap_end_ms, updated_at
			FROM intro_markers WHERE episode_id = ?
		`, episodeID)
		scanErr := row.Scan(&m.EpisodeID, &m.IntroStartMs, &m.IntroEndMs, &m.RecapEndMs, &m.UpdatedAt)
		if scanErr == sql.ErrNoRows {
			return nil
		}
		found = scanErr == nil
		return scanErr
	})
	return m, found, err
}

// UpsertIntroMarker writes the intro/recap boundaries for an episode.
func (d *DB) UpsertIntroMarker(ctx context.Context, m IntroMarker) error {
	return d.WithWrite(ctx, "intros.upsert", func(conn Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO intro_markers (episode_id, intro_start_ms, intro_end_ms, recap_end_ms, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(episode_id) DO UPDATE SET
				intro_start_ms = excluded.intro_start_ms,
				intro_end_ms = excluded.intro_end_ms,
				recap_end_ms = excluded.recap_end_ms,
				updated_at = excluded.updated_at
		`, m.EpisodeID, m.IntroStartMs, m.IntroEndMs, m.RecapEndMs, m.UpdatedAt)
		return err
	})
}

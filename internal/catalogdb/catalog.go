package catalogdb

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/json"
	"fmt"

	"media-viewer/internal/logging"
)

// jsonEncode marshals v, defaulting to "{}" on error. All JSON-valued
// columns are encoded this way on write.
func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		logging.Warn("catalogdb: failed to encode JSON column: %v", err)
		return "{}"
	}
	return string(b)
}

// jsonDecode unmarshals raw into v, leaving v at its zero value on a
// parse failure instead of propagating the error: malformed JSON reads
// back as a default empty value rather than an error.
func jsonDecode(raw string, v any) {
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		logging.Warn("catalogdb: malformed JSON column, using zero value: %v", err)
	}
}

// UpsertMovie writes m, performing no actual write if the recomputed
// directory_hash matches the stored one: ON CONFLICT(name) DO UPDATE
// ... WHERE directory_hash IS NULL OR directory_hash <>
// excluded.directory_hash.
func (d *DB) UpsertMovie(ctx context.Context, m *Movie) error {
	return d.WithWrite(ctx, "catalog.upsert_movie", func(conn Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO movies (
				name, file_names, lengths, dimensions, urls, hdr,
				additional_metadata, movie_id, directory_hash,
				poster_hash, poster_mtime, backdrop_hash, backdrop_mtime,
				logo_hash, logo_mtime, chapters_url, updated_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(name) DO UPDATE SET
				file_names = excluded.file_names,
				lengths = excluded.lengths,
				dimensions = excluded.dimensions,
				urls = excluded.urls,
				hdr = excluded.hdr,
				additional_metadata = excluded.additional_metadata,
				movie_id = excluded.movie_id,
				directory_hash = excluded.directory_hash,
				poster_hash = excluded.poster_hash,
				poster_mtime = excluded.poster_mtime,
				backdrop_hash = excluded.backdrop_hash,
				backdrop_mtime = excluded.backdrop_mtime,
				logo_hash = excluded.logo_hash,
				logo_mtime = excluded.logo_mtime,
				chapters_url = excluded.chapters_url,
				updated_at = excluded.updated_at
			WHERE movies.directory_hash IS NULL OR movies.directory_hash <> excluded.directory_hash
		`,
			m.Name, jsonEncode(m.FileNames), jsonEncode(m.Lengths), jsonEncode(m.Dimensions),
			jsonEncode(m.URLs), m.HDR, jsonEncode(m.AdditionalMeta), m.MovieID, m.DirectoryHash,
			m.PosterHash, m.PosterMtime, m.BackdropHash, m.BackdropMtime,
			m.LogoHash, m.LogoMtime, m.ChaptersURL, m.UpdatedAt,
		)
		return err
	})
}

// UpsertTVShow writes s with the same conditional-write discipline as
// UpsertMovie.
func (d *DB) UpsertTVShow(ctx context.Context, s *TVShow) error {
	return d.WithWrite(ctx, "catalog.upsert_show", func(conn Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO tv_shows (
				name, seasons, urls, additional_metadata, directory_hash,
				poster_hash, poster_mtime, backdrop_hash, backdrop_mtime,
				logo_hash, logo_mtime, updated_at
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(name) DO UPDATE SET
				seasons = excluded.seasons,
				urls = excluded.urls,
				additional_metadata = excluded.additional_metadata,
				directory_hash = excluded.directory_hash,
				poster_hash = excluded.poster_hash,
				poster_mtime = excluded.poster_mtime,
				backdrop_hash = excluded.backdrop_hash,
				backdrop_mtime = excluded.backdrop_mtime,
				logo_hash = excluded.logo_hash,
				logo_mtime = excluded.logo_mtime,
				updated_at = excluded.updated_at
			WHERE tv_shows.directory_hash IS NULL OR tv_shows.directory_hash <> excluded.directory_hash
		`,
			s.Name, jsonEncode(s.Seasons), jsonEncode(s.URLs), jsonEncode(s.AdditionalMeta),
			s.DirectoryHash, s.PosterHash, s.PosterMtime, s.BackdropHash, s.BackdropMtime,
			s.LogoHash, s.LogoMtime, s.UpdatedAt,
		)
		return err
	})
}

// GetMovie reads a movie row by name. Image-URL hashes are stitched
// into the returned URLs as "?hash=<10hex>" without any filesystem
// access, keeping hash refresh entirely on the write path.
func (d *DB) GetMovie(ctx context.Context, name string) (*Movie, error) {
	var m Movie
	var fileNames, lengths, dimensions, urls, additionalMeta string
	var hdr sql.NullString

	err := d.WithRead(ctx, "catalog.get_movie", func(conn *sql.DB) error {
		row := conn.QueryRowContext(ctx, `
			SELECT name, file_names, lengths, dimensions, urls, hdr,
			       additional_metadata, movie_id, directory_hash,
			       poster_hash, poster_mtime, backdrop_hash, backdrop_mtime,
			       logo_hash, logo_mtime, chapters_url, updated_at
			FROM movies WHERE name = ?`, name)
		return row.Scan(
			&m.Name, &fileNames, &lengths, &dimensions, &urls, &hdr,
			&additionalMeta, &m.MovieID, &m.DirectoryHash,
			&m.PosterHash, &m.PosterMtime, &m.BackdropHash, &m.BackdropMtime,
			&m.LogoHash, &m.LogoMtime, &m.ChaptersURL, &m.UpdatedAt,
		)
	})
	if err != nil {
		return nil, err
	}

	jsonDecode(fileNames, &m.FileNames)
	jsonDecode(lengths, &m.Lengths)
	jsonDecode(dimensions, &m.Dimensions)
	jsonDecode(urls, &m.URLs)
	jsonDecode(additionalMeta, &m.AdditionalMeta)
	if hdr.Valid {
		m.HDR = &hdr.String
	}

	stitchImageHash(m.URLs, "poster", m.PosterHash)
	stitchImageHash(m.URLs, "backdrop", m.BackdropHash)
	stitchImageHash(m.URLs, "logo", m.LogoHash)

	return &m, nil
}

// GetTVShow reads a show row by name, with the same image-hash
// stitching as GetMovie.
func (d *DB) GetTVShow(ctx context.Context, name string) (*TVShow, error) {
	var s TVShow
	var seasons, urls, additionalMeta string

	err := d.WithRead(ctx, "catalog.get_show", func(conn *sql.DB) error {
		row := conn.QueryRowContext(ctx, `
			SELECT name, seasons, urls, additional_metadata, directory_hash,
			       poster_hash, poster_mtime, backdrop_hash, backdrop_mtime,
			       logo_hash, logo_mtime, updated_at
			FROM tv_shows WHERE name = ?`, name)
		return row.Scan(
			&s.Name, &seasons, &urls, &additionalMeta, &s.DirectoryHash,
			&s.PosterHash, &s.PosterMtime, &s.BackdropHash, &s.BackdropMtime,
			&s.LogoHash, &s.LogoMtime, &s.UpdatedAt,
		)
	})
	if err != nil {
		return nil, err
	}

	jsonDecode(seasons, &s.Seasons)
	jsonDecode(urls, &s.URLs)
	jsonDecode(additionalMeta, &s.AdditionalMeta)

	stitchImageHash(s.URLs, "poster", s.PosterHash)
	stitchImageHash(s.URLs, "backdrop", s.BackdropHash)
	stitchImageHash(s.URLs, "logo", s.LogoHash)

	return &s, nil
}

func stitchImageHash(urls map[string]string, key, hash string) {
	if urls == nil || hash == "" {
		return
	}
	if u, ok := urls[key]; ok && u != "" {
		urls[key] = fmt.Sprintf("%s?hash=%s", u, hash)
	}
}

// ComputeImageHash returns the 10-hex-char prefix of md5(mtime). The
// image-URL hash appended to an outbound URL always equals the
// 10-hex prefix of md5(mtime-of-image-file).
func ComputeImageHash(mtime int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d", mtime)))
	return fmt.Sprintf("%x", sum)[:10]
}

// ListMovies returns every movie row (for the /media/movies catalog
// dump external interface — see internal/handlers).
func (d *DB) ListMovies(ctx context.Context) ([]*Movie, error) {
	var names []string
	err := d.WithRead(ctx, "catalog.list_movies", func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, "SELECT name FROM movies ORDER BY name")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			names = append(names, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Movie, 0, len(names))
	for _, n := range names {
		m, err := d.GetMovie(ctx, n)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// ListTVShows returns every show row.
func (d *DB) ListTVShows(ctx context.Context) ([]*TVShow, error) {
	var names []string
	err := d.WithRead(ctx, "catalog.list_shows", func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, "SELECT name FROM tv_shows ORDER BY name")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			names = append(names, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	out := make([]*TVShow, 0, len(names))
	for _, n := range names {
		s, err := d.GetTVShow(ctx, n)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// DeleteVanishedMovies removes movie rows not present in existingNames,
// in one write transaction.
func (d *DB) DeleteVanishedMovies(ctx context.Context, existingNames map[string]bool) (int, error) {
	return d.deleteVanished(ctx, "movies", "catalog.delete_missing_movies", existingNames)
}

// DeleteVanishedTVShows removes tv_shows rows not present in existingNames.
func (d *DB) DeleteVanishedTVShows(ctx context.Context, existingNames map[string]bool) (int, error) {
	return d.deleteVanished(ctx, "tv_shows", "catalog.delete_missing_shows", existingNames)
}

func (d *DB) deleteVanished(ctx context.Context, table, op string, existingNames map[string]bool) (int, error) {
	var toDelete []string
	err := d.WithRead(ctx, op+".scan", func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, "SELECT name FROM "+table)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			if !existingNames[n] {
				toDelete = append(toDelete, n)
			}
		}
		return rows.Err()
	})
	if err != nil || len(toDelete) == 0 {
		return 0, err
	}

	err = d.WithWrite(ctx, op, func(conn Conn) error {
		for _, name := range toDelete {
			if _, err := conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE name = ?", name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(toDelete), nil
}

// GetMissingDataRecord returns the last-attempt timestamp for name, or
// ok=false if there is no record.
func (d *DB) GetMissingDataRecord(ctx context.Context, name string) (MissingDataRecord, bool, error) {
	var rec MissingDataRecord
	var found bool
	err := d.WithRead(ctx, "catalog.get_missing_data", func(conn *sql.DB) error {
		row := conn.QueryRowContext(ctx, "SELECT name, last_attempt FROM missing_data_media WHERE name = ?", name)
		err := row.Scan(&rec.Name, &rec.LastAttempt)
		if err == sql.ErrNoRows {
			return nil
		}
		found = err == nil
		return err
	})
	return rec, found, err
}

// MarkMissingDataAttempt records (or updates) the last-attempt
// timestamp for name, used to rate-limit re-invocation of the external
// enrichment tool to once per RETRY_INTERVAL_HOURS.
func (d *DB) MarkMissingDataAttempt(ctx context.Context, name string, at int64) error {
	return d.WithWrite(ctx, "catalog.mark_missing_data", func(conn Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO missing_data_media (name, last_attempt) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET last_attempt = excluded.last_attempt
		`, name, at)
		return err
	})
}

package catalogdb

import "context"

// catalogSchema creates the movies/tv_shows/missing_data_media tables,
// grounded on internal/database/database.go's schema-creation style
// (one multi-statement SQL string, executed by InitCatalogSchema).
// There are no ALTER TABLE column migrations: CREATE TABLE IF NOT
// EXISTS leaves an existing table's columns as they are.
const catalogSchema = `
CREATE TABLE IF NOT EXISTS movies (
	name TEXT PRIMARY KEY,
	file_names TEXT NOT NULL DEFAULT '[]',
	lengths TEXT NOT NULL DEFAULT '{}',
	dimensions TEXT NOT NULL DEFAULT '{}',
	urls TEXT NOT NULL DEFAULT '{}',
	hdr TEXT,
	additional_metadata TEXT NOT NULL DEFAULT '{}',
	movie_id TEXT,
	directory_hash TEXT,
	poster_hash TEXT,
	poster_mtime INTEGER,
	backdrop_hash TEXT,
	backdrop_mtime INTEGER,
	logo_hash TEXT,
	logo_mtime INTEGER,
	chapters_url TEXT,
	updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tv_shows (
	name TEXT PRIMARY KEY,
	seasons TEXT NOT NULL DEFAULT '{}',
	urls TEXT NOT NULL DEFAULT '{}',
	additional_metadata TEXT NOT NULL DEFAULT '{}',
	directory_hash TEXT,
	poster_hash TEXT,
	poster_mtime INTEGER,
	backdrop_hash TEXT,
	backdrop_mtime INTEGER,
	logo_hash TEXT,
	logo_mtime INTEGER,
	updated_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS missing_data_media (
	name TEXT PRIMARY KEY,
	last_attempt INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_movies_updated_at ON movies(updated_at);
CREATE INDEX IF NOT EXISTS idx_tv_shows_updated_at ON tv_shows(updated_at);
`

const processQueueSchema = `
CREATE TABLE IF NOT EXISTS process_queue (
	file_key TEXT PRIMARY KEY,
	process_type TEXT NOT NULL,
	total_steps INTEGER NOT NULL,
	current_step INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'queued',
	message TEXT NOT NULL DEFAULT '',
	last_updated INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_process_queue_status ON process_queue(status);
`

const tmdbCacheSchema = `
CREATE TABLE IF NOT EXISTS blurhash_cache (
	image_url TEXT PRIMARY KEY,
	blurhash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

const introsSchema = `
CREATE TABLE IF NOT EXISTS intro_markers (
	episode_id TEXT PRIMARY KEY,
	intro_start_ms INTEGER,
	intro_end_ms INTEGER,
	recap_end_ms INTEGER,
	updated_at INTEGER NOT NULL
);
`

// InitCatalogSchema creates the catalog schema on first connection.
func InitCatalogSchema(ctx context.Context, db *DB) error {
	return db.Exec(ctx, "initialize_schema", catalogSchema)
}

// InitProcessQueueSchema creates the process_queue schema.
func InitProcessQueueSchema(ctx context.Context, db *DB) error {
	return db.Exec(ctx, "initialize_schema", processQueueSchema)
}

// InitTMDBCacheSchema creates the blurhash/TMDB cache schema.
func InitTMDBCacheSchema(ctx context.Context, db *DB) error {
	return db.Exec(ctx, "initialize_schema", tmdbCacheSchema)
}

// InitIntrosSchema creates the intros schema.
func InitIntrosSchema(ctx context.Context, db *DB) error {
	return db.Exec(ctx, "initialize_schema", introsSchema)
}

// Package sqlite implements repository.Store on an embedded SQLite database.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and
// cross-compilation works like any other Go package.
//
// CONNECTION POOL:
// The pool is pinned to a single connection. SQLite allows one writer at a
// time anyway, and pinning turns concurrent toggles into a queue instead of
// SQLITE_BUSY errors. It also keeps ":memory:" databases alive, because an
// in-memory database belongs to the connection that created it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/videotube/internal/metrics"
	"github.com/sakif/videotube/internal/repository"
)

const backend = "sqlite"

// Compile-time check that *DB provides every repository.
var _ repository.Store = (*DB)(nil)

// DB wraps the connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
//   - "data/videotube.db" → file-based database
//   - ":memory:"          → in-memory database, gone on Close (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight (file databases only).
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	// Foreign keys are off by default; the cascades below depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// every start.
//
// Likes keep one nullable column per target kind with a CHECK that exactly
// one is set; that way each kind gets a real foreign key and deleting a
// video, comment or tweet cascades to its likes.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				email         TEXT NOT NULL UNIQUE,
				full_name     TEXT NOT NULL,
				avatar        TEXT NOT NULL,
				cover_image   TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				refresh_token TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL,
				updated_at    DATETIME NOT NULL
			);`},
		{"videos", `
			CREATE TABLE IF NOT EXISTS videos (
				id           TEXT PRIMARY KEY,
				owner_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				video_file   TEXT NOT NULL,
				thumbnail    TEXT NOT NULL,
				title        TEXT NOT NULL,
				description  TEXT NOT NULL,
				duration     REAL NOT NULL DEFAULT 0,
				views        INTEGER NOT NULL DEFAULT 0,
				is_published INTEGER NOT NULL DEFAULT 1,
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_videos_owner_id ON videos(owner_id);
			CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at);`},
		{"comments", `
			CREATE TABLE IF NOT EXISTS comments (
				id         TEXT PRIMARY KEY,
				video_id   TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
				owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				content    TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_comments_video_id ON comments(video_id, created_at);`},
		{"tweets", `
			CREATE TABLE IF NOT EXISTS tweets (
				id         TEXT PRIMARY KEY,
				owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				content    TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_tweets_owner_id ON tweets(owner_id, created_at);`},
		{"likes", `
			CREATE TABLE IF NOT EXISTS likes (
				id         TEXT PRIMARY KEY,
				liked_by   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				video_id   TEXT REFERENCES videos(id) ON DELETE CASCADE,
				comment_id TEXT REFERENCES comments(id) ON DELETE CASCADE,
				tweet_id   TEXT REFERENCES tweets(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL,
				CHECK ((video_id IS NOT NULL) + (comment_id IS NOT NULL) + (tweet_id IS NOT NULL) = 1)
			);
			CREATE UNIQUE INDEX IF NOT EXISTS uq_likes_video ON likes(liked_by, video_id) WHERE video_id IS NOT NULL;
			CREATE UNIQUE INDEX IF NOT EXISTS uq_likes_comment ON likes(liked_by, comment_id) WHERE comment_id IS NOT NULL;
			CREATE UNIQUE INDEX IF NOT EXISTS uq_likes_tweet ON likes(liked_by, tweet_id) WHERE tweet_id IS NOT NULL;`},
		{"playlists", `
			CREATE TABLE IF NOT EXISTS playlists (
				id          TEXT PRIMARY KEY,
				owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				created_at  DATETIME NOT NULL,
				updated_at  DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_playlists_owner_id ON playlists(owner_id);
			CREATE TABLE IF NOT EXISTS playlist_videos (
				playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
				video_id    TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
				position    INTEGER NOT NULL,
				PRIMARY KEY (playlist_id, video_id)
			);`},
		{"subscriptions", `
			CREATE TABLE IF NOT EXISTS subscriptions (
				id            TEXT PRIMARY KEY,
				subscriber_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				channel_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at    DATETIME NOT NULL,
				UNIQUE (subscriber_id, channel_id)
			);
			CREATE INDEX IF NOT EXISTS idx_subscriptions_channel_id ON subscriptions(channel_id);`},
		{"watch_history", `
			CREATE TABLE IF NOT EXISTS watch_history (
				user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				PRIMARY KEY (user_id, video_id)
			);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s: %w", step.name, err)
		}
	}
	return nil
}

// now returns the current time in UTC without a monotonic reading, so values
// read back from the database compare equal to what was written.
func now() time.Time {
	return time.Now().UTC().Round(0)
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY failure.
func isForeignKeyViolation(err error) bool {
	var se *msqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// observe records the duration and outcome of one store operation.
func observe(op string, start time.Time, err *error) {
	metrics.ObserveStore(backend, op, start, err)
}

// orderClause turns a normalized sort key into an ORDER BY clause. Only
// keys present in columns are used; the id tiebreak keeps pages stable.
func orderClause(opts repository.ListOptions, columns map[string]string) string {
	col, ok := columns[opts.SortBy]
	if !ok {
		col = columns[repository.SortCreatedAt]
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, %s %s", col, dir, idColumn(col), dir)
}

// idColumn returns the id column of the table alias col belongs to.
func idColumn(col string) string {
	if alias, _, ok := strings.Cut(col, "."); ok {
		return alias + ".id"
	}
	return "id"
}

// likePattern escapes s for use in a LIKE ... ESCAPE '\' clause.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

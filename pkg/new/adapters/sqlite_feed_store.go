package adapters

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"
	"github.com/piraces/feedcache/pkg/metrics"
	"github.com/piraces/feedcache/pkg/new/adapters/queue"
	"github.com/piraces/feedcache/pkg/new/domain/cache"
	"github.com/piraces/feedcache/pkg/new/domain/feed"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const sqliteBackend = "sqlite"

// SQLiteFeedStore keeps the cached feed as one managed_cache row with its ordered
// managed_feed_image rows. Every operation runs alone on the store's queue, which
// plays the role of the database's single execution context.
type SQLiteFeedStore struct {
	db     *sql.DB
	ownsDB bool
	queue  *queue.OperationQueue
}

// OpenSQLiteFeedStore opens (creating if needed) the database at path and migrates it.
func OpenSQLiteFeedStore(path string) (*SQLiteFeedStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "error creating the database directory")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening the database")
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "error setting pragma %q", pragma)
		}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error migrating the database")
	}

	log.Printf("[INFO] feed store database opened at %s", path)

	store := NewSQLiteFeedStore(db)
	store.ownsDB = true
	return store, nil
}

// NewSQLiteFeedStore uses an already migrated database. The caller keeps ownership
// of db.
func NewSQLiteFeedStore(db *sql.DB) *SQLiteFeedStore {
	db.SetMaxOpenConns(1)
	return &SQLiteFeedStore{
		db:    db,
		queue: queue.NewOperationQueue(),
	}
}

// Close waits for pending operations and closes the database if the store opened it.
func (s *SQLiteFeedStore) Close() error {
	s.queue.Close()
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteFeedStore) Retrieve(completion func(cache.RetrievalResult)) {
	if !s.queue.Write(func() func() {
		result := s.retrieve()
		metrics.ObserveStoreOperation(sqliteBackend, "retrieve", result.Err())
		return func() {
			complete(completion, result)
		}
	}) {
		complete(completion, cache.NewFailedRetrieval(cache.ErrStoreClosed))
	}
}

func (s *SQLiteFeedStore) Insert(images []cache.LocalImage, timestamp time.Time, completion func(error)) {
	if !s.queue.Write(func() func() {
		err := s.runInTransaction(func(tx *sql.Tx) error {
			return s.replaceCache(tx, images, timestamp)
		})
		metrics.ObserveStoreOperation(sqliteBackend, "insert", err)
		return func() {
			complete(completion, err)
		}
	}) {
		complete(completion, cache.ErrStoreClosed)
	}
}

func (s *SQLiteFeedStore) Delete(completion func(error)) {
	if !s.queue.Write(func() func() {
		err := s.runInTransaction(s.deleteCurrentCache)
		metrics.ObserveStoreOperation(sqliteBackend, "delete", err)
		return func() {
			complete(completion, err)
		}
	}) {
		complete(completion, cache.ErrStoreClosed)
	}
}

func (s *SQLiteFeedStore) retrieve() cache.RetrievalResult {
	var (
		cacheID      int64
		tmptimestamp string
	)

	row := s.db.QueryRow(`SELECT id, timestamp FROM managed_cache ORDER BY id LIMIT 1`)
	if err := row.Scan(&cacheID, &tmptimestamp); err != nil {
		if err == sql.ErrNoRows {
			return cache.NewEmptyRetrieval()
		}
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_SCAN"}).Inc()
		return cache.NewFailedRetrieval(errors.Wrap(err, "error fetching the current cache"))
	}

	timestamp, err := time.Parse(time.RFC3339Nano, tmptimestamp)
	if err != nil {
		return cache.NewFailedRetrieval(cache.NewCorruptedCacheError(errors.Wrap(err, "invalid timestamp")))
	}

	rows, err := s.db.Query(`SELECT id, description, location, url FROM managed_feed_image WHERE cache_id = $1 ORDER BY position`, cacheID)
	if err != nil {
		return cache.NewFailedRetrieval(errors.Wrap(err, "error fetching the cached images"))
	}
	defer rows.Close() // not much we can do here

	images, err := s.scan(rows)
	if err != nil {
		return cache.NewFailedRetrieval(err)
	}

	return cache.NewFoundRetrieval(cache.CachedFeed{Images: images, Timestamp: timestamp})
}

func (s *SQLiteFeedStore) scan(rows *sql.Rows) ([]cache.LocalImage, error) {
	images := []cache.LocalImage{}
	for rows.Next() {
		var (
			tmpid          string
			tmpdescription sql.NullString
			tmplocation    sql.NullString
			tmpurl         string
		)

		if err := rows.Scan(&tmpid, &tmpdescription, &tmplocation, &tmpurl); err != nil {
			metrics.AppErrors.With(prometheus.Labels{"type": "SQL_SCAN"}).Inc()
			return nil, errors.Wrap(err, "error scanning the retrieved rows")
		}

		id, err := uuid.Parse(tmpid)
		if err != nil {
			return nil, cache.NewCorruptedCacheError(errors.Wrap(err, "invalid image id"))
		}

		address, err := feed.NewAddress(tmpurl)
		if err != nil {
			return nil, cache.NewCorruptedCacheError(errors.Wrap(err, "invalid image url"))
		}

		image := cache.LocalImage{ID: id, URL: address}
		if tmpdescription.Valid {
			image.Description = &tmpdescription.String
		}
		if tmplocation.Valid {
			image.Location = &tmplocation.String
		}

		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating the retrieved rows")
	}

	return images, nil
}

// replaceCache enforces the single current cache: any existing one is removed in
// the same transaction before the new one is created.
func (s *SQLiteFeedStore) replaceCache(tx *sql.Tx, images []cache.LocalImage, timestamp time.Time) error {
	if err := s.deleteCurrentCache(tx); err != nil {
		return err
	}

	result, err := tx.Exec(`INSERT INTO managed_cache (timestamp) VALUES ($1)`, timestamp.Format(time.RFC3339Nano))
	if err != nil {
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_WRITE"}).Inc()
		return errors.Wrap(err, "error inserting the cache")
	}

	cacheID, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "error reading the new cache id")
	}

	for position, image := range images {
		if _, err := tx.Exec(
			`INSERT INTO managed_feed_image (cache_id, position, id, description, location, url) VALUES ($1, $2, $3, $4, $5, $6)`,
			cacheID,
			position,
			image.ID.String(),
			nullString(image.Description),
			nullString(image.Location),
			image.URL.String(),
		); err != nil {
			metrics.AppErrors.With(prometheus.Labels{"type": "SQL_WRITE"}).Inc()
			return errors.Wrapf(err, "error inserting image at position %d", position)
		}
	}

	log.Printf("[DEBUG] saved cache %d with %d images", cacheID, len(images))
	return nil
}

func (s *SQLiteFeedStore) deleteCurrentCache(tx *sql.Tx) error {
	var cacheID int64
	row := tx.QueryRow(`SELECT id FROM managed_cache LIMIT 1`)
	if err := row.Scan(&cacheID); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_SCAN"}).Inc()
		return errors.Wrap(err, "error checking for an existing cache")
	}

	if _, err := tx.Exec(`DELETE FROM managed_feed_image WHERE cache_id = $1`, cacheID); err != nil {
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_WRITE"}).Inc()
		return errors.Wrap(err, "error deleting the cached images")
	}

	if _, err := tx.Exec(`DELETE FROM managed_cache WHERE id = $1`, cacheID); err != nil {
		metrics.AppErrors.With(prometheus.Labels{"type": "SQL_WRITE"}).Inc()
		return errors.Wrap(err, "error deleting the cache")
	}

	log.Printf("[DEBUG] deleted cache %d", cacheID)
	return nil
}

func (s *SQLiteFeedStore) runInTransaction(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "error beginning a transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return multierror.Append(err, errors.Wrap(rbErr, "error rolling back the transaction"))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing the transaction")
	}

	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_managed_cache_tables",
		up: `
			CREATE TABLE IF NOT EXISTS managed_cache (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS managed_feed_image (
				cache_id INTEGER NOT NULL REFERENCES managed_cache(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				id TEXT NOT NULL,
				description TEXT,
				location TEXT,
				url TEXT NOT NULL,
				PRIMARY KEY (cache_id, position)
			);
		`,
	},
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return errors.Wrap(err, "error creating the schema_migrations table")
	}

	currentVersion := 0
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&currentVersion); err != nil {
		return errors.Wrap(err, "error getting the current schema version")
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "error beginning migration %d", m.version)
		}

		if _, err := tx.Exec(m.up); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "error executing migration %d (%s)", m.version, m.name)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "error recording migration %d", m.version)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "error committing migration %d", m.version)
		}

		log.Printf("[INFO] applied migration %d (%s)", m.version, m.name)
	}

	return nil
}

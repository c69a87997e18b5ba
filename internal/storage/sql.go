package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/crisk-annotate/internal/errors"
	"github.com/rohankatakam/crisk-annotate/internal/models"
)

// SQLStore implements MarkerStore on SQLite (local) or PostgreSQL (shared)
type SQLStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore creates a new SQLite marker store
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	// WAL lets the display read markers while an annotation pass writes them
	db.Exec("PRAGMA journal_mode = WAL")
	db.Exec("PRAGMA busy_timeout = 5000")

	store := &SQLStore{db: db, logger: logger}
	if err := store.initSchema(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// NewPostgresStore creates a new PostgreSQL marker store
func NewPostgresStore(dsn string, logger *logrus.Logger) (*SQLStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &SQLStore{db: db, logger: logger}
	if err := store.initSchema(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS markers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL,
		kind TEXT NOT NULL,
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_markers_file ON markers(file_path, kind);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS markers (
		id BIGSERIAL PRIMARY KEY,
		file_path TEXT NOT NULL,
		kind TEXT NOT NULL,
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_markers_file ON markers(file_path, kind);
`

func (s *SQLStore) initSchema(schema string) error {
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Update runs fn inside one database transaction
func (s *SQLStore) Update(ctx context.Context, file string, fn func(tx MarkerTx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageError(err, "begin marker transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.WithError(rbErr).WithField("file", file).Warn("marker rollback failed")
			}
		}
	}()

	if err = fn(&sqlTx{ctx: ctx, tx: tx, file: file, logger: s.logger}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.StorageError(err, "commit markers")
	}
	return nil
}

// List returns the markers of one file
func (s *SQLStore) List(ctx context.Context, file string) ([]models.MarkerSpec, error) {
	var markers []models.MarkerSpec
	query := s.db.Rebind(`
		SELECT kind, char_start, char_end, message
		FROM markers
		WHERE file_path = ?
		ORDER BY char_start, id
	`)
	if err := s.db.SelectContext(ctx, &markers, query, file); err != nil {
		return nil, errors.StorageError(err, "list markers")
	}
	return markers, nil
}

// Files returns every file that has markers
func (s *SQLStore) Files(ctx context.Context) ([]string, error) {
	var files []string
	if err := s.db.SelectContext(ctx, &files, `SELECT DISTINCT file_path FROM markers ORDER BY file_path`); err != nil {
		return nil, errors.StorageError(err, "list marked files")
	}
	return files, nil
}

// txExecer is the part of *sqlx.Tx a marker transaction uses
type txExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

type sqlTx struct {
	ctx    context.Context
	tx     txExecer
	file   string
	logger *logrus.Logger
}

func (t *sqlTx) log() *logrus.Entry {
	return t.logger.WithField("file", t.file)
}

func (t *sqlTx) DeleteKinds(kinds ...models.MarkerKind) error {
	if len(kinds) == 0 {
		return nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	query, args, err := sqlx.In(`DELETE FROM markers WHERE file_path = ? AND kind IN (?)`, t.file, names)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(t.ctx, t.tx.Rebind(query), args...); err != nil {
		return errors.StorageError(err, "delete markers")
	}
	return nil
}

// Create inserts under a savepoint so a failed insert does not poison the
// transaction (PostgreSQL aborts the whole transaction otherwise).
func (t *sqlTx) Create(m models.MarkerSpec) error {
	if _, err := t.tx.ExecContext(t.ctx, "SAVEPOINT marker"); err != nil {
		return fmt.Errorf("%w: %w", ErrTxAborted, errors.StorageError(err, "savepoint"))
	}

	query := t.tx.Rebind(`
		INSERT INTO markers (file_path, kind, char_start, char_end, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if _, err := t.tx.ExecContext(t.ctx, query, t.file, string(m.Kind), m.Start, m.End, m.Message, time.Now().UTC()); err != nil {
		if _, rbErr := t.tx.ExecContext(t.ctx, "ROLLBACK TO SAVEPOINT marker"); rbErr != nil {
			t.log().WithError(err).Debug("insert failed before savepoint rollback")
			return fmt.Errorf("%w: %w", ErrTxAborted, errors.StorageError(rbErr, "rollback marker savepoint"))
		}
		return errors.StorageError(err, "create marker")
	}

	_, err := t.tx.ExecContext(t.ctx, "RELEASE SAVEPOINT marker")
	return err
}

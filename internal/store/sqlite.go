package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	collection TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_documents_namespace ON documents(namespace, collection);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertOne(ctx context.Context, database, collection string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrapf(ErrPersistence, "sqlite: marshal document: %v", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, namespace, collection, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), database, collection, string(body), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(ErrPersistence, "sqlite: insert into %s.%s: %v", database, collection, err)
	}
	return nil
}

// Documents returns the bodies stored in database.collection, oldest first
func (s *SQLiteStore) Documents(ctx context.Context, database, collection string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE namespace = ? AND collection = ? ORDER BY created_at, rowid`,
		database, collection,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query documents")
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, json.RawMessage(body))
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: iterate documents")
}

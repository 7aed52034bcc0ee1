package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id         UUID PRIMARY KEY,
	namespace  TEXT NOT NULL,
	collection TEXT NOT NULL,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_namespace ON documents(namespace, collection);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertOne(ctx context.Context, database, collection string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrapf(ErrPersistence, "postgres: marshal document: %v", err)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, namespace, collection, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), database, collection, body, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(ErrPersistence, "postgres: insert into %s.%s: %v", database, collection, err)
	}
	if tag.RowsAffected() != 1 {
		return eris.Wrapf(ErrPersistence, "postgres: insert into %s.%s affected %d rows", database, collection, tag.RowsAffected())
	}
	return nil
}

// Package postgres implements the storage.Database capability on
// PostgreSQL using pgx/v5 connection pooling.
//
// Signaling semantics for this adapter:
//   - Execute returns a *storage.ExecuteError for malformed SQL and hard
//     backend rejections (undefined tables, constraint violations).
//   - Serialization failures and deadlock victims (SQLSTATE 40001, 40P01)
//     come back as an ExecuteResult with OutcomeConflict; the caller may
//     retry.
//   - Transaction provides a genuine BEGIN/COMMIT/ROLLBACK envelope: if
//     the callback returns an error, every statement issued through its
//     Session is rolled back.
//   - Batch is pipelined through pgx.Batch. PostgreSQL runs the pipeline
//     in an implicit transaction, so a hard rejection of any statement
//     fails the whole call and none of its effects persist.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leaseway/leaseway/pkg/storage"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same statement translation backs both the Database and its transaction
// sessions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// session executes statements against one querier.
type session struct {
	q querier
}

// DB is a PostgreSQL-backed storage.Database.
type DB struct {
	session
	pool     *pgxpool.Pool
	ownsPool bool
	closed   atomic.Bool
}

// Ensure DB implements storage.Database at compile time.
var _ storage.Database = (*DB)(nil)

// New connects a pool per cfg and returns the adapter. If MigrateOnStart
// is set, embedded schema migrations are applied before returning.
func New(ctx context.Context, cfg storage.DatabaseConfig) (*DB, error) {
	defaults(&cfg)

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &storage.ConfigurationError{Capability: "database", Provider: "postgres", Reason: fmt.Sprintf("parsing DSN: %v", err)}
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db := &DB{session: session{q: pool}, pool: pool, ownsPool: true}

	if cfg.MigrateOnStart {
		if err := db.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return db, nil
}

// FromPool wraps a caller-owned pool without taking ownership: Close on
// the returned DB does not close the pool. This is the normalization path
// for call sites that still hold a raw pgx handle.
func FromPool(pool *pgxpool.Pool) *DB {
	return &DB{session: session{q: pool}, pool: pool}
}

// Register registers this adapter under the provider name "postgres".
func Register(r *storage.Registry) {
	r.RegisterDatabase("postgres", func(ctx context.Context, cfg storage.DatabaseConfig) (storage.Database, error) {
		return New(ctx, cfg)
	})
}

// Query runs a read statement and collects every row.
func (s session) Query(ctx context.Context, sql string, args ...any) ([]storage.Row, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, &storage.QueryError{SQL: sql, Err: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []storage.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &storage.QueryError{SQL: sql, Err: err}
		}
		row := make(storage.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.QueryError{SQL: sql, Err: err}
	}
	return out, nil
}

// QueryOne returns the first row, or nil when the statement matches none.
func (s session) QueryOne(ctx context.Context, sql string, args ...any) (storage.Row, error) {
	rows, err := s.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Execute runs a mutating statement.
func (s session) Execute(ctx context.Context, sql string, args ...any) (*storage.ExecuteResult, error) {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		if isSerializationFailure(err) {
			return &storage.ExecuteResult{Outcome: storage.OutcomeConflict}, nil
		}
		return nil, &storage.ExecuteError{SQL: sql, Err: err}
	}
	return execResult(tag), nil
}

// Transaction runs fn inside a real transaction. The Session handed to fn
// is only valid for the duration of the callback.
func (db *DB) Transaction(ctx context.Context, fn func(storage.Session) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(session{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Batch pipelines stmts through a single pgx.Batch and returns one result
// per statement, in order.
func (db *DB) Batch(ctx context.Context, stmts []storage.Statement) ([]storage.ExecuteResult, error) {
	if len(stmts) == 0 {
		return nil, nil
	}

	b := &pgx.Batch{}
	for _, stmt := range stmts {
		b.Queue(stmt.SQL, stmt.Args...)
	}

	br := db.pool.SendBatch(ctx, b)
	defer br.Close()

	results := make([]storage.ExecuteResult, 0, len(stmts))
	for _, stmt := range stmts {
		tag, err := br.Exec()
		if err != nil {
			if isSerializationFailure(err) {
				results = append(results, storage.ExecuteResult{Outcome: storage.OutcomeConflict})
				continue
			}
			return nil, &storage.ExecuteError{SQL: stmt.SQL, Err: err}
		}
		results = append(results, *execResult(tag))
	}
	return results, nil
}

// HealthCheck verifies the database connection.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close releases the connection pool when this adapter owns it.
// Idempotent, and a no-op for FromPool-wrapped handles.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return nil
	}
	if db.ownsPool {
		db.pool.Close()
	}
	return nil
}

// execResult maps a command tag onto an ExecuteResult. PostgreSQL has no
// session last-insert-id, so LastInsertID stays nil; callers use
// RETURNING clauses through Query instead.
func execResult(tag pgconn.CommandTag) *storage.ExecuteResult {
	return &storage.ExecuteResult{
		Success:      true,
		Outcome:      storage.OutcomeApplied,
		RowsAffected: tag.RowsAffected(),
		Meta:         map[string]string{"command_tag": tag.String()},
	}
}

// isSerializationFailure reports the transient conflict SQLSTATEs:
// serialization_failure (40001) and deadlock_detected (40P01).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

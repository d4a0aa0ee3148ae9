package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/leaseway/leaseway/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container, runs migrations, and returns
// a connected adapter. Tests are skipped if no container runtime is
// available.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("leaseway_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	db, err := New(ctx, storage.DatabaseConfig{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating adapter: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func insertTenant(t *testing.T, db *DB, id, name string) {
	t.Helper()
	res, err := db.Execute(context.Background(),
		"INSERT INTO tenants (id, name) VALUES ($1, $2)", id, name)
	if err != nil {
		t.Fatalf("inserting tenant: %v", err)
	}
	if !res.Success || res.RowsAffected != 1 {
		t.Fatalf("insert result = %+v, want one applied row", res)
	}
}

func TestPostgres_QueryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTenant(t, db, "t1", "Acme Property Group")

	rows, err := db.Query(ctx, "SELECT id, name FROM tenants ORDER BY id")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["id"] != "t1" {
		t.Errorf("id = %v, want t1", rows[0]["id"])
	}
	if rows[0]["name"] != "Acme Property Group" {
		t.Errorf("name = %v, want Acme Property Group", rows[0]["name"])
	}
}

func TestPostgres_QueryOneNoRows(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	row, err := db.QueryOne(ctx, "SELECT id FROM tenants WHERE id = $1", "missing")
	if err != nil {
		t.Fatalf("QueryOne: %v", err)
	}
	if row != nil {
		t.Errorf("row = %v, want nil for no match", row)
	}
}

func TestPostgres_QueryErrorType(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Query(ctx, "SELECT * FROM no_such_table")
	if err == nil {
		t.Fatal("expected error for undefined table")
	}
	var qErr *storage.QueryError
	if !errors.As(err, &qErr) {
		t.Errorf("error type = %T, want *storage.QueryError", err)
	}
}

func TestPostgres_ExecuteErrorType(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Execute(ctx, "INSRT INTO tenants VALUES (1)")
	if err == nil {
		t.Fatal("expected error for malformed SQL")
	}
	var eErr *storage.ExecuteError
	if !errors.As(err, &eErr) {
		t.Errorf("error type = %T, want *storage.ExecuteError", err)
	}
}

func TestPostgres_ExecuteReportsRowsAffected(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTenant(t, db, "t1", "One")
	insertTenant(t, db, "t2", "Two")

	res, err := db.Execute(ctx, "UPDATE tenants SET name = $1", "Renamed")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Outcome != storage.OutcomeApplied || !res.Success {
		t.Errorf("result = %+v, want applied", res)
	}
	if res.RowsAffected != 2 {
		t.Errorf("RowsAffected = %d, want 2", res.RowsAffected)
	}
	if res.LastInsertID != nil {
		t.Error("LastInsertID should be nil for postgres")
	}
	if res.Meta["command_tag"] == "" {
		t.Error("Meta[command_tag] should carry the command tag")
	}
}

func TestPostgres_TransactionCommit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(s storage.Session) error {
		if _, err := s.Execute(ctx, "INSERT INTO tenants (id, name) VALUES ($1, $2)", "t1", "One"); err != nil {
			return err
		}
		_, err := s.Execute(ctx, "INSERT INTO tenants (id, name) VALUES ($1, $2)", "t2", "Two")
		return err
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	row, err := db.QueryOne(ctx, "SELECT count(*) AS n FROM tenants")
	if err != nil {
		t.Fatalf("QueryOne: %v", err)
	}
	if n, ok := row["n"].(int64); !ok || n != 2 {
		t.Errorf("count = %v, want 2", row["n"])
	}
}

func TestPostgres_TransactionRollback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	wantErr := errors.New("abort")
	err := db.Transaction(ctx, func(s storage.Session) error {
		if _, err := s.Execute(ctx, "INSERT INTO tenants (id, name) VALUES ($1, $2)", "t1", "One"); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Transaction error = %v, want callback error", err)
	}

	row, err := db.QueryOne(ctx, "SELECT count(*) AS n FROM tenants")
	if err != nil {
		t.Fatalf("QueryOne: %v", err)
	}
	if n, ok := row["n"].(int64); !ok || n != 0 {
		t.Errorf("count = %v, want 0 after rollback", row["n"])
	}
}

func TestPostgres_BatchOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	insertTenant(t, db, "t1", "One")

	results, err := db.Batch(ctx, []storage.Statement{
		{SQL: "INSERT INTO properties (id, tenant_id, name) VALUES ($1, $2, $3)", Args: []any{"p1", "t1", "Maple Court"}},
		{SQL: "UPDATE properties SET status = $1 WHERE id = $2", Args: []any{"listed", "p1"}},
		{SQL: "UPDATE properties SET status = $1 WHERE id = $2", Args: []any{"listed", "absent"}},
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []int64{1, 1, 0} {
		if results[i].RowsAffected != want {
			t.Errorf("results[%d].RowsAffected = %d, want %d", i, results[i].RowsAffected, want)
		}
		if !results[i].Success {
			t.Errorf("results[%d].Success = false, want true", i)
		}
	}

	row, err := db.QueryOne(ctx, "SELECT status FROM properties WHERE id = $1", "p1")
	if err != nil {
		t.Fatalf("QueryOne: %v", err)
	}
	if row["status"] != "listed" {
		t.Errorf("status = %v, want listed (statements applied in order)", row["status"])
	}
}

func TestPostgres_EmptyBatch(t *testing.T) {
	db := setupTestDB(t)

	results, err := db.Batch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil for empty batch", results)
	}
}

func TestPostgres_MigrationsAreIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// setupTestDB already migrated; a second run must be a no-op.
	if err := db.migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	rows, err := db.Query(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d applied versions, want 2", len(rows))
	}
}

func TestPostgres_CloseIdempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestPostgres_SerializationFailureDetection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSerializationFailure(tt.err); got != tt.want {
				t.Errorf("isSerializationFailure = %v, want %v", got, tt.want)
			}
		})
	}
}

//go:build integration

// Package integration runs the stock ledger against real PostgreSQL and
// Redis servers started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	ledgerlog "github.com/mfgorder/backend/internal/infrastructure/logger"
	"github.com/mfgorder/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// ledgerTables are listed children first
var ledgerTables = []string{"warehouse_entry_images", "packing_list_lines", "warehouse_entries", "projects"}

// pgServer is one running PostgreSQL container
type pgServer struct {
	container *tcpostgres.PostgresContainer
	dsn       string
}

func (s *pgServer) terminate(ctx context.Context) error {
	return s.container.Terminate(ctx)
}

var sharedPG struct {
	mu     sync.Mutex
	server *pgServer
}

// TestDB is a migrated ledger database plus its GORM and database/sql handles
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
	t     testing.TB
}

func startPostgres(ctx context.Context, database string) (*pgServer, error) {
	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(database),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		return nil, err
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	server := &pgServer{container: container, dsn: dsn}
	if err := migrateSchema(dsn); err != nil {
		_ = server.terminate(ctx)
		return nil, err
	}
	return server, nil
}

// NewTestDB starts a dedicated container, used by tests that change the
// schema itself. The container is terminated when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	server, err := startPostgres(ctx, "ledger_schema")
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := server.terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})
	return open(t, server.dsn)
}

// NewSharedTestDB connects to the container shared by the package, starting
// it on first use. Callers register CleanTables to leave it empty.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedPG.mu.Lock()
	if sharedPG.server == nil {
		server, err := startPostgres(context.Background(), "ledger")
		if err != nil {
			sharedPG.mu.Unlock()
			require.NoError(t, err, "start shared postgres container")
		}
		sharedPG.server = server
	}
	dsn := sharedPG.server.dsn
	sharedPG.mu.Unlock()

	return open(t, dsn)
}

// CleanupSharedContainer stops the shared container. TestMain calls it.
func CleanupSharedContainer() {
	sharedPG.mu.Lock()
	defer sharedPG.mu.Unlock()
	if sharedPG.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = sharedPG.server.terminate(ctx)
	sharedPG.server = nil
}

// CleanTables empties every ledger table in one statement
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	stmt := "TRUNCATE TABLE " + strings.Join(ledgerTables, ", ") + " RESTART IDENTITY CASCADE"
	require.NoError(tdb.t, tdb.DB.Exec(stmt).Error, "truncate ledger tables")
}

func open(t *testing.T, dsn string) *TestDB {
	t.Helper()

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: ledgerlog.NewGormLogger(zaptest.NewLogger(t), level),
	})
	require.NoError(t, err, "connect to postgres")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// the concurrency tests need real contention on the pool
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{DB: db, SqlDB: sqlDB, DSN: dsn, t: t}
}

// migrateSchema applies the postgres migrations with the migrate command's
// migrator on a short lived connection
func migrateSchema(dsn string) error {
	sqlDB, err := sql.Open(config.DriverPostgres, dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	m, err := migration.New(sqlDB, config.DriverPostgres, findMigrationsPath(), zap.NewNop())
	if err != nil {
		return err
	}
	return m.Up()
}

// findMigrationsPath walks up from this file until it finds migrations/postgres
func findMigrationsPath() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "migrations"
	}
	for dir := filepath.Dir(file); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(filepath.Join(candidate, config.DriverPostgres)); err == nil && info.IsDir() {
			return candidate
		}
	}
	return "migrations"
}

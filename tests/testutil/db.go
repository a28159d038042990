package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietGorm() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// MockDB is a GORM handle on the postgres dialect whose statements are
// answered by sqlmock. Use it to pin the exact SQL of row-locking queries,
// which SQLite cannot express.
type MockDB struct {
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
	conn *sql.DB
}

// NewMockDB opens a MockDB that is closed when the test ends
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), quietGorm())
	require.NoError(t, err, "Failed to open GORM on sqlmock")
	return &MockDB{DB: db, Mock: mock, conn: conn}
}

// ExpectationsWereMet fails the test if a queued statement never ran
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDB opens a private in-memory SQLite database holding the ledger
// tables. One connection is kept so every statement sees the same memory
// database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), quietGorm())
	require.NoError(t, err, "Failed to open sqlite database")

	conn, err := db.DB()
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate ledger tables")
	return db
}

// Package testutil provides shared helpers for tests: mock and in-memory
// databases, and an in-memory stand-in for the laboratory services.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	}
}

// MockDB is a gorm handle speaking the postgres dialect to sqlmock
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a MockDB. The connection is also closed at test cleanup,
// so Close is only needed to observe the close itself.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), quietConfig())
	require.NoError(t, err)
	return &MockDB{DB: db, Mock: mock, SqlDB: conn}
}

func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet fails t if any expected statement was not executed
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "unmet database expectations")
}

// NewSQLiteDB opens a private in-memory sqlite database with models migrated
func NewSQLiteDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	cfg := quietConfig()
	cfg.SkipDefaultTransaction = false
	db, err := gorm.Open(sqlite.Open("file::memory:"), cfg)
	require.NoError(t, err)

	conn, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would get its own empty database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.AutoMigrate(models...), "migrate sqlite schema")
	return db
}

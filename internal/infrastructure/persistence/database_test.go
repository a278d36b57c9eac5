package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labflow/backend/internal/infrastructure/config"
	"github.com/labflow/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newMockDatabase wraps a sqlmock connection in a postgres-dialect Database
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &Database{DB: gormDB}, mock
}

func TestDatabase_Ping(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection reset"))

	assert.NoError(t, db.Ping(context.Background()))
	assert.ErrorContains(t, db.Ping(context.Background()), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Instrument_Disabled(t *testing.T) {
	db, mock := newMockDatabase(t)

	err := db.Instrument(telemetry.DBTracingConfig{Enabled: false}, nil, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, db.DB.Callback().Query().Get("db_tracing:query"))
	assert.Nil(t, db.DB.Callback().Query().Get("db_metrics:after_query"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Instrument_Tracing(t *testing.T) {
	db, _ := newMockDatabase(t)

	err := db.Instrument(telemetry.DBTracingConfig{Enabled: true}, nil, time.Second, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, db.DB.Callback().Query().Get("db_tracing:query"))
}

func TestOpen_Options(t *testing.T) {
	cfg := &gorm.Config{}
	quiet := logger.Default.LogMode(logger.Silent)

	WithLogger(quiet)(cfg)
	WithPreparedStatements(false)(cfg)

	assert.Equal(t, quiet, cfg.Logger)
	assert.False(t, cfg.PrepareStmt)
}

func TestOpen_UnreachableDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed local port")
	}
	_, err := Open(&config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         1,
		User:         "postgres",
		DBName:       "labflow",
		SSLMode:      "disable",
		MaxOpenConns: 1,
	})
	require.Error(t, err)
}

package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	// gorm pings once on open
	mock.ExpectPing()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	t.Cleanup(func() { sqlDB.Close() })
	return db, mock
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, getLogLevel("silent"))
	assert.Equal(t, logger.Info, getLogLevel("info"))
	assert.Equal(t, logger.Error, getLogLevel("error"))
	assert.Equal(t, logger.Warn, getLogLevel("warn"))
	assert.Equal(t, logger.Warn, getLogLevel(""))
}

func TestHealth(t *testing.T) {
	original := DB
	defer func() { DB = original }()

	DB = nil
	assert.Error(t, Health(context.Background()))

	db, mock := setupMockDB(t)
	DB = db
	mock.ExpectPing()

	assert.NoError(t, Health(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckTables(t *testing.T) {
	db, mock := setupMockDB(t)

	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(m))

		count := 1
		if stmt.Schema.Table == "notifications" {
			count = 0
		}
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.tables").
			WithArgs(stmt.Schema.Table).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
	}

	missing, err := CheckTables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"notifications"}, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/feral-file/castindex/internal/store/schema"
)

var sqliteDBCounter atomic.Int64

// initSQLiteTestDB opens a fresh in-memory database for each test
func initSQLiteTestDB(t *testing.T) (Store, func(rows []schema.UserEthTransaction)) {
	dsn := fmt.Sprintf("file:castindex_test_%d?mode=memory&cache=shared", sqliteDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, ConfigureConnectionPool(db, 1, 1, 0, 0))
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	seed := func(rows []schema.UserEthTransaction) {
		require.NoError(t, db.Create(&rows).Error)
	}
	return NewStore(db), seed
}

// TestSQLiteStore runs all store tests against an in-memory SQLite database
func TestSQLiteStore(t *testing.T) {
	RunStoreTests(t, initSQLiteTestDB)
}

func TestCalculateSafeBatchSize(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		fields    int
		maxParams int
		want      int
	}{
		{"small batch returns total", 10, 6, postgresMaxParams, 10},
		{"postgres cap", 100000, 6, postgresMaxParams, 10755},
		{"sqlite cap", 100000, 12, sqliteMaxParams, 2647},
		{"empty input", 0, 6, postgresMaxParams, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, calculateSafeBatchSize(tt.total, tt.fields, tt.maxParams))
		})
	}
}

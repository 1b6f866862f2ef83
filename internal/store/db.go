package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/castindex/internal/config"
	"github.com/feral-file/castindex/internal/store/schema"
)

// Open connects to the database selected by cfg.Driver and applies the pool settings
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// A single writer keeps sqlite from returning SQLITE_BUSY under concurrent batches
		if err := ConfigureConnectionPool(db, 1, 1, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
			return nil, err
		}
		return db, nil
	}

	if err := ConfigureConnectionPool(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table managed by the indexer
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(schema.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0, the defaults from NormalizeConnectionPoolSettings are used.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

const (
	postgresMaxParams = 65535
	sqliteMaxParams   = 32766
)

// maxParamsFor returns the bind parameter limit of the connected database
func maxParamsFor(db *gorm.DB) int {
	if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
		return sqliteMaxParams
	}
	return postgresMaxParams
}

// calculateSafeBatchSize computes the batch size for bulk inserts so a single statement stays under
// the database's bind parameter limit (65535 for PostgreSQL, 32766 for SQLite).
//
// Example with headroom of 1000 on PostgreSQL:
//   - Cast: 6 fields → (65,535 - 1,000) / 6 = 10,755 records/batch
//   - EthTransaction: 12 fields → (65,535 - 1,000) / 12 = 5,377 records/batch
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int, maxParams int) int {
	const totalHeadroom = 1000

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return max(totalRecords, 1)
	}

	return safeBatchSize
}

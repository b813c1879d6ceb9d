package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/posting/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GuardIndexes are the unique indexes the posting engine relies on for exactly-once
// effects. Posting without them could double-post a redelivered event.
var GuardIndexes = []string{
	"idx_journal_active_source",
	"idx_processed_event_consumer",
	"idx_outbox_events_event_id",
}

// Database wraps the ledger's GORM connection
type Database struct {
	DB *gorm.DB
}

// Open connects to postgres, configures the pool and pings once
func Open(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(gormLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: db}, nil
}

// GormConfig returns the GORM settings every ledger connection uses.
// TranslateError lets repositories match unique violations with gorm.ErrDuplicatedKey.
func GormConfig(gormLogger logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
}

// RequireGuardIndexes fails when any of GuardIndexes is missing, which means the
// schema migrations have not been applied
func (d *Database) RequireGuardIndexes(ctx context.Context) error {
	var found []string
	err := d.DB.WithContext(ctx).
		Raw("SELECT indexname FROM pg_indexes WHERE schemaname = current_schema() AND indexname IN ?", GuardIndexes).
		Scan(&found).Error
	if err != nil {
		return fmt.Errorf("inspect ledger indexes: %w", err)
	}

	present := make(map[string]struct{}, len(found))
	for _, name := range found {
		present[name] = struct{}{}
	}
	for _, name := range GuardIndexes {
		if _, ok := present[name]; !ok {
			return fmt.Errorf("ledger index %s is missing, run the migrations first", name)
		}
	}
	return nil
}

// PingContext checks the connection; Database satisfies the readiness probe's Pinger
func (d *Database) PingContext(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

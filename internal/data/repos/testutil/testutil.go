package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/auditbridge-backend/internal/data/db"
	"github.com/yungbote/auditbridge-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a migrated database private to the test. It uses Postgres when
// TEST_POSTGRES_DSN is set and a throwaway SQLite file otherwise.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	cfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}

	var (
		conn *gorm.DB
		err  error
	)
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		path := filepath.Join(tb.TempDir(), "test.db")
		conn, err = gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), cfg)
		if err == nil {
			// SQLite serializes writers; one connection keeps transactions from
			// tripping over each other.
			sqlDB, dbErr := conn.DB()
			if dbErr != nil {
				tb.Fatalf("sqlite pool: %v", dbErr)
			}
			sqlDB.SetMaxOpenConns(1)
			tb.Cleanup(func() { _ = sqlDB.Close() })
		}
	}
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrateAll(conn); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return conn
}

// Tx opens a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, conn *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := conn.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

package storage

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"memberledger/internal/config"
	"memberledger/internal/storage/migrations"
	"memberledger/internal/util/logger"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

var (
	db     *gorm.DB
	dbOnce sync.Once

	// goose keeps its dialect and base FS in package globals
	migrateMu sync.Mutex
)

func GetDb() *gorm.DB {
	dbOnce.Do(func() {
		log := logger.GetLogger()

		conn, err := Open(config.GetEnv().DatabaseDsn)
		if err != nil {
			log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}

		db = conn
	})

	return db
}

// Open connects to postgres, or to a SQLite file when the DSN starts with
// "sqlite://". Unique violations are translated to gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	if path, ok := strings.CutPrefix(dsn, sqliteScheme); ok {
		return openSqlite(path, gormConfig)
	}

	conn, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return conn, nil
}

func openSqlite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}

	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return conn, nil
}

// Migrate applies the embedded goose migrations. Safe to call repeatedly.
func Migrate(conn *gorm.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}

	dialect := "postgres"
	if conn.Dialector.Name() == "sqlite" {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

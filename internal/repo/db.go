// Package repo implements the local key/value persistence used in place of
// browser storage, backed by GORM over a pure-Go SQLite driver. This file
// contains database bootstrapping helpers and schema migrations.
package repo

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/character-hub/internal/domain"
)

// Connection defaults. Snapshots are written by a single goroutine at a
// time, so a small pool is enough.
const (
	defaultBusyTimeout   = 5 * time.Second
	defaultMaxOpenConns  = 4
	defaultSlowThreshold = 250 * time.Millisecond
)

// Option customizes OpenSQLite.
type Option func(*openConfig)

type openConfig struct {
	busyTimeout  time.Duration
	maxOpenConns int
	log          *zerolog.Logger
}

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *openConfig) { c.busyTimeout = d }
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) Option {
	return func(c *openConfig) { c.maxOpenConns = n }
}

// WithLogger routes slow queries and driver errors to l.
func WithLogger(l zerolog.Logger) Option {
	return func(c *openConfig) { c.log = &l }
}

// OpenSQLite opens (or creates) the database at path with WAL journaling,
// installs the OpenTelemetry tracing plugin and tunes the pool. PRAGMAs are
// passed in the DSN so every pooled connection gets them.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	cfg := openConfig{busyTimeout: defaultBusyTimeout, maxOpenConns: defaultMaxOpenConns}
	for _, o := range opts {
		o(&cfg)
	}

	// Fail early if the parent directory is missing; sqlite reports it as
	// "out of memory (14)" on some platforms.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.log != nil {
		gcfg.Logger = logger.New(gormWriter{log: *cfg.log}, logger.Config{
			SlowThreshold:             defaultSlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(sqlite.Open(dsn(path, cfg.busyTimeout)), gcfg)
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.maxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.maxOpenConns)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// gormWriter sends GORM's slow-query and error lines to zerolog at warn.
type gormWriter struct{ log zerolog.Logger }

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Str("source", "gorm").Msgf(format, args...)
}

// dsn appends the connection PRAGMAs to path.
func dsn(path string, busy time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout("+strconv.FormatInt(busy.Milliseconds(), 10)+")")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

// AutoMigrate creates or updates the key/value table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Blob{})
}

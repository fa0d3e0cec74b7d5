// Package gormdb is a database adapter backed by GORM, on SQLite or
// PostgreSQL.
package gormdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/danpasecinic/trellis"
	"github.com/danpasecinic/trellis/adapters/database"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type Options struct {
	// Driver defaults to DriverSQLite.
	Driver Driver
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Models are migrated once the connection is open.
	Models []any
	// Config replaces the GORM configuration. GORM logs nothing by
	// default.
	Config *gorm.Config
}

type Adapter struct {
	*database.Adapter

	conn *connector
}

func New(opts Options) (*Adapter, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}
	if opts.Driver != DriverSQLite && opts.Driver != DriverPostgres {
		return nil, trellis.NewError(trellis.ErrCodeBadInput, fmt.Sprintf("unsupported database driver %q", opts.Driver), nil)
	}
	if opts.DSN == "" {
		return nil, trellis.NewError(trellis.ErrCodeBadInput, "database DSN is required", nil)
	}
	if opts.Config == nil {
		opts.Config = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}

	c := &connector{opts: opts}
	return &Adapter{Adapter: database.New(c), conn: c}, nil
}

// DB returns the GORM handle, nil before the connection is set up.
func (a *Adapter) DB() *gorm.DB {
	return a.conn.gorm()
}

type connector struct {
	opts Options

	mu sync.RWMutex
	db *gorm.DB
}

func (c *connector) dialector() gorm.Dialector {
	if c.opts.Driver == DriverPostgres {
		return postgres.Open(c.opts.DSN)
	}
	return sqlite.Open(c.opts.DSN)
}

func (c *connector) SetupConnection(ctx context.Context) error {
	db, err := gorm.Open(c.dialector(), c.opts.Config)
	if err != nil {
		return fmt.Errorf("open %s database: %w", c.opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get underlying database: %w", err)
	}
	if c.opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.opts.MaxOpenConns)
	}
	if c.opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.opts.MaxIdleConns)
	}
	if c.opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(c.opts.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping %s database: %w", c.opts.Driver, err)
	}

	if len(c.opts.Models) > 0 {
		if err := db.WithContext(ctx).AutoMigrate(c.opts.Models...); err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("migrate models: %w", err)
		}
	}

	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

func (c *connector) gorm() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.db
}

func (c *connector) Connection() any {
	db := c.gorm()
	if db == nil {
		return nil
	}
	return db
}

func (c *connector) sqlDB() (*sql.DB, error) {
	db := c.gorm()
	if db == nil {
		return nil, fmt.Errorf("%s database is not connected", c.opts.Driver)
	}
	return db.DB()
}

func (c *connector) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *connector) Shutdown(context.Context) error {
	sqlDB, err := c.sqlDB()
	if err != nil {
		return nil
	}

	c.mu.Lock()
	c.db = nil
	c.mu.Unlock()
	return sqlDB.Close()
}

package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/config"
	applogger "github.com/erp/bizdesk/internal/infrastructure/logger"
	"github.com/erp/bizdesk/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB     *gorm.DB
	Driver string
}

type dbOptions struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	plugins       []gorm.Plugin
}

// Option configures NewDatabase
type Option func(*dbOptions)

// WithLogger routes GORM logging through zap at the given level
func WithLogger(logger *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) Option {
	return func(o *dbOptions) {
		o.logger = logger
		o.logLevel = level
		o.slowThreshold = slowThreshold
	}
}

// WithPlugins registers GORM plugins, such as tracing, after connecting
func WithPlugins(plugins ...gorm.Plugin) Option {
	return func(o *dbOptions) {
		o.plugins = append(o.plugins, plugins...)
	}
}

// NewDatabase opens a postgres or sqlite connection according to cfg.Driver
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := dbOptions{logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(&o)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN()))
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gcfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(o.logLevel),
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver != "sqlite",
	}
	if o.logger != nil {
		gcfg.Logger = applogger.NewGormLogger(o.logger, applogger.GormConfig{
			Level:         o.logLevel,
			SlowThreshold: o.slowThreshold,
		})
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, p := range o.plugins {
		if err := db.Use(p); err != nil {
			return nil, fmt.Errorf("failed to register gorm plugin %s: %w", p.Name(), err)
		}
	}

	return &Database{DB: db, Driver: cfg.Driver}, nil
}

// sqliteDSN enables foreign keys so item rows cascade with their parent
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

// AllModels returns every persistence model, in dependency order
func AllModels() []any {
	return []any{
		&models.ClientModel{},
		&models.QuoteModel{},
		&models.QuoteItemModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.CompanySettingsModel{},
		&models.UserModel{},
	}
}

// AutoMigrate creates or updates the schema from the models. Production
// deployments use the SQL migrations instead; this serves sqlite setups and tests.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(AllModels()...)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// Transaction executes a function within a database transaction
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.DB.WithContext(ctx).Transaction(fn)
}

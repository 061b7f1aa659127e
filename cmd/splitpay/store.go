package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-splitpay/core"
	splitmigrations "github.com/goliatone/go-splitpay/migrations"
	sqlstore "github.com/goliatone/go-splitpay/store/sql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type persistenceConfig struct {
	driver string
	server string
}

func (c persistenceConfig) GetDebug() bool { return false }
func (c persistenceConfig) GetDriver() string { return c.driver }
func (c persistenceConfig) GetServer() string { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string { return "go-splitpay" }

// openPendingStore returns a nil store for the memory backend so the
// service falls back to its built-in map.
func openPendingStore(ctx context.Context, cfg appConfig) (core.PendingStateStore, func(), error) {
	if cfg.PendingStore == pendingStoreMemory {
		return nil, func() {}, nil
	}

	driver, migrationDialect, dialect := "sqlite3", splitmigrations.DialectSQLite, schema.Dialect(sqlitedialect.New())
	if cfg.PendingStore == pendingStorePostgres {
		driver, migrationDialect, dialect = "postgres", splitmigrations.DialectPostgres, pgdialect.New()
	}

	sqlDB, err := sql.Open(driver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", cfg.PendingStore, err)
	}
	if driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: driver, server: cfg.DatabaseDSN}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("persistence client: %w", err)
	}
	closeClient := func() { _ = client.Close() }

	err = splitmigrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrationDialect)
	if err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithTTL(cfg.PendingTTL))
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	return factory.PendingStateStore(), closeClient, nil
}

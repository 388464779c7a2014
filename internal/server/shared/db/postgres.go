package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/awaykeeper/internal/dbx"
	"github.com/dmitrijs2005/awaykeeper/internal/server/migrations"
	"github.com/dmitrijs2005/awaykeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/awaykeeper/internal/server/repositories/settings"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Postgres struct {
	db      *sql.DB
	migrate func(ctx context.Context, db *sql.DB) error
}

// NewPostgres opens a pgx pool. The connection is lazy: a bad DSN host
// surfaces on the first query, usually RunMigrations.
func NewPostgres(dsn string) (*Postgres, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &Postgres{db: conn, migrate: gooseUp}, nil
}

// gooseUp applies the embedded schema migrations.
func gooseUp(ctx context.Context, conn *sql.DB) error {
	p, err := goose.NewProvider(goose.DialectPostgres, conn, migrations.Migrations)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

func (m *Postgres) RunMigrations(ctx context.Context) error {
	if err := m.migrate(ctx, m.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (m *Postgres) Entries() entries.Repository { return entries.NewPostgresRepository(m.db) }

func (m *Postgres) Settings() settings.Repository { return settings.NewPostgresRepository(m.db) }

func (m *Postgres) InTx(ctx context.Context, fn TxFunc) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, entries.NewPostgresRepository(tx), settings.NewPostgresRepository(tx))
	})
}

func (m *Postgres) Close() error { return m.db.Close() }

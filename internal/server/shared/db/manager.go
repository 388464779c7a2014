// Package db opens the server's storage and hands out repositories. A DSN of
// "memory://" selects the in-process store; anything else is PostgreSQL.
package db

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/awaykeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/awaykeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

const MemoryDSN = "memory://"

// TxFunc runs with repositories bound to one transaction.
type TxFunc func(ctx context.Context, entries entries.Repository, settings settings.Repository) error

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Entries() entries.Repository
	Settings() settings.Repository
	// InTx commits when fn returns nil and rolls back otherwise. The
	// in-memory store has no rollback.
	InTx(ctx context.Context, fn TxFunc) error
	Close() error
}

func Open(dsn string, clock timex.Clock) (RepositoryManager, error) {
	if strings.HasPrefix(dsn, MemoryDSN) {
		return NewMemory(clock), nil
	}
	return NewPostgres(dsn)
}

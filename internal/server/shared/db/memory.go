package db

import (
	"context"

	"github.com/dmitrijs2005/awaykeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/awaykeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

// Memory keeps everything in process. Used by tests and by one-shot CLI
// runs against "memory://".
type Memory struct {
	entries  *entries.MemoryRepository
	settings *settings.MemoryRepository
}

func NewMemory(clock timex.Clock) *Memory {
	return &Memory{
		entries:  entries.NewMemoryRepository(clock),
		settings: settings.NewMemoryRepository(),
	}
}

func (m *Memory) RunMigrations(context.Context) error { return nil }

func (m *Memory) Entries() entries.Repository { return m.entries }

func (m *Memory) Settings() settings.Repository { return m.settings }

func (m *Memory) InTx(ctx context.Context, fn TxFunc) error {
	return fn(ctx, m.entries, m.settings)
}

func (m *Memory) Close() error { return nil }

package dbx

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openEntries(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "dbx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE entries (id INTEGER PRIMARY KEY, user_id TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func entryCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM entries`).Scan(&n))
	return n
}

func insertEntry(ctx context.Context, tx DBTX, user string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO entries (user_id) VALUES (?)`, user)
	return err
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db := openEntries(t)
		err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			if err := insertEntry(ctx, tx, "sam"); err != nil {
				return err
			}
			return insertEntry(ctx, tx, "kim")
		})
		require.NoError(t, err)
		assert.Equal(t, 2, entryCount(t, db))
	})

	t.Run("error rolls back", func(t *testing.T) {
		db := openEntries(t)
		abort := errors.New("abort import")
		err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertEntry(ctx, tx, "sam"))
			return abort
		})
		require.ErrorIs(t, err, abort)
		assert.Zero(t, entryCount(t, db))
	})

	t.Run("panic rolls back and propagates", func(t *testing.T) {
		db := openEntries(t)
		assert.PanicsWithValue(t, "bad row", func() {
			_ = WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
				require.NoError(t, insertEntry(ctx, tx, "sam"))
				panic("bad row")
			})
		})
		assert.Zero(t, entryCount(t, db))
	})

	t.Run("begin fails on closed pool", func(t *testing.T) {
		db := openEntries(t)
		require.NoError(t, db.Close())
		err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error { return nil })
		assert.ErrorContains(t, err, "begin tx")
	})
}

func TestExpectOneRow(t *testing.T) {
	tests := []struct {
		name    string
		res     sql.Result
		wantErr string
		notFnd  bool
	}{
		{name: "one row", res: sqlmock.NewResult(0, 1)},
		{name: "no row", res: sqlmock.NewResult(0, 0), notFnd: true},
		{name: "many rows", res: sqlmock.NewResult(0, 3), wantErr: "unexpected rows affected: 3"},
		{name: "driver error", res: sqlmock.NewErrorResult(errors.New("nope")), wantErr: "rows affected error: nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExpectOneRow(tt.res)
			switch {
			case tt.notFnd:
				assert.ErrorIs(t, err, common.ErrorNotFound)
			case tt.wantErr != "":
				assert.EqualError(t, err, tt.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

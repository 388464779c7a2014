// Package entries provides storage for away entries: a PostgreSQL
// repository over dbx.DBTX and an in-memory one for development and tests.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/dbx"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

const selectColumns = `id, guild_id, user_id, leave_at, return_at, reason, timezone_label, created_at, created_by`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Entry) error {
	query := `
		INSERT INTO entries (guild_id, user_id, leave_at, return_at, reason, timezone_label, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
		RETURNING id, created_at`

	// A preset CreatedAt is kept (imported rows); otherwise the database stamps it.
	var created *time.Time
	if !e.CreatedAt.IsZero() {
		created = &e.CreatedAt
	}

	err := r.db.QueryRowContext(ctx, query,
		e.GuildID, e.UserID, e.LeaveAt, nullTime(e.ReturnAt), e.Reason, e.TimezoneLabel, nullString(e.CreatedBy), nullTime(created),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, guildID string, id int64) (*models.Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM entries WHERE guild_id = $1 AND id = $2`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, guildID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, guildID, userID string) ([]*models.Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM entries WHERE guild_id = $1 AND user_id = $2 ORDER BY leave_at, id`
	return r.list(ctx, query, guildID, userID)
}

func (r *PostgresRepository) ListByGuild(ctx context.Context, guildID string) ([]*models.Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM entries WHERE guild_id = $1 ORDER BY leave_at, id`
	return r.list(ctx, query, guildID)
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Entry) error {
	query := `
		UPDATE entries SET leave_at = $1, return_at = $2, reason = $3, timezone_label = $4
		WHERE guild_id = $5 AND id = $6`

	res, err := r.db.ExecContext(ctx, query,
		e.LeaveAt, nullTime(e.ReturnAt), e.Reason, e.TimezoneLabel, e.GuildID, e.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) SetReturn(ctx context.Context, guildID string, id int64, ret time.Time) error {
	query := `UPDATE entries SET return_at = $1 WHERE guild_id = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, ret, guildID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, guildID string, id int64) error {
	query := `DELETE FROM entries WHERE guild_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, guildID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) DeleteReturnedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM entries WHERE return_at IS NOT NULL AND return_at < $1`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.Entry, error) {
	var (
		e         models.Entry
		returnAt  sql.NullTime
		createdBy sql.NullString
	)
	if err := s.Scan(&e.ID, &e.GuildID, &e.UserID, &e.LeaveAt, &returnAt,
		&e.Reason, &e.TimezoneLabel, &e.CreatedAt, &createdBy); err != nil {
		return nil, err
	}
	if returnAt.Valid {
		t := returnAt.Time
		e.ReturnAt = &t
	}
	if createdBy.Valid {
		v := createdBy.String
		e.CreatedBy = &v
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

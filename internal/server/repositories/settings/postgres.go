// Package settings provides storage for guild settings, user timezones and
// leadership grants.
package settings

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

const guildColumns = `guild_id, server_timezone, away_role_id, nickname_prefix, cmi_channel_id,
	report_enabled, report_channel_id, report_hour, report_last_sent_at`

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetGuild(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	query := `SELECT ` + guildColumns + ` FROM guild_settings WHERE guild_id = $1`

	s, err := scanGuild(r.db.QueryRowContext(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultGuildSettings(guildID), nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) UpsertGuild(ctx context.Context, s *models.GuildSettings) error {
	query := `
		INSERT INTO guild_settings (` + guildColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (guild_id) DO UPDATE SET
			server_timezone = EXCLUDED.server_timezone,
			away_role_id = EXCLUDED.away_role_id,
			nickname_prefix = EXCLUDED.nickname_prefix,
			cmi_channel_id = EXCLUDED.cmi_channel_id,
			report_enabled = EXCLUDED.report_enabled,
			report_channel_id = EXCLUDED.report_channel_id,
			report_hour = EXCLUDED.report_hour,
			report_last_sent_at = EXCLUDED.report_last_sent_at`

	_, err := r.db.ExecContext(ctx, query,
		s.GuildID, s.ServerTimezone, s.AwayRoleID, s.Prefix(), s.CMIChannelID,
		s.Report.Enabled, s.Report.ChannelID, s.Report.Hour, nullTime(s.Report.LastSentAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListWithAwayRole(ctx context.Context) ([]*models.GuildSettings, error) {
	query := `SELECT ` + guildColumns + ` FROM guild_settings WHERE away_role_id <> '' ORDER BY guild_id`
	return r.listGuilds(ctx, query)
}

func (r *PostgresRepository) ListReportEnabled(ctx context.Context) ([]*models.GuildSettings, error) {
	query := `SELECT ` + guildColumns + ` FROM guild_settings WHERE report_enabled ORDER BY guild_id`
	return r.listGuilds(ctx, query)
}

func (r *PostgresRepository) MarkReportSent(ctx context.Context, guildID string, at time.Time) error {
	query := `UPDATE guild_settings SET report_last_sent_at = $1 WHERE guild_id = $2`

	res, err := r.db.ExecContext(ctx, query, at, guildID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) GetUserTimezone(ctx context.Context, guildID, userID string) (string, error) {
	query := `SELECT timezone FROM user_timezones WHERE guild_id = $1 AND user_id = $2`

	var zone string
	if err := r.db.QueryRowContext(ctx, query, guildID, userID).Scan(&zone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return zone, nil
}

func (r *PostgresRepository) SetUserTimezone(ctx context.Context, guildID, userID, zone string) error {
	query := `
		INSERT INTO user_timezones (guild_id, user_id, timezone) VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET timezone = EXCLUDED.timezone`

	if _, err := r.db.ExecContext(ctx, query, guildID, userID, zone); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ClearUserTimezone(ctx context.Context, guildID, userID string) error {
	query := `DELETE FROM user_timezones WHERE guild_id = $1 AND user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, guildID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Grants(ctx context.Context, guildID string) (*models.LeadershipGrants, error) {
	roles, err := r.column(ctx, `SELECT role_id FROM leadership_roles WHERE guild_id = $1 ORDER BY role_id`, guildID)
	if err != nil {
		return nil, err
	}
	users, err := r.column(ctx, `SELECT user_id FROM leadership_users WHERE guild_id = $1 ORDER BY user_id`, guildID)
	if err != nil {
		return nil, err
	}
	return &models.LeadershipGrants{RoleIDs: roles, UserIDs: users}, nil
}

func (r *PostgresRepository) AddRoleGrant(ctx context.Context, guildID, roleID string) error {
	return r.exec(ctx, `INSERT INTO leadership_roles (guild_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, guildID, roleID)
}

func (r *PostgresRepository) RemoveRoleGrant(ctx context.Context, guildID, roleID string) error {
	return r.exec(ctx, `DELETE FROM leadership_roles WHERE guild_id = $1 AND role_id = $2`, guildID, roleID)
}

func (r *PostgresRepository) AddUserGrant(ctx context.Context, guildID, userID string) error {
	return r.exec(ctx, `INSERT INTO leadership_users (guild_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, guildID, userID)
}

func (r *PostgresRepository) RemoveUserGrant(ctx context.Context, guildID, userID string) error {
	return r.exec(ctx, `DELETE FROM leadership_users WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) listGuilds(ctx context.Context, query string) ([]*models.GuildSettings, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.GuildSettings
	for rows.Next() {
		s, err := scanGuild(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGuild(s scanner) (*models.GuildSettings, error) {
	var (
		g        models.GuildSettings
		lastSent sql.NullTime
	)
	if err := s.Scan(&g.GuildID, &g.ServerTimezone, &g.AwayRoleID, &g.NicknamePrefix, &g.CMIChannelID,
		&g.Report.Enabled, &g.Report.ChannelID, &g.Report.Hour, &lastSent); err != nil {
		return nil, err
	}
	if lastSent.Valid {
		t := lastSent.Time
		g.Report.LastSentAt = &t
	}
	return &g, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Package legacy copies data from the bot's original SQLite database into
// the current store.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	entryrepo "github.com/dmitrijs2005/awaykeeper/internal/server/repositories/entries"
	settingsrepo "github.com/dmitrijs2005/awaykeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/awaykeeper/internal/server/shared/db"
	_ "modernc.org/sqlite"
)

// Report counts what was copied. SkippedEntries are rows whose timestamps
// could not be parsed.
type Report struct {
	Entries        int
	SkippedEntries int
	Guilds         int
	UserTimezones  int
	RoleGrants     int
	UserGrants     int
}

type Importer struct {
	store db.RepositoryManager
	log   logging.Logger
}

func NewImporter(store db.RepositoryManager, logger logging.Logger) *Importer {
	return &Importer{store: store, log: logger.With("module", "legacy")}
}

// Import reads the database at path. Everything is written in one
// transaction; missing tables are treated as empty.
func (im *Importer) Import(ctx context.Context, path string) (*Report, error) {
	src, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	defer src.Close()

	if err := src.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}

	r := &reader{db: src, log: im.log}
	rep := &Report{}

	err = im.store.InTx(ctx, func(ctx context.Context, entries entryrepo.Repository, settings settingsrepo.Repository) error {
		if err := r.copyEntries(ctx, entries, rep); err != nil {
			return err
		}
		if err := r.copyGuilds(ctx, settings, rep); err != nil {
			return err
		}
		if err := r.copyUserTimezones(ctx, settings, rep); err != nil {
			return err
		}
		return r.copyGrants(ctx, settings, rep)
	})
	if err != nil {
		return nil, err
	}

	im.log.Info(ctx, "legacy import finished",
		"entries", rep.Entries, "skipped", rep.SkippedEntries, "guilds", rep.Guilds,
		"user_timezones", rep.UserTimezones, "role_grants", rep.RoleGrants, "user_grants", rep.UserGrants)
	return rep, nil
}

type reader struct {
	db  *sql.DB
	log logging.Logger
}

func (r *reader) hasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("legacy db error: %w", err)
	}
	return n > 0, nil
}

func (r *reader) hasColumn(ctx context.Context, table, column string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("legacy db error: %w", err)
	}
	return n > 0, nil
}

func (r *reader) copyEntries(ctx context.Context, repo entryrepo.Repository, rep *Report) error {
	ok, err := r.hasTable(ctx, "cmi_entries")
	if err != nil || !ok {
		return err
	}

	// created_by_user_id was added to the table later.
	createdBy := "NULL"
	if ok, err := r.hasColumn(ctx, "cmi_entries", "created_by_user_id"); err != nil {
		return err
	} else if ok {
		createdBy = "created_by_user_id"
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, leave_dt, return_dt, reason, timezone_label, created_at, `+createdBy+`
		FROM cmi_entries ORDER BY id`)
	if err != nil {
		return fmt.Errorf("legacy db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, guildID, userID       int64
			leaveText, createdText    string
			returnText, reason, label sql.NullString
			creator                   sql.NullInt64
		)
		if err := rows.Scan(&id, &guildID, &userID, &leaveText, &returnText, &reason, &label, &createdText, &creator); err != nil {
			return fmt.Errorf("legacy db error: %w", err)
		}

		e, ok := r.entry(ctx, id, leaveText, returnText, createdText)
		if !ok {
			rep.SkippedEntries++
			continue
		}
		e.GuildID = formatID(guildID)
		e.UserID = formatID(userID)
		e.Reason = reason.String
		e.TimezoneLabel = label.String
		if creator.Valid {
			c := formatID(creator.Int64)
			e.CreatedBy = &c
		}

		if err := repo.Create(ctx, e); err != nil {
			return err
		}
		rep.Entries++
	}
	return rows.Err()
}

func (r *reader) entry(ctx context.Context, id int64, leaveText string, returnText sql.NullString, createdText string) (*models.Entry, bool) {
	leave, ok := parseStamp(leaveText)
	if !ok {
		r.log.Warn(ctx, "skipping entry with unreadable leave time", "legacy_id", id, "value", leaveText)
		return nil, false
	}

	e := &models.Entry{LeaveAt: leave}
	if returnText.Valid && returnText.String != "" {
		ret, ok := parseStamp(returnText.String)
		if !ok {
			r.log.Warn(ctx, "skipping entry with unreadable return time", "legacy_id", id, "value", returnText.String)
			return nil, false
		}
		e.ReturnAt = &ret
	}
	if created, ok := parseStamp(createdText); ok {
		e.CreatedAt = created
	}
	return e, true
}

func (r *reader) copyGuilds(ctx context.Context, repo settingsrepo.Repository, rep *Report) error {
	guilds := make(map[int64]*models.GuildSettings)
	get := func(id int64) *models.GuildSettings {
		gs, ok := guilds[id]
		if !ok {
			gs = models.DefaultGuildSettings(formatID(id))
			guilds[id] = gs
		}
		return gs
	}

	err := r.each(ctx, "guild_settings", `SELECT guild_id, server_timezone FROM guild_settings`, func(rows *sql.Rows) error {
		var id int64
		var zone string
		if err := rows.Scan(&id, &zone); err != nil {
			return err
		}
		get(id).ServerTimezone = zone
		return nil
	})
	if err != nil {
		return err
	}

	err = r.each(ctx, "guild_away_roles", `SELECT guild_id, role_id FROM guild_away_roles`, func(rows *sql.Rows) error {
		var id int64
		var role sql.NullInt64
		if err := rows.Scan(&id, &role); err != nil {
			return err
		}
		if role.Valid {
			get(id).AwayRoleID = formatID(role.Int64)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = r.each(ctx, "guild_nickname_prefix", `SELECT guild_id, prefix FROM guild_nickname_prefix`, func(rows *sql.Rows) error {
		var id int64
		var prefix string
		if err := rows.Scan(&id, &prefix); err != nil {
			return err
		}
		if strings.TrimSpace(prefix) != "" {
			get(id).NicknamePrefix = strings.TrimSpace(prefix)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = r.each(ctx, "guild_channels", `SELECT guild_id, cmi_channel_id FROM guild_channels`, func(rows *sql.Rows) error {
		var id int64
		var channel sql.NullInt64
		if err := rows.Scan(&id, &channel); err != nil {
			return err
		}
		if channel.Valid {
			get(id).CMIChannelID = formatID(channel.Int64)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = r.each(ctx, "guild_daily_report_settings",
		`SELECT guild_id, enabled, channel_id, report_hour FROM guild_daily_report_settings`, func(rows *sql.Rows) error {
			var id int64
			var enabled, hour int
			var channel sql.NullInt64
			if err := rows.Scan(&id, &enabled, &channel, &hour); err != nil {
				return err
			}
			gs := get(id)
			gs.Report.Enabled = enabled != 0
			gs.Report.Hour = hour
			if channel.Valid {
				gs.Report.ChannelID = formatID(channel.Int64)
			}
			return nil
		})
	if err != nil {
		return err
	}

	for _, gs := range guilds {
		if err := repo.UpsertGuild(ctx, gs); err != nil {
			return err
		}
		rep.Guilds++
	}
	return nil
}

func (r *reader) copyUserTimezones(ctx context.Context, repo settingsrepo.Repository, rep *Report) error {
	return r.each(ctx, "user_timezones", `SELECT guild_id, user_id, timezone FROM user_timezones`, func(rows *sql.Rows) error {
		var guildID, userID int64
		var zone string
		if err := rows.Scan(&guildID, &userID, &zone); err != nil {
			return err
		}
		if err := repo.SetUserTimezone(ctx, formatID(guildID), formatID(userID), zone); err != nil {
			return err
		}
		rep.UserTimezones++
		return nil
	})
}

func (r *reader) copyGrants(ctx context.Context, repo settingsrepo.Repository, rep *Report) error {
	err := r.each(ctx, "guild_bot_perm_roles", `SELECT guild_id, role_id FROM guild_bot_perm_roles`, func(rows *sql.Rows) error {
		var guildID, roleID int64
		if err := rows.Scan(&guildID, &roleID); err != nil {
			return err
		}
		if err := repo.AddRoleGrant(ctx, formatID(guildID), formatID(roleID)); err != nil {
			return err
		}
		rep.RoleGrants++
		return nil
	})
	if err != nil {
		return err
	}

	return r.each(ctx, "guild_bot_perm_users", `SELECT guild_id, user_id FROM guild_bot_perm_users`, func(rows *sql.Rows) error {
		var guildID, userID int64
		if err := rows.Scan(&guildID, &userID); err != nil {
			return err
		}
		if err := repo.AddUserGrant(ctx, formatID(guildID), formatID(userID)); err != nil {
			return err
		}
		rep.UserGrants++
		return nil
	})
}

// each runs query when table exists and calls fn per row.
func (r *reader) each(ctx context.Context, table, query string, fn func(*sql.Rows) error) error {
	ok, err := r.hasTable(ctx, table)
	if err != nil || !ok {
		return err
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("legacy db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("%s: %w", table, err)
		}
	}
	return rows.Err()
}

var stampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseStamp reads the ISO-8601 text the original wrote. Values without an
// offset are taken as UTC.
func parseStamp(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

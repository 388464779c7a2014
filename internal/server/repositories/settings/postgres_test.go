package settings

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var guildCols = []string{"guild_id", "server_timezone", "away_role_id", "nickname_prefix", "cmi_channel_id",
	"report_enabled", "report_channel_id", "report_hour", "report_last_sent_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestGetGuild_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	sent := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM guild_settings WHERE guild_id = \$1`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows(guildCols).
			AddRow("g1", "Europe/London", "role", "[AWAY]", "chan", true, "rep", int64(9), sent))

	s, err := repo.GetGuild(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", s.ServerTimezone)
	assert.Equal(t, "role", s.AwayRoleID)
	assert.Equal(t, "[AWAY]", s.NicknamePrefix)
	assert.True(t, s.Report.Enabled)
	assert.Equal(t, 9, s.Report.Hour)
	require.NotNil(t, s.Report.LastSentAt)
	assert.Equal(t, sent, *s.Report.LastSentAt)
}

func TestGetGuild_MissingReturnsDefaults(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM guild_settings`).WithArgs("g1").WillReturnError(sql.ErrNoRows)

	s, err := repo.GetGuild(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", s.GuildID)
	assert.Equal(t, models.DefaultNicknamePrefix, s.NicknamePrefix)
	assert.Equal(t, models.DefaultReportHour, s.Report.Hour)
}

func TestGetGuild_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM guild_settings`).WillReturnError(errors.New("down"))

	_, err := repo.GetGuild(context.Background(), "g1")
	require.ErrorContains(t, err, "db error")
}

func TestUpsertGuild(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO guild_settings .* ON CONFLICT \(guild_id\) DO UPDATE SET`).
		WithArgs("g1", "UTC", "role", "[CMI]", "", false, "", 8, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertGuild(context.Background(), &models.GuildSettings{
		GuildID: "g1", ServerTimezone: "UTC", AwayRoleID: "role", Report: models.ReportSettings{Hour: 8},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithAwayRole(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM guild_settings WHERE away_role_id <> ''`).
		WillReturnRows(sqlmock.NewRows(guildCols).
			AddRow("a", "", "r1", "[CMI]", "", false, "", int64(8), nil).
			AddRow("b", "", "r2", "[CMI]", "", false, "", int64(8), nil))

	list, err := repo.ListWithAwayRole(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[1].AwayRoleID)
	assert.Nil(t, list[0].Report.LastSentAt)
}

func TestMarkReportSent_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(`UPDATE guild_settings SET report_last_sent_at = \$1 WHERE guild_id = \$2`).
		WithArgs(at, "g1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.MarkReportSent(context.Background(), "g1", at), common.ErrorNotFound)
}

func TestUserTimezone(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT timezone FROM user_timezones`).
		WithArgs("g1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"timezone"}).AddRow("Europe/Paris"))
	mock.ExpectQuery(`SELECT timezone FROM user_timezones`).
		WithArgs("g1", "u2").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO user_timezones .* ON CONFLICT \(guild_id, user_id\) DO UPDATE`).
		WithArgs("g1", "u2", "Asia/Tokyo").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM user_timezones`).
		WithArgs("g1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	zone, err := repo.GetUserTimezone(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", zone)

	_, err = repo.GetUserTimezone(ctx, "g1", "u2")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.SetUserTimezone(ctx, "g1", "u2", "Asia/Tokyo"))
	require.NoError(t, repo.ClearUserTimezone(ctx, "g1", "u2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrants(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT role_id FROM leadership_roles`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"role_id"}).AddRow("r1").AddRow("r2"))
	mock.ExpectQuery(`SELECT user_id FROM leadership_users`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectExec(`INSERT INTO leadership_roles .* ON CONFLICT DO NOTHING`).
		WithArgs("g1", "r3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM leadership_users`).
		WithArgs("g1", "u1").
		WillReturnError(errors.New("down"))

	g, err := repo.Grants(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, g.RoleIDs)
	assert.Equal(t, []string{"u1"}, g.UserIDs)

	require.NoError(t, repo.AddRoleGrant(ctx, "g1", "r3"))
	require.ErrorContains(t, repo.RemoveUserGrant(ctx, "g1", "u1"), "db error")
	require.NoError(t, mock.ExpectationsWereMet())
}

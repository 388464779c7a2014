package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server"
	"github.com/dmitrijs2005/awaykeeper/internal/server/config"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform/platformtest"
	"github.com/dmitrijs2005/awaykeeper/internal/server/shared/db"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guild = "g1"

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	store    *db.Memory
	platform *platformtest.Fake
	clock    *timex.FixedClock
	cfg      *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		clock:    timex.NewFixedClock(now),
		platform: platformtest.NewFake(),
	}
	h.store = db.NewMemory(h.clock)

	gs := models.DefaultGuildSettings(guild)
	gs.ServerTimezone = "Etc/UTC"
	gs.AwayRoleID = "away"
	require.NoError(t, h.store.Settings().UpsertGuild(ctx, gs))

	h.platform.AddMember(guild, platform.Member{UserID: "sam", Username: "Sam"})
	h.platform.AddMember(guild, platform.Member{UserID: "lead", Username: "Lead"})
	h.platform.SetAdmin("lead", true)
	return h
}

func (h *harness) open(ctx context.Context, cfg *config.Config) (*server.Components, error) {
	h.cfg = cfg
	return server.NewComponents(cfg, h.store, h.platform, h.clock, logging.Nop(), true), nil
}

func (h *harness) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(h.open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEntryCreate_ReconcilesImmediately(t *testing.T) {
	h := newHarness(t)

	out, err := h.exec(t, "entry", "create", "-g", guild, "-a", "sam",
		"--return-date", "2026-03-12", "--reason", "travel")
	require.NoError(t, err)
	assert.Contains(t, out, "12/03/2026 00:00")
	assert.Contains(t, out, "travel")

	m := h.platform.Get(guild, "sam")
	assert.True(t, m.HasRole("away"))
	assert.Equal(t, "[CMI] Sam", m.Nick)
}

func TestEntryCreate_ForOtherRequiresLeadership(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(t, "entry", "create", "-g", guild, "-a", "sam", "--user", "lead")
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = h.exec(t, "entry", "create", "-g", guild, "-a", "lead", "--user", "sam")
	require.NoError(t, err)
}

func TestEntryEdit_OnlyChangedFlags(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.exec(t, "entry", "create", "-g", guild, "-a", "sam",
		"--leave-date", "2026-03-11", "--leave-time", "09:00", "--return-date", "2026-03-13", "--reason", "exams")
	require.NoError(t, err)

	list, err := h.store.Entries().ListByUser(ctx, guild, "sam")
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID

	_, err = h.exec(t, "entry", "edit", "1", "-g", guild, "-a", "sam", "--return-time", "18:00")
	require.NoError(t, err)

	e, err := h.store.Entries().Get(ctx, guild, id)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), e.LeaveAt.UTC())
	require.NotNil(t, e.ReturnAt)
	assert.Equal(t, time.Date(2026, 3, 13, 18, 0, 0, 0, time.UTC), e.ReturnAt.UTC())
	assert.Equal(t, "exams", e.Reason)
}

func TestEntryReturnAndCancel(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(t, "entry", "create", "-g", guild, "-a", "sam")
	require.NoError(t, err)
	require.True(t, h.platform.Get(guild, "sam").HasRole("away"))

	h.clock.Advance(time.Hour)
	_, err = h.exec(t, "entry", "return", "1", "-g", guild, "-a", "sam")
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	_, err = h.exec(t, "sync", "-g", guild)
	require.NoError(t, err)
	m := h.platform.Get(guild, "sam")
	assert.False(t, m.HasRole("away"))
	assert.Equal(t, "Sam", m.Nick)

	out, err := h.exec(t, "entry", "cancel", "1", "-g", guild, "-a", "sam")
	require.NoError(t, err)
	assert.Contains(t, out, "entry 1 cancelled")

	_, err = h.exec(t, "entry", "cancel", "x", "-g", guild, "-a", "sam")
	assert.ErrorContains(t, err, "invalid entry id")
}

func TestEntryList(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec(t, "entry", "create", "-g", guild, "-a", "sam", "--leave-date", "tomorrow", "--reason", "dentist")
	require.NoError(t, err)

	out, err := h.exec(t, "entry", "list", "-g", guild, "--user", "sam")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "scheduled")
	assert.Contains(t, lines[1], "11/03/2026 00:00")
	assert.Contains(t, lines[1], "until further notice")
}

func TestRequiresGuildAndActor(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec(t, "entry", "create", "-a", "sam")
	assert.ErrorContains(t, err, "--guild is required")

	_, err = h.exec(t, "entry", "create", "-g", guild)
	assert.ErrorContains(t, err, "--actor is required")
}

func TestSettingsAndLeadership(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(t, "tz", "set-server", "-g", guild, "-a", "lead", "AEST")
	require.NoError(t, err)
	_, err = h.exec(t, "settings", "prefix", "[AWAY]", "-g", guild, "-a", "lead")
	require.NoError(t, err)
	_, err = h.exec(t, "settings", "report", "-g", guild, "-a", "lead", "--hour", "7", "--channel", "r1")
	require.NoError(t, err)
	_, err = h.exec(t, "leadership", "grant-user", "sam", "-g", guild, "-a", "lead")
	require.NoError(t, err)

	out, err := h.exec(t, "settings", "show", "-g", guild)
	require.NoError(t, err)
	assert.Contains(t, out, "Australia/Sydney (server)")
	assert.Contains(t, out, "nickname prefix: [AWAY]")
	assert.Contains(t, out, "enabled=true channel=r1 hour=7")
	assert.Contains(t, out, "leader users:    sam")

	_, err = h.exec(t, "settings", "report", "-g", guild, "-a", "lead", "--hour", "25")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUserTimezone(t *testing.T) {
	h := newHarness(t)

	out, err := h.exec(t, "tz", "set-user", "-g", guild, "-a", "sam", "london")
	require.NoError(t, err)
	assert.Contains(t, out, "Europe/London")

	out, err = h.exec(t, "tz", "set-user", "-g", guild, "-a", "sam")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")
}

func TestSweepAndReport(t *testing.T) {
	h := newHarness(t)

	out, err := h.exec(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 entries")

	_, err = h.exec(t, "entry", "create", "-g", guild, "-a", "sam")
	require.NoError(t, err)

	out, err = h.exec(t, "report", "preview", "-g", guild)
	require.NoError(t, err)
	assert.Contains(t, out, "[CMI] Sam (@Sam)")

	out, err = h.exec(t, "report", "export", "-g", guild)
	require.NoError(t, err)
	assert.Contains(t, out, "'sam,Sam")
}

func TestConfigFileAndDSNFlag(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fallback_timezone": "Europe/Berlin"}`), 0o600))

	_, err := h.exec(t, "sweep", "--config", path, "--dsn", "memory://test")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", h.cfg.FallbackTimezone)
	assert.Equal(t, "memory://test", h.cfg.DatabaseDSN)
}

package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/config"
	"github.com/dmitrijs2005/awaykeeper/internal/server/entries"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform/platformtest"
	"github.com/dmitrijs2005/awaykeeper/internal/server/shared/db"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = db.MemoryDSN
	c.MetricsAddr = ""
	c.ReconcileInterval = 10 * time.Millisecond
	return c
}

func TestNewApp_RequiresToken(t *testing.T) {
	_, err := NewApp(testConfig())
	assert.ErrorContains(t, err, "discord token")
}

func TestApp_RunAppliesDesignationAndStops(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory(nil)
	gs := models.DefaultGuildSettings("g")
	gs.AwayRoleID = "away"
	require.NoError(t, store.Settings().UpsertGuild(ctx, gs))

	p := platformtest.NewFake()
	p.AddMember("g", platform.Member{UserID: "sam", Username: "Sam"})

	app := newApp(testConfig(), store, p, timex.SystemClock{}, logging.Nop())
	_, err := app.Entries.Create(ctx, entries.CreateInput{GuildID: "g", ActorID: "sam"})
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- app.Run(runCtx) }()

	require.Eventually(t, func() bool {
		m := p.Get("g", "sam")
		return m.HasRole("away") && m.Nick == "[CMI] Sam"
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewComponents_InlineReconcilesOnCreate(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory(nil)
	gs := models.DefaultGuildSettings("g")
	gs.AwayRoleID = "away"
	require.NoError(t, store.Settings().UpsertGuild(ctx, gs))

	p := platformtest.NewFake()
	p.AddMember("g", platform.Member{UserID: "sam", Username: "Sam"})

	c := NewComponents(testConfig(), store, p, timex.SystemClock{}, logging.Nop(), true)
	_, err := c.Entries.Create(ctx, entries.CreateInput{GuildID: "g", ActorID: "sam"})
	require.NoError(t, err)

	assert.True(t, p.Get("g", "sam").HasRole("away"))
}

package tz

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	guild    *models.GuildSettings
	guildErr error
	userTZ   map[string]string
	userErr  error
}

func (f *fakeStore) GetGuild(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	if f.guildErr != nil {
		return nil, f.guildErr
	}
	if f.guild == nil {
		return models.DefaultGuildSettings(guildID), nil
	}
	return f.guild, nil
}

func (f *fakeStore) GetUserTimezone(ctx context.Context, guildID, userID string) (string, error) {
	if f.userErr != nil {
		return "", f.userErr
	}
	v, ok := f.userTZ[userID]
	if !ok {
		return "", common.ErrorNotFound
	}
	return v, nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Europe/Paris", "Europe/Paris", true},
		{"  America/New_York ", "America/New_York", true},
		{"nzt", "Pacific/Auckland", true},
		{"AEDT", "Australia/Sydney", true},
		{"London", "Europe/London", true},
		{"cest", "Europe/Berlin", true},
		{"Mars/Olympus", "", false},
		{"XYZ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Precedence(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		guild:  &models.GuildSettings{GuildID: "g", ServerTimezone: "Europe/London"},
		userTZ: map[string]string{"u": "PST"},
	}
	r := NewResolver(store, "")

	res, err := r.Resolve(ctx, "g", "u", "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", res.Zone)
	assert.Equal(t, SourceOverride, res.Source)
	assert.Equal(t, "Overridden Timezone: Asia/Tokyo", res.Label())

	// invalid override falls through to the user level, not the fallback
	res, err = r.Resolve(ctx, "g", "u", "Nowhere/Land")
	require.NoError(t, err)
	assert.Equal(t, "America/Los_Angeles", res.Zone)
	assert.Equal(t, "User Timezone: America/Los_Angeles", res.Label())

	res, err = r.Resolve(ctx, "g", "other", "")
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", res.Zone)
	assert.Equal(t, SourceServer, res.Source)
	assert.Equal(t, "Server Timezone: Europe/London", res.Label())
}

func TestResolve_FallbackWhenNothingConfigured(t *testing.T) {
	r := NewResolver(&fakeStore{}, "")
	res, err := r.Resolve(context.Background(), "g", "u", "")
	require.NoError(t, err)
	assert.Equal(t, "Pacific/Auckland", res.Zone)
	assert.Equal(t, SourceServer, res.Source)
	require.NotNil(t, res.Location)
}

func TestResolve_InvalidStoredValuesFallThrough(t *testing.T) {
	store := &fakeStore{
		guild:  &models.GuildSettings{ServerTimezone: "garbage"},
		userTZ: map[string]string{"u": "also garbage"},
	}
	r := NewResolver(store, "Europe/Berlin")
	res, err := r.Resolve(context.Background(), "g", "u", "")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", res.Zone)
}

func TestResolve_ConfiguredFallbackInvalidUsesDefault(t *testing.T) {
	r := NewResolver(&fakeStore{}, "not a zone")
	assert.Equal(t, DefaultFallback, r.Fallback().Zone)
}

func TestResolve_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")

	r := NewResolver(&fakeStore{userErr: boom}, "")
	_, err := r.Resolve(context.Background(), "g", "u", "")
	require.ErrorIs(t, err, boom)

	r = NewResolver(&fakeStore{guildErr: boom}, "")
	_, err = r.ServerLocation(context.Background(), "g")
	require.ErrorIs(t, err, boom)
}

package access

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform/platformtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGrants struct {
	grants models.LeadershipGrants
	err    error
}

func (f *fakeGrants) Grants(ctx context.Context, guildID string) (*models.LeadershipGrants, error) {
	if f.err != nil {
		return nil, f.err
	}
	g := f.grants
	return &g, nil
}

func newGuard() (*Guard, *platformtest.Fake, *fakeGrants) {
	p := platformtest.NewFake()
	p.AddMember("g", platform.Member{UserID: "admin"})
	p.AddMember("g", platform.Member{UserID: "officer", RoleIDs: []string{"officers"}})
	p.AddMember("g", platform.Member{UserID: "listed"})
	p.AddMember("g", platform.Member{UserID: "member"})
	p.SetAdmin("admin", true)

	grants := &fakeGrants{grants: models.LeadershipGrants{RoleIDs: []string{"officers"}, UserIDs: []string{"listed"}}}
	return NewGuard(p, grants), p, grants
}

func TestIsLeadership(t *testing.T) {
	g, _, _ := newGuard()
	ctx := context.Background()

	for user, want := range map[string]bool{
		"admin":    true,
		"officer":  true,
		"listed":   true,
		"member":   false,
		"stranger": false,
	} {
		got, err := g.IsLeadership(ctx, "g", user)
		require.NoError(t, err, user)
		assert.Equal(t, want, got, user)
	}
}

func TestIsLeadership_Errors(t *testing.T) {
	g, p, grants := newGuard()
	ctx := context.Background()

	grants.err = errors.New("db down")
	_, err := g.IsLeadership(ctx, "g", "member")
	require.ErrorContains(t, err, "db down")

	grants.err = nil
	p.FailMember["member"] = errors.New("timeout")
	_, err = g.IsLeadership(ctx, "g", "member")
	require.ErrorContains(t, err, "timeout")
}

func TestAuthorize(t *testing.T) {
	g, _, _ := newGuard()
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  string
		owner  string
		intent Intent
		allow  bool
	}{
		{"owner manages own", "member", "member", IntentManageForOther, true},
		{"member manages other", "member", "listed", IntentManageForOther, false},
		{"leader manages other", "officer", "member", IntentManageForOther, true},
		{"member creates for self", "member", "", IntentCreateForOther, true},
		{"member creates for other", "member", "admin", IntentCreateForOther, false},
		{"admin creates for other", "admin", "member", IntentCreateForOther, true},
		{"member configures", "member", "", IntentConfigureGuild, false},
		{"member configures own guild still needs leadership", "member", "member", IntentConfigureGuild, false},
		{"listed grants", "listed", "", IntentGrantPermission, true},
		{"unknown intent", "admin", "", Intent(99), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Authorize(ctx, "g", tt.actor, tt.owner, tt.intent)
			if tt.allow {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, common.ErrForbidden)
			}
		})
	}
}

func TestIntent_String(t *testing.T) {
	assert.Equal(t, "manage-for-other", IntentManageForOther.String())
	assert.Equal(t, "intent(42)", Intent(42).String())
}

// Package access decides who may act on whose behalf.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
)

// Intent names a privileged action.
type Intent int

const (
	// IntentCreateForOther creates an entry owned by someone else.
	IntentCreateForOther Intent = iota + 1
	// IntentManageForOther edits, cancels or ends someone else's entry.
	IntentManageForOther
	// IntentGrantPermission changes the leadership allow-lists.
	IntentGrantPermission
	// IntentConfigureGuild changes guild settings.
	IntentConfigureGuild
)

func (i Intent) String() string {
	switch i {
	case IntentCreateForOther:
		return "create-for-other"
	case IntentManageForOther:
		return "manage-for-other"
	case IntentGrantPermission:
		return "grant-permission"
	case IntentConfigureGuild:
		return "configure-guild"
	}
	return fmt.Sprintf("intent(%d)", int(i))
}

// GrantStore reads the leadership allow-lists.
type GrantStore interface {
	Grants(ctx context.Context, guildID string) (*models.LeadershipGrants, error)
}

type Guard struct {
	platform platform.Client
	grants   GrantStore
}

func NewGuard(p platform.Client, grants GrantStore) *Guard {
	return &Guard{platform: p, grants: grants}
}

// IsLeadership is true for platform administrators, allow-listed users and
// holders of an allow-listed role.
func (g *Guard) IsLeadership(ctx context.Context, guildID, userID string) (bool, error) {
	admin, err := g.platform.IsAdministrator(ctx, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("admin check: %w", err)
	}
	if admin {
		return true, nil
	}

	grants, err := g.grants.Grants(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("grants: %w", err)
	}
	for _, id := range grants.UserIDs {
		if id == userID {
			return true, nil
		}
	}
	if len(grants.RoleIDs) == 0 {
		return false, nil
	}

	m, err := g.platform.Member(ctx, guildID, userID)
	if err != nil {
		if errors.Is(err, platform.ErrMemberNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("member: %w", err)
	}
	for _, roleID := range grants.RoleIDs {
		if m.HasRole(roleID) {
			return true, nil
		}
	}
	return false, nil
}

// Authorize returns common.ErrForbidden unless actorID may perform intent.
// For the two "for other" intents the owner always acts on their own entry.
func (g *Guard) Authorize(ctx context.Context, guildID, actorID, ownerID string, intent Intent) error {
	switch intent {
	case IntentCreateForOther, IntentManageForOther:
		if ownerID == "" || actorID == ownerID {
			return nil
		}
	case IntentGrantPermission, IntentConfigureGuild:
	default:
		return fmt.Errorf("%w: unknown intent %s", common.ErrForbidden, intent)
	}

	ok, err := g.IsLeadership(ctx, guildID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s requires leadership", common.ErrForbidden, intent)
	}
	return nil
}

// Package platform is the boundary to the chat platform: roles, display
// names, permissions and channel messages. Every call returns its error;
// callers decide whether to log or propagate.
package platform

import (
	"context"
	"errors"
	"slices"
)

// ErrMemberNotFound is returned when the user is not a member of the guild.
var ErrMemberNotFound = errors.New("member not found")

// Member is the view of a guild member the server needs.
type Member struct {
	UserID   string
	Username string
	Nick     string
	RoleIDs  []string
}

// DisplayName is the nickname, or the username when no nickname is set.
func (m *Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Username
}

func (m *Member) HasRole(roleID string) bool {
	return slices.Contains(m.RoleIDs, roleID)
}

type Client interface {
	// Member returns ErrMemberNotFound for users outside the guild.
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	MembersWithRole(ctx context.Context, guildID, roleID string) ([]string, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	SetNickname(ctx context.Context, guildID, userID, nick string) error
	// IsAdministrator is true for the guild owner and for members whose roles
	// grant Administrator or Manage Server.
	IsAdministrator(ctx context.Context, guildID, userID string) (bool, error)
	SendMessage(ctx context.Context, channelID, content string) error
}

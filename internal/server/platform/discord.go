package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

const (
	membersPageSize = 1000
	// Manage Server permission bit.
	permissionManageGuild int64 = 1 << 5
)

// Discord implements Client over the Discord REST API. No gateway
// connection is opened.
type Discord struct {
	s *discordgo.Session
}

func NewDiscord(token string) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Discord{s: s}, nil
}

// NewDiscordFromSession wraps an existing session.
func NewDiscordFromSession(s *discordgo.Session) *Discord {
	return &Discord{s: s}
}

func (d *Discord) Member(ctx context.Context, guildID, userID string) (*Member, error) {
	m, err := d.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("discord member: %w", err)
	}
	return toMember(m), nil
}

func (d *Discord) MembersWithRole(ctx context.Context, guildID, roleID string) ([]string, error) {
	var (
		out   []string
		after string
	)
	for {
		page, err := d.s.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("discord members: %w", err)
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			if toMember(m).HasRole(roleID) {
				out = append(out, m.User.ID)
			}
			after = m.User.ID
		}
		if len(page) < membersPageSize {
			return out, nil
		}
	}
}

func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := d.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord add role: %w", err)
	}
	return nil
}

func (d *Discord) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := d.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord remove role: %w", err)
	}
	return nil
}

func (d *Discord) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	if err := d.s.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord nickname: %w", err)
	}
	return nil
}

func (d *Discord) IsAdministrator(ctx context.Context, guildID, userID string) (bool, error) {
	g, err := d.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("discord guild: %w", err)
	}
	if g.OwnerID == userID {
		return true, nil
	}

	m, err := d.Member(ctx, guildID, userID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}

	roles, err := d.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("discord roles: %w", err)
	}

	perms := permissions(guildID, roles, m.RoleIDs)
	return perms&(discordgo.PermissionAdministrator|permissionManageGuild) != 0, nil
}

func (d *Discord) SendMessage(ctx context.Context, channelID, content string) error {
	if _, err := d.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

// permissions ORs the @everyone role (same id as the guild) with the
// member's roles.
func permissions(guildID string, roles []*discordgo.Role, memberRoles []string) int64 {
	held := make(map[string]struct{}, len(memberRoles)+1)
	held[guildID] = struct{}{}
	for _, id := range memberRoles {
		held[id] = struct{}{}
	}

	var perms int64
	for _, r := range roles {
		if _, ok := held[r.ID]; ok {
			perms |= r.Permissions
		}
	}
	return perms
}

func toMember(m *discordgo.Member) *Member {
	out := &Member{Nick: m.Nick, RoleIDs: m.Roles}
	if m.User != nil {
		out.UserID = m.User.ID
		out.Username = m.User.Username
	}
	return out
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

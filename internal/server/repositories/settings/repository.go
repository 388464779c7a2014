package settings

import (
	"context"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

// Repository stores per-guild configuration, per-user timezone preferences
// and leadership allow-lists.
type Repository interface {
	// GetGuild returns the stored settings, or defaults for an unknown guild.
	GetGuild(ctx context.Context, guildID string) (*models.GuildSettings, error)
	UpsertGuild(ctx context.Context, s *models.GuildSettings) error
	ListWithAwayRole(ctx context.Context) ([]*models.GuildSettings, error)
	ListReportEnabled(ctx context.Context) ([]*models.GuildSettings, error)
	MarkReportSent(ctx context.Context, guildID string, at time.Time) error

	// GetUserTimezone returns common.ErrorNotFound when unset.
	GetUserTimezone(ctx context.Context, guildID, userID string) (string, error)
	SetUserTimezone(ctx context.Context, guildID, userID, zone string) error
	ClearUserTimezone(ctx context.Context, guildID, userID string) error

	Grants(ctx context.Context, guildID string) (*models.LeadershipGrants, error)
	AddRoleGrant(ctx context.Context, guildID, roleID string) error
	RemoveRoleGrant(ctx context.Context, guildID, roleID string) error
	AddUserGrant(ctx context.Context, guildID, userID string) error
	RemoveUserGrant(ctx context.Context, guildID, userID string) error
}

// Package settings implements the guild configuration operations: server and
// user timezones, the away role, the nickname marker, channels, the daily
// report and the leadership allow-lists.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/access"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/reconcile"
	settingsrepo "github.com/dmitrijs2005/awaykeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/awaykeeper/internal/server/tz"
)

type Authorizer interface {
	Authorize(ctx context.Context, guildID, actorID, ownerID string, intent access.Intent) error
}

// GuildReconciler re-applies designations after the role or marker changed.
type GuildReconciler interface {
	ReconcileGuild(ctx context.Context, guildID string) reconcile.Summary
}

type Service struct {
	repo       settingsrepo.Repository
	auth       Authorizer
	reconciler GuildReconciler
	log        logging.Logger
}

func NewService(repo settingsrepo.Repository, auth Authorizer, reconciler GuildReconciler, logger logging.Logger) *Service {
	return &Service{
		repo:       repo,
		auth:       auth,
		reconciler: reconciler,
		log:        logger.With("module", "settings"),
	}
}

// ReportInput is the daily report configuration as entered.
type ReportInput struct {
	Enabled   bool
	ChannelID string
	Hour      int
}

func (s *Service) Get(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	return s.repo.GetGuild(ctx, guildID)
}

func (s *Service) Grants(ctx context.Context, guildID string) (*models.LeadershipGrants, error) {
	return s.repo.Grants(ctx, guildID)
}

// SetServerTimezone stores the canonical zone name and returns it.
func (s *Service) SetServerTimezone(ctx context.Context, guildID, actorID, text string) (string, error) {
	zone, ok := tz.Normalize(text)
	if !ok {
		return "", fmt.Errorf("%w: unknown timezone %q", common.ErrValidation, text)
	}

	_, err := s.update(ctx, guildID, actorID, func(gs *models.GuildSettings) {
		gs.ServerTimezone = zone
	})
	return zone, err
}

// SetUserTimezone is self-service. Blank text clears the preference and
// returns "".
func (s *Service) SetUserTimezone(ctx context.Context, guildID, userID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		if err := s.repo.ClearUserTimezone(ctx, guildID, userID); err != nil {
			return "", err
		}
		return "", nil
	}

	zone, ok := tz.Normalize(text)
	if !ok {
		return "", fmt.Errorf("%w: unknown timezone %q", common.ErrValidation, text)
	}
	if err := s.repo.SetUserTimezone(ctx, guildID, userID, zone); err != nil {
		return "", err
	}
	return zone, nil
}

// SetAwayRole configures the designation role. An empty id disables
// reconciliation for the guild.
func (s *Service) SetAwayRole(ctx context.Context, guildID, actorID, roleID string) error {
	roleID = strings.TrimSpace(roleID)
	gs, err := s.update(ctx, guildID, actorID, func(gs *models.GuildSettings) {
		gs.AwayRoleID = roleID
	})
	if err != nil {
		return err
	}
	s.refresh(ctx, gs)
	return nil
}

func (s *Service) SetNicknamePrefix(ctx context.Context, guildID, actorID, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fmt.Errorf("%w: nickname prefix must not be empty", common.ErrValidation)
	}

	gs, err := s.update(ctx, guildID, actorID, func(gs *models.GuildSettings) {
		gs.NicknamePrefix = prefix
	})
	if err != nil {
		return err
	}
	s.refresh(ctx, gs)
	return nil
}

func (s *Service) SetCMIChannel(ctx context.Context, guildID, actorID, channelID string) error {
	_, err := s.update(ctx, guildID, actorID, func(gs *models.GuildSettings) {
		gs.CMIChannelID = strings.TrimSpace(channelID)
	})
	return err
}

func (s *Service) SetReportSettings(ctx context.Context, guildID, actorID string, in ReportInput) error {
	if in.Hour < 0 || in.Hour > 23 {
		return fmt.Errorf("%w: report hour must be between 0 and 23, got %d", common.ErrValidation, in.Hour)
	}

	_, err := s.update(ctx, guildID, actorID, func(gs *models.GuildSettings) {
		gs.Report.Enabled = in.Enabled
		gs.Report.ChannelID = strings.TrimSpace(in.ChannelID)
		gs.Report.Hour = in.Hour
	})
	return err
}

func (s *Service) GrantRole(ctx context.Context, guildID, actorID, roleID string) error {
	return s.grant(ctx, guildID, actorID, roleID, s.repo.AddRoleGrant)
}

func (s *Service) RevokeRole(ctx context.Context, guildID, actorID, roleID string) error {
	return s.grant(ctx, guildID, actorID, roleID, s.repo.RemoveRoleGrant)
}

func (s *Service) GrantUser(ctx context.Context, guildID, actorID, userID string) error {
	return s.grant(ctx, guildID, actorID, userID, s.repo.AddUserGrant)
}

func (s *Service) RevokeUser(ctx context.Context, guildID, actorID, userID string) error {
	return s.grant(ctx, guildID, actorID, userID, s.repo.RemoveUserGrant)
}

func (s *Service) grant(ctx context.Context, guildID, actorID, id string, apply func(ctx context.Context, guildID, id string) error) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id must not be empty", common.ErrValidation)
	}
	if err := s.auth.Authorize(ctx, guildID, actorID, "", access.IntentGrantPermission); err != nil {
		return err
	}
	return apply(ctx, guildID, id)
}

func (s *Service) update(ctx context.Context, guildID, actorID string, change func(*models.GuildSettings)) (*models.GuildSettings, error) {
	if err := s.auth.Authorize(ctx, guildID, actorID, "", access.IntentConfigureGuild); err != nil {
		return nil, err
	}

	gs, err := s.repo.GetGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	change(gs)
	if err := s.repo.UpsertGuild(ctx, gs); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "guild settings updated", "guild", guildID, "actor", actorID)
	return gs, nil
}

func (s *Service) refresh(ctx context.Context, gs *models.GuildSettings) {
	if s.reconciler == nil || gs.AwayRoleID == "" {
		return
	}
	sum := s.reconciler.ReconcileGuild(ctx, gs.GuildID)
	if sum.Failures > 0 {
		s.log.Warn(ctx, "reconcile after settings change had failures", "guild", gs.GuildID, "failures", sum.Failures)
	}
}

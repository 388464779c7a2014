// Package entries owns the lifecycle of away entries: validation, overlap
// checks, permission checks and the transitions create, edit, return early
// and cancel.
package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/access"
	"github.com/dmitrijs2005/awaykeeper/internal/server/dateparse"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/overlap"
	entryrepo "github.com/dmitrijs2005/awaykeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/awaykeeper/internal/server/tz"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

// Notifier is told about every committed mutation so external state can be
// reconciled for that user.
type Notifier interface {
	Notify(ctx context.Context, guildID, userID string)
}

type Authorizer interface {
	Authorize(ctx context.Context, guildID, actorID, ownerID string, intent access.Intent) error
}

type Resolver interface {
	Resolve(ctx context.Context, guildID, userID, override string) (tz.Resolution, error)
}

type Service struct {
	repo     entryrepo.Repository
	resolver Resolver
	parser   *dateparse.Parser
	auth     Authorizer
	notifier Notifier
	clock    timex.Clock
	log      logging.Logger
}

func NewService(
	repo entryrepo.Repository,
	resolver Resolver,
	parser *dateparse.Parser,
	auth Authorizer,
	notifier Notifier,
	clock timex.Clock,
	logger logging.Logger,
) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		parser:   parser,
		auth:     auth,
		notifier: notifier,
		clock:    clock,
		log:      logger.With("module", "entries"),
	}
}

// CreateInput holds the raw strings collected by a front end. Blank means
// not given.
type CreateInput struct {
	GuildID string
	ActorID string
	// TargetUserID defaults to ActorID.
	TargetUserID     string
	LeaveDate        string
	LeaveTime        string
	ReturnDate       string
	ReturnTime       string
	Reason           string
	TimezoneOverride string
}

// EditInput distinguishes omitted (nil) fields, which keep their prior
// value, from blank ones, which trigger the defaults.
type EditInput struct {
	EntryID          int64
	GuildID          string
	ActorID          string
	LeaveDate        *string
	LeaveTime        *string
	ReturnDate       *string
	ReturnTime       *string
	Reason           *string
	TimezoneOverride *string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Entry, error) {
	target := in.TargetUserID
	if target == "" {
		target = in.ActorID
	}

	if err := s.auth.Authorize(ctx, in.GuildID, in.ActorID, target, access.IntentCreateForOther); err != nil {
		return nil, err
	}

	res, err := s.resolver.Resolve(ctx, in.GuildID, target, in.TimezoneOverride)
	if err != nil {
		return nil, err
	}

	leave, ret, err := s.createInstants(in, res.Location)
	if err != nil {
		return nil, err
	}

	if err := s.checkCandidate(ctx, in.GuildID, target, leave, ret, 0); err != nil {
		return nil, err
	}

	actor := in.ActorID
	e := &models.Entry{
		GuildID:       in.GuildID,
		UserID:        target,
		LeaveAt:       leave,
		ReturnAt:      ret,
		Reason:        strings.TrimSpace(in.Reason),
		TimezoneLabel: res.Label(),
		CreatedBy:     &actor,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "entry created", "guild", e.GuildID, "user", e.UserID, "id", e.ID, "actor", actor)
	s.notifier.Notify(ctx, e.GuildID, e.UserID)
	return e, nil
}

func (s *Service) Edit(ctx context.Context, in EditInput) (*models.Entry, error) {
	e, err := s.repo.Get(ctx, in.GuildID, in.EntryID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Authorize(ctx, in.GuildID, in.ActorID, e.UserID, access.IntentManageForOther); err != nil {
		return nil, err
	}

	override := ""
	if in.TimezoneOverride != nil {
		override = strings.TrimSpace(*in.TimezoneOverride)
	}
	res, err := s.resolver.Resolve(ctx, in.GuildID, e.UserID, override)
	if err != nil {
		return nil, err
	}

	leave, ret, err := s.editInstants(e, in, res.Location)
	if err != nil {
		return nil, err
	}

	if err := s.checkCandidate(ctx, in.GuildID, e.UserID, leave, ret, e.ID); err != nil {
		return nil, err
	}

	e.LeaveAt = leave
	e.ReturnAt = ret
	if in.Reason != nil && strings.TrimSpace(*in.Reason) != "" {
		e.Reason = strings.TrimSpace(*in.Reason)
	}
	switch {
	case res.Source == tz.SourceOverride:
		e.TimezoneLabel = res.Label()
	case e.TimezoneLabel == "":
		e.TimezoneLabel = "Server Timezone: " + res.Zone
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "entry edited", "guild", e.GuildID, "user", e.UserID, "id", e.ID, "actor", in.ActorID)
	s.notifier.Notify(ctx, e.GuildID, e.UserID)
	return e, nil
}

// ReturnEarly ends an active entry now.
func (s *Service) ReturnEarly(ctx context.Context, guildID string, entryID int64, actorID string) (*models.Entry, error) {
	e, err := s.repo.Get(ctx, guildID, entryID)
	if err != nil {
		return nil, err
	}

	if err := s.auth.Authorize(ctx, guildID, actorID, e.UserID, access.IntentManageForOther); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if state := e.StateAt(now); state != models.StateActive {
		return nil, fmt.Errorf("%w: entry %d is %s", common.ErrNotActive, e.ID, state)
	}

	if err := s.repo.SetReturn(ctx, guildID, e.ID, now); err != nil {
		return nil, err
	}
	e.ReturnAt = &now

	s.log.Info(ctx, "entry returned early", "guild", guildID, "user", e.UserID, "id", e.ID, "actor", actorID)
	s.notifier.Notify(ctx, guildID, e.UserID)
	return e, nil
}

// Cancel deletes the entry whatever its state.
func (s *Service) Cancel(ctx context.Context, guildID string, entryID int64, actorID string) error {
	e, err := s.repo.Get(ctx, guildID, entryID)
	if err != nil {
		return err
	}

	if err := s.auth.Authorize(ctx, guildID, actorID, e.UserID, access.IntentManageForOther); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, guildID, e.ID); err != nil {
		return err
	}

	s.log.Info(ctx, "entry cancelled", "guild", guildID, "user", e.UserID, "id", e.ID, "actor", actorID)
	s.notifier.Notify(ctx, guildID, e.UserID)
	return nil
}

// List returns a user's entries, leave ascending.
func (s *Service) List(ctx context.Context, guildID, userID string) ([]*models.Entry, error) {
	return s.repo.ListByUser(ctx, guildID, userID)
}

func (s *Service) checkCandidate(ctx context.Context, guildID, userID string, leave time.Time, ret *time.Time, excludeID int64) error {
	if ret != nil && ret.Before(leave) {
		return fmt.Errorf("%w: return %s is before leave %s", common.ErrInvalidRange,
			ret.Format(time.RFC3339), leave.Format(time.RFC3339))
	}

	existing, err := s.repo.ListByUser(ctx, guildID, userID)
	if err != nil {
		return err
	}

	if c := overlap.Conflicts(existing, leave, ret, excludeID, s.clock.Now()); c != nil {
		return &common.ConflictError{EntryID: c.ID, LeaveAt: c.LeaveAt, ReturnAt: c.ReturnAt, Reason: c.Reason}
	}
	return nil
}

// IsUserError reports whether err is caused by the caller's input or
// permissions rather than by storage or the platform.
func IsUserError(err error) bool {
	for _, target := range []error{
		common.ErrParse, common.ErrConflict, common.ErrInvalidRange,
		common.ErrNotActive, common.ErrForbidden, common.ErrorNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

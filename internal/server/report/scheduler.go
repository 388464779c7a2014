package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/server/tz"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

type EntrySource interface {
	ListByGuild(ctx context.Context, guildID string) ([]*models.Entry, error)
}

type SettingsStore interface {
	ListReportEnabled(ctx context.Context) ([]*models.GuildSettings, error)
	MarkReportSent(ctx context.Context, guildID string, at time.Time) error
}

type Locator interface {
	ServerLocation(ctx context.Context, guildID string) (tz.Resolution, error)
}

type Recorder interface {
	ReportSent()
}

// Scheduler posts each enabled guild's digest once per day at the guild's
// configured local hour.
type Scheduler struct {
	entries  EntrySource
	settings SettingsStore
	locator  Locator
	platform platform.Client
	clock    timex.Clock
	horizon  time.Duration
	log      logging.Logger
	recorder Recorder
}

func NewScheduler(entries EntrySource, settings SettingsStore, locator Locator, p platform.Client, clock timex.Clock, horizon time.Duration, logger logging.Logger, recorder Recorder) *Scheduler {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Scheduler{
		entries:  entries,
		settings: settings,
		locator:  locator,
		platform: p,
		clock:    clock,
		horizon:  horizon,
		log:      logger.With("module", "report"),
		recorder: recorder,
	}
}

// Check sends the digest to every guild whose report hour is now and which
// has not received one in this local hour. Per-guild failures are logged.
func (s *Scheduler) Check(ctx context.Context) error {
	guilds, err := s.settings.ListReportEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list report guilds: %w", err)
	}

	now := s.clock.Now()
	for _, gs := range guilds {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.checkGuild(ctx, gs, now); err != nil {
			s.log.Error(ctx, "daily report failed", "guild", gs.GuildID, "error", err)
		}
	}
	return nil
}

func (s *Scheduler) checkGuild(ctx context.Context, gs *models.GuildSettings, now time.Time) error {
	res, err := s.locator.ServerLocation(ctx, gs.GuildID)
	if err != nil {
		return err
	}

	local := now.In(res.Location)
	if local.Hour() != gs.Report.Hour {
		return nil
	}
	if gs.Report.LastSentAt != nil && sameHour(gs.Report.LastSentAt.In(res.Location), local) {
		return nil
	}

	channel := gs.ReportChannel()
	if channel == "" {
		s.log.Warn(ctx, "no channel configured for daily report", "guild", gs.GuildID)
		return nil
	}

	content, err := s.build(ctx, gs.GuildID, res.Location, now)
	if err != nil {
		return err
	}
	if err := s.platform.SendMessage(ctx, channel, content); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := s.settings.MarkReportSent(ctx, gs.GuildID, now); err != nil {
		return err
	}

	if s.recorder != nil {
		s.recorder.ReportSent()
	}
	s.log.Info(ctx, "daily report sent", "guild", gs.GuildID, "channel", channel)
	return nil
}

// Preview renders the digest a guild would receive now.
func (s *Scheduler) Preview(ctx context.Context, guildID string) (string, error) {
	res, err := s.locator.ServerLocation(ctx, guildID)
	if err != nil {
		return "", err
	}
	return s.build(ctx, guildID, res.Location, s.clock.Now())
}

// Export writes every entry of the guild as CSV in the server timezone.
func (s *Scheduler) Export(ctx context.Context, guildID string, w io.Writer) error {
	res, err := s.locator.ServerLocation(ctx, guildID)
	if err != nil {
		return err
	}
	list, err := s.entries.ListByGuild(ctx, guildID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(list)*2)
	for _, e := range list {
		ids = append(ids, e.UserID)
		if e.CreatedBy != nil {
			ids = append(ids, *e.CreatedBy)
		}
	}
	return ExportCSV(w, list, s.members(ctx, guildID, ids), res.Location, s.clock.Now())
}

func (s *Scheduler) build(ctx context.Context, guildID string, loc *time.Location, now time.Time) (string, error) {
	list, err := s.entries.ListByGuild(ctx, guildID)
	if err != nil {
		return "", err
	}

	selected := Window(list, now, s.horizon)
	ids := make([]string, 0, len(selected))
	for _, e := range selected {
		ids = append(ids, e.UserID)
	}
	return Render(selected, s.members(ctx, guildID, ids), loc, s.horizon), nil
}

// members looks up each distinct user once. Users who left the guild, or
// whose lookup failed, are simply absent.
func (s *Scheduler) members(ctx context.Context, guildID string, ids []string) Members {
	sort.Strings(ids)
	out := make(Members, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		m, err := s.platform.Member(ctx, guildID, id)
		if err != nil {
			if !errors.Is(err, platform.ErrMemberNotFound) {
				s.log.Warn(ctx, "member lookup failed", "guild", guildID, "user", id, "error", err)
			}
			continue
		}
		out[id] = m
	}
	return out
}

func sameHour(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay() && a.Hour() == b.Hour()
}

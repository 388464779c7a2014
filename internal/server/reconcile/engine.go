// Package reconcile converges the platform's away role and nickname marker
// to the set of members whose entries are active now.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/awaykeeper/internal/logging"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
	"github.com/google/uuid"
)

const (
	DefaultCallTimeout       = 10 * time.Second
	DefaultNicknameMaxLength = 32
)

// EntrySource lists a guild's entries.
type EntrySource interface {
	ListByGuild(ctx context.Context, guildID string) ([]*models.Entry, error)
	ListByUser(ctx context.Context, guildID, userID string) ([]*models.Entry, error)
}

type SettingsSource interface {
	GetGuild(ctx context.Context, guildID string) (*models.GuildSettings, error)
	ListWithAwayRole(ctx context.Context) ([]*models.GuildSettings, error)
}

// Recorder receives pass totals.
type Recorder interface {
	ReconcilePass(added, removed, renamed, failures, skipped int)
}

// Summary counts what one pass did.
type Summary struct {
	Added    int
	Removed  int
	Renamed  int
	Failures int
	Skipped  int
}

func (s *Summary) add(o Summary) {
	s.Added += o.Added
	s.Removed += o.Removed
	s.Renamed += o.Renamed
	s.Failures += o.Failures
	s.Skipped += o.Skipped
}

// Writes is the number of successful external mutations.
func (s Summary) Writes() int { return s.Added + s.Removed + s.Renamed }

type Options struct {
	CallTimeout       time.Duration
	NicknameMaxLength int
	Recorder          Recorder
}

type Engine struct {
	entries  EntrySource
	settings SettingsSource
	platform platform.Client
	clock    timex.Clock
	log      logging.Logger
	recorder Recorder

	callTimeout time.Duration
	maxNick     int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	queue *queue
}

func NewEngine(entries EntrySource, settings SettingsSource, p platform.Client, clock timex.Clock, logger logging.Logger, opts Options) *Engine {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.NicknameMaxLength <= 0 {
		opts.NicknameMaxLength = DefaultNicknameMaxLength
	}
	return &Engine{
		entries:     entries,
		settings:    settings,
		platform:    p,
		clock:       clock,
		log:         logger.With("module", "reconcile"),
		recorder:    opts.Recorder,
		callTimeout: opts.CallTimeout,
		maxNick:     opts.NicknameMaxLength,
		locks:       make(map[string]*sync.Mutex),
		queue:       newQueue(),
	}
}

// ReconcileAll runs a guild pass for every guild with an away role.
func (e *Engine) ReconcileAll(ctx context.Context) Summary {
	var total Summary

	guilds, err := e.settings.ListWithAwayRole(ctx)
	if err != nil {
		e.log.Error(ctx, "list guilds failed", "error", err)
		total.Failures++
		e.record(total)
		return total
	}

	for _, gs := range guilds {
		if ctx.Err() != nil {
			break
		}
		total.add(e.reconcileGuild(ctx, gs))
	}

	e.record(total)
	return total
}

// ReconcileGuild aligns every member of one guild.
func (e *Engine) ReconcileGuild(ctx context.Context, guildID string) Summary {
	gs, err := e.settings.GetGuild(ctx, guildID)
	if err != nil {
		e.log.Error(ctx, "guild settings failed", "guild", guildID, "error", err)
		return Summary{Failures: 1}
	}
	s := e.reconcileGuild(ctx, gs)
	e.record(s)
	return s
}

func (e *Engine) reconcileGuild(ctx context.Context, gs *models.GuildSettings) Summary {
	var sum Summary
	if gs.AwayRoleID == "" {
		return sum
	}

	unlock := e.lock(gs.GuildID)
	defer unlock()

	log := e.log.With("guild", gs.GuildID, "pass", uuid.NewString())
	now := e.clock.Now()

	list, err := e.entries.ListByGuild(ctx, gs.GuildID)
	if err != nil {
		log.Error(ctx, "list entries failed", "error", err)
		sum.Failures++
		return sum
	}

	should := make(map[string]bool)
	for _, en := range list {
		if !en.Valid() {
			sum.Skipped++
			log.Warn(ctx, "skipping entry with unusable timestamps", "id", en.ID)
			continue
		}
		if en.ActiveAt(now) {
			should[en.UserID] = true
		}
	}

	callCtx, cancel := e.callCtx(ctx)
	holders, err := e.platform.MembersWithRole(callCtx, gs.GuildID, gs.AwayRoleID)
	cancel()
	if err != nil {
		log.Error(ctx, "list role holders failed", "error", err)
		sum.Failures++
		return sum
	}

	has := make(map[string]bool, len(holders))
	for _, id := range holders {
		has[id] = true
	}

	users := make([]string, 0, len(should)+len(has))
	for id := range should {
		users = append(users, id)
	}
	for id := range has {
		if !should[id] {
			users = append(users, id)
		}
	}
	sort.Strings(users)

	for i, userID := range users {
		if ctx.Err() != nil {
			log.Info(ctx, "pass interrupted", "remaining", len(users)-i)
			break
		}
		sum.add(e.syncMember(ctx, log, gs, userID, should[userID], has[userID]))
	}

	if sum.Writes() > 0 || sum.Failures > 0 {
		log.Info(ctx, "guild pass finished",
			"added", sum.Added, "removed", sum.Removed, "renamed", sum.Renamed,
			"failures", sum.Failures, "skipped", sum.Skipped)
	}
	return sum
}

// ReconcileUser aligns a single member of a guild.
func (e *Engine) ReconcileUser(ctx context.Context, guildID, userID string) Summary {
	var sum Summary

	gs, err := e.settings.GetGuild(ctx, guildID)
	if err != nil {
		e.log.Error(ctx, "guild settings failed", "guild", guildID, "error", err)
		sum.Failures++
		return sum
	}
	if gs.AwayRoleID == "" {
		return sum
	}

	unlock := e.lock(guildID)
	defer unlock()

	log := e.log.With("guild", guildID, "user", userID, "pass", uuid.NewString())
	now := e.clock.Now()

	list, err := e.entries.ListByUser(ctx, guildID, userID)
	if err != nil {
		log.Error(ctx, "list entries failed", "error", err)
		sum.Failures++
		return sum
	}

	should := false
	for _, en := range list {
		if !en.Valid() {
			sum.Skipped++
			continue
		}
		if en.ActiveAt(now) {
			should = true
		}
	}

	callCtx, cancel := e.callCtx(ctx)
	m, err := e.platform.Member(callCtx, guildID, userID)
	cancel()
	if errors.Is(err, platform.ErrMemberNotFound) {
		sum.Skipped++
		return sum
	}
	if err != nil {
		log.Error(ctx, "member lookup failed", "error", err)
		sum.Failures++
		return sum
	}

	sum.add(e.apply(ctx, log, gs, m, should, m.HasRole(gs.AwayRoleID)))
	e.record(sum)
	return sum
}

func (e *Engine) syncMember(ctx context.Context, log logging.Logger, gs *models.GuildSettings, userID string, should, has bool) Summary {
	callCtx, cancel := e.callCtx(ctx)
	m, err := e.platform.Member(callCtx, gs.GuildID, userID)
	cancel()
	if errors.Is(err, platform.ErrMemberNotFound) {
		log.Debug(ctx, "member left the guild", "user", userID)
		return Summary{Skipped: 1}
	}
	if err != nil {
		log.Error(ctx, "member lookup failed", "user", userID, "error", err)
		return Summary{Failures: 1}
	}
	return e.apply(ctx, log, gs, m, should, has)
}

func (e *Engine) apply(ctx context.Context, log logging.Logger, gs *models.GuildSettings, m *platform.Member, should, has bool) Summary {
	var sum Summary
	prefix := gs.Prefix()

	switch {
	case should && !has:
		hadRole := m.HasRole(gs.AwayRoleID)
		if !hadRole {
			callCtx, cancel := e.callCtx(ctx)
			err := e.platform.AddRole(callCtx, gs.GuildID, m.UserID, gs.AwayRoleID)
			cancel()
			if err != nil {
				log.Error(ctx, "add role failed", "user", m.UserID, "error", err)
				sum.Failures++
				return sum
			}
			sum.Added++
		}
		sum.add(e.mark(ctx, log, gs.GuildID, m, prefix, hadRole))

	case should && has:
		if !strings.HasPrefix(m.DisplayName(), prefix) {
			sum.add(e.mark(ctx, log, gs.GuildID, m, prefix, true))
		}

	case !should && has:
		// the role goes last: while it is held the member is revisited,
		// so a failed unmark is retried next pass
		sum.add(e.unmark(ctx, log, gs.GuildID, m, prefix))
		if sum.Failures > 0 {
			return sum
		}
		callCtx, cancel := e.callCtx(ctx)
		err := e.platform.RemoveRole(callCtx, gs.GuildID, m.UserID, gs.AwayRoleID)
		cancel()
		if err != nil {
			log.Error(ctx, "remove role failed", "user", m.UserID, "error", err)
			sum.Failures++
			return sum
		}
		sum.Removed++
	}

	return sum
}

// mark prepends the marker to the display name. Existing markers are stripped
// first only when the member already carried the role; otherwise a name that
// already starts with the marker is left as it is.
func (e *Engine) mark(ctx context.Context, log logging.Logger, guildID string, m *platform.Member, prefix string, hadRole bool) Summary {
	current := m.DisplayName()
	if hadRole {
		current = stripMarker(current, prefix)
	} else if strings.HasPrefix(current, prefix) {
		return Summary{}
	}

	nick := prefix + " " + current
	if nick == m.Nick {
		return Summary{}
	}
	if utf8.RuneCountInString(nick) > e.maxNick {
		log.Warn(ctx, "marked nickname too long, leaving name unchanged", "user", m.UserID, "length", utf8.RuneCountInString(nick))
		return Summary{Skipped: 1}
	}

	return e.rename(ctx, log, guildID, m, nick)
}

func (e *Engine) unmark(ctx context.Context, log logging.Logger, guildID string, m *platform.Member, prefix string) Summary {
	current := m.DisplayName()
	if !strings.HasPrefix(current, prefix) {
		return Summary{}
	}
	return e.rename(ctx, log, guildID, m, strings.TrimLeft(current[len(prefix):], " "))
}

func (e *Engine) rename(ctx context.Context, log logging.Logger, guildID string, m *platform.Member, nick string) Summary {
	callCtx, cancel := e.callCtx(ctx)
	err := e.platform.SetNickname(callCtx, guildID, m.UserID, nick)
	cancel()
	if err != nil {
		log.Error(ctx, "set nickname failed", "user", m.UserID, "error", err)
		return Summary{Failures: 1}
	}
	return Summary{Renamed: 1}
}

func stripMarker(name, prefix string) string {
	for strings.HasPrefix(name, prefix) {
		name = strings.TrimLeft(name[len(prefix):], " ")
	}
	return name
}

// callCtx detaches external calls from caller cancellation so a started
// mutation is not abandoned halfway, bounded by the call timeout.
func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.callTimeout)
}

func (e *Engine) lock(guildID string) func() {
	e.locksMu.Lock()
	mu, ok := e.locks[guildID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[guildID] = mu
	}
	e.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (e *Engine) record(s Summary) {
	if e.recorder != nil {
		e.recorder.ReconcilePass(s.Added, s.Removed, s.Renamed, s.Failures, s.Skipped)
	}
}

// Notify queues a single-member pass. It never blocks; repeated requests for
// the same member coalesce until Run picks them up.
func (e *Engine) Notify(_ context.Context, guildID, userID string) {
	e.queue.add(request{guildID: guildID, userID: userID})
}

// Run drains queued member passes until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	for {
		r, ok := e.queue.get(ctx)
		if !ok {
			return nil
		}
		e.ReconcileUser(ctx, r.guildID, r.userID)
	}
}

// Immediate runs the member pass synchronously. Used by one-shot commands
// that exit before a queue would drain.
type Immediate struct {
	Engine *Engine
}

func (i Immediate) Notify(ctx context.Context, guildID, userID string) {
	i.Engine.ReconcileUser(ctx, guildID, userID)
}

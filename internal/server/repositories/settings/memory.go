package settings

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

type userKey struct{ guildID, userID string }

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu     sync.Mutex
	guilds map[string]models.GuildSettings
	zones  map[userKey]string
	roles  map[string][]string
	users  map[string][]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		guilds: make(map[string]models.GuildSettings),
		zones:  make(map[userKey]string),
		roles:  make(map[string][]string),
		users:  make(map[string][]string),
	}
}

func (r *MemoryRepository) GetGuild(ctx context.Context, guildID string) (*models.GuildSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.guilds[guildID]
	if !ok {
		return models.DefaultGuildSettings(guildID), nil
	}
	return cloneGuild(s), nil
}

func (r *MemoryRepository) UpsertGuild(ctx context.Context, s *models.GuildSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *cloneGuild(*s)
	c.NicknamePrefix = s.Prefix()
	r.guilds[s.GuildID] = c
	return nil
}

func (r *MemoryRepository) ListWithAwayRole(ctx context.Context) ([]*models.GuildSettings, error) {
	return r.listGuilds(func(s models.GuildSettings) bool { return s.AwayRoleID != "" }), nil
}

func (r *MemoryRepository) ListReportEnabled(ctx context.Context) ([]*models.GuildSettings, error) {
	return r.listGuilds(func(s models.GuildSettings) bool { return s.Report.Enabled }), nil
}

func (r *MemoryRepository) MarkReportSent(ctx context.Context, guildID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.guilds[guildID]
	if !ok {
		return common.ErrorNotFound
	}
	s.Report.LastSentAt = &at
	r.guilds[guildID] = s
	return nil
}

func (r *MemoryRepository) GetUserTimezone(ctx context.Context, guildID, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	zone, ok := r.zones[userKey{guildID, userID}]
	if !ok {
		return "", common.ErrorNotFound
	}
	return zone, nil
}

func (r *MemoryRepository) SetUserTimezone(ctx context.Context, guildID, userID, zone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[userKey{guildID, userID}] = zone
	return nil
}

func (r *MemoryRepository) ClearUserTimezone(ctx context.Context, guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.zones, userKey{guildID, userID})
	return nil
}

func (r *MemoryRepository) Grants(ctx context.Context, guildID string) (*models.LeadershipGrants, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &models.LeadershipGrants{
		RoleIDs: slices.Clone(r.roles[guildID]),
		UserIDs: slices.Clone(r.users[guildID]),
	}, nil
}

func (r *MemoryRepository) AddRoleGrant(ctx context.Context, guildID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[guildID] = addSorted(r.roles[guildID], roleID)
	return nil
}

func (r *MemoryRepository) RemoveRoleGrant(ctx context.Context, guildID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[guildID] = remove(r.roles[guildID], roleID)
	return nil
}

func (r *MemoryRepository) AddUserGrant(ctx context.Context, guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[guildID] = addSorted(r.users[guildID], userID)
	return nil
}

func (r *MemoryRepository) RemoveUserGrant(ctx context.Context, guildID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[guildID] = remove(r.users[guildID], userID)
	return nil
}

func (r *MemoryRepository) listGuilds(keep func(models.GuildSettings) bool) []*models.GuildSettings {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.GuildSettings
	for _, s := range r.guilds {
		if keep(s) {
			out = append(out, cloneGuild(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}

func cloneGuild(s models.GuildSettings) *models.GuildSettings {
	if s.Report.LastSentAt != nil {
		t := *s.Report.LastSentAt
		s.Report.LastSentAt = &t
	}
	return &s
}

func addSorted(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	list = append(list, v)
	slices.Sort(list)
	return list
}

func remove(list []string, v string) []string {
	return slices.DeleteFunc(list, func(s string) bool { return s == v })
}

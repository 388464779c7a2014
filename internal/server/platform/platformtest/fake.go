// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
)

type Message struct {
	ChannelID string
	Content   string
}

// Fake keeps members per guild. Errors can be injected per
// operation and user; Writes counts successful mutations.
type Fake struct {
	mu       sync.Mutex
	members  map[string]map[string]*platform.Member
	admins   map[string]bool
	Messages []Message
	Writes   int

	// FailAddRole etc. make the named user's call fail.
	FailAddRole     map[string]error
	FailRemoveRole  map[string]error
	FailSetNickname map[string]error
	FailMember      map[string]error
	FailList        error
	FailSend        error
}

func NewFake() *Fake {
	return &Fake{
		members:         make(map[string]map[string]*platform.Member),
		admins:          make(map[string]bool),
		FailAddRole:     make(map[string]error),
		FailRemoveRole:  make(map[string]error),
		FailSetNickname: make(map[string]error),
		FailMember:      make(map[string]error),
	}
}

// AddMember registers a member of guildID.
func (f *Fake) AddMember(guildID string, m platform.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[guildID] == nil {
		f.members[guildID] = make(map[string]*platform.Member)
	}
	c := m
	c.RoleIDs = slices.Clone(m.RoleIDs)
	f.members[guildID][m.UserID] = &c
}

// SetAdmin marks userID as a platform administrator.
func (f *Fake) SetAdmin(userID string, admin bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins[userID] = admin
}

// Get returns a copy of the stored member, or nil.
func (f *Fake) Get(guildID, userID string) *platform.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[guildID][userID]
	if !ok {
		return nil
	}
	c := *m
	c.RoleIDs = slices.Clone(m.RoleIDs)
	return &c
}

// WriteCount returns Writes under the lock.
func (f *Fake) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Writes
}

func (f *Fake) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	f.mu.Lock()
	err := f.FailMember[userID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	m := f.Get(guildID, userID)
	if m == nil {
		return nil, platform.ErrMemberNotFound
	}
	return m, nil
}

func (f *Fake) MembersWithRole(ctx context.Context, guildID, roleID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailList != nil {
		return nil, f.FailList
	}
	var out []string
	for id, m := range f.members[guildID] {
		if m.HasRole(roleID) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *Fake) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailAddRole[userID]; err != nil {
		return err
	}
	m, ok := f.members[guildID][userID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	if !m.HasRole(roleID) {
		m.RoleIDs = append(m.RoleIDs, roleID)
	}
	f.Writes++
	return nil
}

func (f *Fake) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailRemoveRole[userID]; err != nil {
		return err
	}
	m, ok := f.members[guildID][userID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	m.RoleIDs = slices.DeleteFunc(m.RoleIDs, func(r string) bool { return r == roleID })
	f.Writes++
	return nil
}

func (f *Fake) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailSetNickname[userID]; err != nil {
		return err
	}
	m, ok := f.members[guildID][userID]
	if !ok {
		return platform.ErrMemberNotFound
	}
	m.Nick = nick
	f.Writes++
	return nil
}

func (f *Fake) IsAdministrator(ctx context.Context, guildID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[userID], nil
}

func (f *Fake) SendMessage(ctx context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSend != nil {
		return f.FailSend
	}
	f.Messages = append(f.Messages, Message{ChannelID: channelID, Content: content})
	return nil
}

var _ platform.Client = (*Fake)(nil)

package tz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

// Source tells which precedence level produced a zone.
type Source int

const (
	SourceOverride Source = iota
	SourceUser
	SourceServer
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceUser:
		return "user"
	case SourceServer:
		return "server"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of a cascade lookup.
type Resolution struct {
	Zone     string
	Source   Source
	Location *time.Location
}

// Label is the display string stored on entries.
func (r Resolution) Label() string {
	switch r.Source {
	case SourceOverride:
		return "Overridden Timezone: " + r.Zone
	case SourceUser:
		return "User Timezone: " + r.Zone
	default:
		return "Server Timezone: " + r.Zone
	}
}

// Store is the read side of the settings repository used by the resolver.
type Store interface {
	GetGuild(ctx context.Context, guildID string) (*models.GuildSettings, error)
	// GetUserTimezone returns common.ErrorNotFound when the user has none.
	GetUserTimezone(ctx context.Context, guildID, userID string) (string, error)
}

// Resolver walks the precedence cascade. Invalid text at any level is
// treated as absent.
type Resolver struct {
	store    Store
	fallback Resolution
}

// NewResolver returns a resolver with the given fallback zone. An empty or
// invalid fallback is replaced by DefaultFallback.
func NewResolver(store Store, fallback string) *Resolver {
	res, ok := resolution(fallback, SourceServer)
	if !ok {
		res, ok = resolution(DefaultFallback, SourceServer)
	}
	if !ok {
		res = Resolution{Zone: "UTC", Source: SourceServer, Location: time.UTC}
	}
	return &Resolver{store: store, fallback: res}
}

// Resolve returns the effective zone for (guild, user, override).
func (r *Resolver) Resolve(ctx context.Context, guildID, userID, override string) (Resolution, error) {
	if res, ok := resolution(override, SourceOverride); ok {
		return res, nil
	}

	if userID != "" {
		stored, err := r.store.GetUserTimezone(ctx, guildID, userID)
		switch {
		case err == nil:
			if res, ok := resolution(stored, SourceUser); ok {
				return res, nil
			}
		case errors.Is(err, common.ErrorNotFound):
		default:
			return Resolution{}, fmt.Errorf("user timezone: %w", err)
		}
	}

	return r.ServerLocation(ctx, guildID)
}

// ServerLocation resolves only the guild level and the fallback.
func (r *Resolver) ServerLocation(ctx context.Context, guildID string) (Resolution, error) {
	gs, err := r.store.GetGuild(ctx, guildID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return Resolution{}, fmt.Errorf("guild settings: %w", err)
	}
	if gs != nil {
		if res, ok := resolution(gs.ServerTimezone, SourceServer); ok {
			return res, nil
		}
	}
	return r.fallback, nil
}

// Fallback returns the last level of the cascade.
func (r *Resolver) Fallback() Resolution { return r.fallback }

func resolution(text string, src Source) (Resolution, bool) {
	zone, ok := Normalize(text)
	if !ok {
		return Resolution{}, false
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Resolution{}, false
	}
	return Resolution{Zone: zone, Source: src, Location: loc}, true
}

package entries

import (
	"context"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

// Repository stores away entries. Lookups and deletes are scoped by guild so
// one guild can never touch another guild's entries.
type Repository interface {
	// Create inserts e and sets e.ID and e.CreatedAt.
	Create(ctx context.Context, e *models.Entry) error
	Get(ctx context.Context, guildID string, id int64) (*models.Entry, error)
	// ListByUser returns the user's entries ordered by leave ascending.
	ListByUser(ctx context.Context, guildID, userID string) ([]*models.Entry, error)
	// ListByGuild returns all entries of the guild ordered by leave ascending.
	ListByGuild(ctx context.Context, guildID string) ([]*models.Entry, error)
	// Update rewrites the mutable fields: leave, return, reason, label.
	Update(ctx context.Context, e *models.Entry) error
	SetReturn(ctx context.Context, guildID string, id int64, ret time.Time) error
	Delete(ctx context.Context, guildID string, id int64) error
	// DeleteReturnedBefore removes entries whose return is set and earlier
	// than cutoff, across all guilds, and reports how many went.
	DeleteReturnedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

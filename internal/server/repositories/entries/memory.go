package entries

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/common"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

// MemoryRepository keeps entries in a map. Returned entries are copies, so
// callers can't mutate stored state.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Entry
	clock  timex.Clock
}

func NewMemoryRepository(clock timex.Clock) *MemoryRepository {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &MemoryRepository{rows: make(map[int64]*models.Entry), clock: clock}
}

func (r *MemoryRepository) Create(ctx context.Context, e *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	e.ID = r.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.clock.Now()
	}
	r.rows[e.ID] = clone(e)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, guildID string, id int64) (*models.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[id]
	if !ok || e.GuildID != guildID {
		return nil, common.ErrorNotFound
	}
	return clone(e), nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, guildID, userID string) ([]*models.Entry, error) {
	return r.filter(func(e *models.Entry) bool { return e.GuildID == guildID && e.UserID == userID }), nil
}

func (r *MemoryRepository) ListByGuild(ctx context.Context, guildID string) ([]*models.Entry, error) {
	return r.filter(func(e *models.Entry) bool { return e.GuildID == guildID }), nil
}

func (r *MemoryRepository) Update(ctx context.Context, e *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[e.ID]
	if !ok || cur.GuildID != e.GuildID {
		return common.ErrorNotFound
	}
	cur.LeaveAt = e.LeaveAt
	cur.ReturnAt = cloneTime(e.ReturnAt)
	cur.Reason = e.Reason
	cur.TimezoneLabel = e.TimezoneLabel
	return nil
}

func (r *MemoryRepository) SetReturn(ctx context.Context, guildID string, id int64, ret time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[id]
	if !ok || cur.GuildID != guildID {
		return common.ErrorNotFound
	}
	cur.ReturnAt = &ret
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, guildID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[id]
	if !ok || cur.GuildID != guildID {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepository) DeleteReturnedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, e := range r.rows {
		if e.ReturnAt != nil && e.ReturnAt.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) filter(keep func(*models.Entry) bool) []*models.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.Entry
	for _, e := range r.rows {
		if keep(e) {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LeaveAt.Equal(out[j].LeaveAt) {
			return out[i].LeaveAt.Before(out[j].LeaveAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clone(e *models.Entry) *models.Entry {
	c := *e
	c.ReturnAt = cloneTime(e.ReturnAt)
	if e.CreatedBy != nil {
		v := *e.CreatedBy
		c.CreatedBy = &v
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

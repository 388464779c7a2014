// Package report builds the daily digest of active and upcoming entries and
// posts it to each guild at its configured local hour.
package report

import (
	"sort"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

const DefaultHorizon = 7 * 24 * time.Hour

// Window returns the entries that are active at now or start within horizon,
// ordered by leave instant. Entries that ended before now are excluded; a
// return equal to now still counts.
func Window(entries []*models.Entry, now time.Time, horizon time.Duration) []*models.Entry {
	end := now.Add(horizon)

	out := make([]*models.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Valid() || e.LeaveAt.After(end) || e.EndedAt(now) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LeaveAt.Equal(out[j].LeaveAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].LeaveAt.Before(out[j].LeaveAt)
	})
	return out
}

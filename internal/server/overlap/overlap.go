// Package overlap decides whether a candidate away interval collides with a
// user's live entries.
package overlap

import (
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
)

// Conflicts returns the first entry in existing that overlaps
// [leave, ret], or nil. A nil ret is treated as +infinity. Boundaries
// touch-overlap. Entries already ended at now, invalid entries and the
// entry with ID excludeID (0 = none) are ignored.
func Conflicts(existing []*models.Entry, leave time.Time, ret *time.Time, excludeID int64, now time.Time) *models.Entry {
	for _, e := range existing {
		if !e.Valid() {
			continue
		}
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if e.EndedAt(now) {
			continue
		}
		if intervalsOverlap(leave, ret, e.LeaveAt, e.ReturnAt) {
			return e
		}
	}
	return nil
}

// intervalsOverlap reports s1 <= e2 && s2 <= e1 with nil ends unbounded.
func intervalsOverlap(s1 time.Time, e1 *time.Time, s2 time.Time, e2 *time.Time) bool {
	return notAfter(s1, e2) && notAfter(s2, e1)
}

func notAfter(t time.Time, end *time.Time) bool {
	return end == nil || !t.After(*end)
}

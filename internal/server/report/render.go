package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/dmitrijs2005/awaykeeper/internal/server/platform"
)

const (
	header       = "📊 **Daily CMI Report**"
	stampLayout  = "02/01/2006 15:04"
	openEnded    = "Until further notice"
	noReasonText = "No reason provided"
)

// Members maps user ids to the members still in the guild.
type Members map[string]*platform.Member

func (m Members) display(userID string) string {
	if mem, ok := m[userID]; ok && mem != nil {
		return fmt.Sprintf("%s (@%s)", mem.DisplayName(), mem.Username)
	}
	return "User ID: " + userID
}

// Render formats the digest for entries already selected by Window. Instants
// are shown in loc.
func Render(entries []*models.Entry, members Members, loc *time.Location, horizon time.Duration) string {
	days := int(horizon / (24 * time.Hour))
	if len(entries) == 0 {
		return fmt.Sprintf("%s\n\nNo active or upcoming CMIs for the next %d days.", header, days)
	}

	lines := []string{
		header,
		fmt.Sprintf("Showing CMIs active or starting within the next %d days.\n", days),
	}
	for _, e := range entries {
		end := openEnded
		if e.ReturnAt != nil {
			end = e.ReturnAt.In(loc).Format(stampLayout)
		}
		reason := e.Reason
		if reason == "" {
			reason = noReasonText
		}
		lines = append(lines,
			fmt.Sprintf("• %s: %s → %s", members.display(e.UserID), e.LeaveAt.In(loc).Format(stampLayout), end),
			"  *Reason:* "+reason,
		)
	}
	return strings.Join(lines, "\n")
}

var statusLabels = map[models.State]string{
	models.StateScheduled: "Scheduled",
	models.StateActive:    "Active",
	models.StateCompleted: "Completed",
}

var exportHeader = []string{
	"User ID", "Username", "Leave Date/Time", "Return Date/Time", "Reason",
	"Status", "Timezone", "Created Date", "Days Away", "Created By",
}

// ExportCSV writes every entry as a spreadsheet row, newest leave first.
func ExportCSV(w io.Writer, entries []*models.Entry, members Members, loc *time.Location, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.Valid() {
			continue
		}

		username := fmt.Sprintf("Unknown User (%s)", e.UserID)
		if m, ok := members[e.UserID]; ok && m != nil {
			username = m.Username
		}

		end, days := "Indefinite", "Indefinite"
		if e.ReturnAt != nil {
			end = e.ReturnAt.In(loc).Format(stampLayout)
			days = strconv.Itoa(int(e.ReturnAt.Sub(e.LeaveAt) / (24 * time.Hour)))
		}

		// The leading quote keeps spreadsheets from reading snowflakes as numbers.
		row := []string{
			"'" + e.UserID,
			username,
			e.LeaveAt.In(loc).Format(stampLayout),
			end,
			e.Reason,
			statusLabels[e.StateAt(now)],
			e.TimezoneLabel,
			e.CreatedAt.In(loc).Format(stampLayout),
			days,
			createdBy(e, members),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func createdBy(e *models.Entry, members Members) string {
	switch {
	case e.CreatedBy == nil:
		return "Unknown (created before tracking)"
	case *e.CreatedBy == e.UserID:
		return "Self"
	}
	if m, ok := members[*e.CreatedBy]; ok && m != nil {
		return m.Username
	}
	return fmt.Sprintf("Unknown (%s)", *e.CreatedBy)
}

// Package dateparse turns the loose date and time strings people type
// ("tomorrow", "3 Mar", "9pm") into calendar values.
package dateparse

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

// Date is a calendar day without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// At combines the date with a time of day in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, loc)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// TimeOfDay is an hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Midnight is 00:00.
var Midnight = TimeOfDay{}

// ClockOf returns the time of day of t, truncated to the minute.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

var (
	yearLayouts = []string{
		"2006-1-2",
		"2/1/2006",
		"2-1-2006",
		"2 Jan 2006",
		"Jan 2 2006",
		"2 January 2006",
		"January 2 2006",
		"2 Jan 06",
		"Jan 2 06",
		"2 January 06",
		"January 2 06",
		"2/1/06",
		"2-1-06",
	}
	noYearLayouts = []string{
		"2 Jan",
		"Jan 2",
		"2 January",
		"January 2",
	}
	timeLayouts = []string{
		"15:04",
		"15",
		"3:04 pm",
		"3 pm",
	}
)

// Parser parses relative words against a clock.
type Parser struct {
	clock timex.Clock
}

func NewParser(clock timex.Clock) *Parser {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &Parser{clock: clock}
}

// ParseDate understands "today", "tomorrow" (in loc) and the numeric and
// month-name layouts above. A year-less date lands on the current year, or
// next year when that day has already passed in loc.
func (p *Parser) ParseDate(text string, loc *time.Location) (Date, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Date{}, false
	}

	now := timex.LocalNow(p.clock, loc)
	today := DateOf(now)

	switch strings.ToLower(text) {
	case "today":
		return today, true
	case "tomorrow":
		return DateOf(now.AddDate(0, 0, 1)), true
	}

	text = collapseSpaces(text)

	for _, layout := range yearLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return DateOf(t), true
		}
	}

	for _, layout := range noYearLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		d, ok := inYear(t.Month(), t.Day(), today.Year)
		if !ok {
			return Date{}, false
		}
		if d.Before(today) {
			if d, ok = inYear(t.Month(), t.Day(), today.Year+1); !ok {
				return Date{}, false
			}
		}
		return d, true
	}

	return Date{}, false
}

// ParseTime understands 24h "15:04" and "15", and 12h "3:04pm", "3pm" with or
// without a space before the suffix.
func (p *Parser) ParseTime(text string) (TimeOfDay, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return TimeOfDay{}, false
	}

	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(text, suffix) {
			text = strings.TrimSpace(strings.TrimSuffix(text, suffix)) + " " + suffix
			break
		}
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return ClockOf(t), true
		}
	}
	return TimeOfDay{}, false
}

// Today returns the current calendar day in loc.
func (p *Parser) Today(loc *time.Location) Date {
	return DateOf(timex.LocalNow(p.clock, loc))
}

// Now returns the clock's instant.
func (p *Parser) Now() time.Time { return p.clock.Now() }

// inYear rejects days that don't exist in year (29 Feb outside leap years).
func inYear(m time.Month, day, year int) (Date, bool) {
	t := time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != m || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: m, Day: day}, true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

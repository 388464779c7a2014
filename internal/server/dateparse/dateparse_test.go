package dateparse

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) (*Parser, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)
	// 2026-06-15 22:30 UTC is 2026-06-16 10:30 in Auckland (NZST, +12)
	clock := timex.NewFixedClock(time.Date(2026, 6, 15, 22, 30, 0, 0, time.UTC))
	return NewParser(clock), loc
}

func TestParseDate(t *testing.T) {
	p, loc := newTestParser(t)

	tests := []struct {
		in   string
		want Date
	}{
		{"today", Date{2026, time.June, 16}},
		{"TOMORROW", Date{2026, time.June, 17}},
		{"2026-07-01", Date{2026, time.July, 1}},
		{"2026-7-1", Date{2026, time.July, 1}},
		{"3/8/2026", Date{2026, time.August, 3}},
		{"03-08-2026", Date{2026, time.August, 3}},
		{"1 Jan 2027", Date{2027, time.January, 1}},
		{"jan 1 2027", Date{2027, time.January, 1}},
		{"5 september 2026", Date{2026, time.September, 5}},
		{"September 5 2026", Date{2026, time.September, 5}},
		{"1 Jan 27", Date{2027, time.January, 1}},
		{"01/01/27", Date{2027, time.January, 1}},
		{"20 dec", Date{2026, time.December, 20}},
		{"Dec 20", Date{2026, time.December, 20}},
		{"16 June", Date{2026, time.June, 16}},
		// already passed this year
		{"1 mar", Date{2027, time.March, 1}},
		{"  2  Jul  ", Date{2026, time.July, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := p.ParseDate(tt.in, loc)
			require.True(t, ok, "expected %q to parse", tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Rejects(t *testing.T) {
	p, loc := newTestParser(t)
	for _, in := range []string{"", "   ", "someday", "32/01/2026", "2026-13-01", "Smarch 3"} {
		_, ok := p.ParseDate(in, loc)
		assert.False(t, ok, "expected %q to be rejected", in)
	}
}

func TestParseTime(t *testing.T) {
	p, _ := newTestParser(t)

	tests := []struct {
		in   string
		want TimeOfDay
	}{
		{"15:04", TimeOfDay{15, 4}},
		{"9:30", TimeOfDay{9, 30}},
		{"7", TimeOfDay{7, 0}},
		{"23", TimeOfDay{23, 0}},
		{"9am", TimeOfDay{9, 0}},
		{"9 PM", TimeOfDay{21, 0}},
		{"3:15pm", TimeOfDay{15, 15}},
		{"12am", TimeOfDay{0, 0}},
		{"12 pm", TimeOfDay{12, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := p.ParseTime(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTime_Rejects(t *testing.T) {
	p, _ := newTestParser(t)
	for _, in := range []string{"", "noon", "25:00", "13pm", "9:7"} {
		_, ok := p.ParseTime(in)
		assert.False(t, ok, "expected %q to be rejected", in)
	}
}

func TestDate_At(t *testing.T) {
	_, loc := newTestParser(t)
	got := Date{2026, time.January, 10}.At(TimeOfDay{10, 0}, loc)
	// NZDT in January, +13
	assert.Equal(t, time.Date(2026, 1, 9, 21, 0, 0, 0, time.UTC), got.UTC())
}

func TestDate_Before(t *testing.T) {
	a := Date{2026, time.May, 3}
	assert.True(t, a.Before(Date{2026, time.May, 4}))
	assert.True(t, a.Before(Date{2027, time.January, 1}))
	assert.False(t, a.Before(a))
	assert.Equal(t, "2026-05-03", a.String())
}

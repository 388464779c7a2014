package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntry_StateAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		entry Entry
		want  State
	}{
		{"scheduled", Entry{LeaveAt: future}, StateScheduled},
		{"active open-ended", Entry{LeaveAt: past}, StateActive},
		{"active bounded", Entry{LeaveAt: past, ReturnAt: &future}, StateActive},
		{"leave exactly now is active", Entry{LeaveAt: now}, StateActive},
		{"return exactly now is still active", Entry{LeaveAt: past, ReturnAt: &now}, StateActive},
		{"completed", Entry{LeaveAt: past.Add(-time.Hour), ReturnAt: &past}, StateCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.StateAt(now))
		})
	}
}

func TestEntry_Valid(t *testing.T) {
	var nilEntry *Entry
	assert.False(t, nilEntry.Valid())
	assert.False(t, (&Entry{}).Valid())
	assert.True(t, (&Entry{LeaveAt: time.Now()}).Valid())
}

func TestEntry_EndedAt(t *testing.T) {
	now := time.Now()
	e := Entry{LeaveAt: now.Add(-2 * time.Hour)}
	assert.False(t, e.EndedAt(now))
	e.ReturnAt = &now
	assert.False(t, e.EndedAt(now))
	earlier := now.Add(-time.Minute)
	e.ReturnAt = &earlier
	assert.True(t, e.EndedAt(now))
}

func TestGuildSettings_Defaults(t *testing.T) {
	s := DefaultGuildSettings("g1")
	assert.Equal(t, "[CMI]", s.Prefix())
	assert.Equal(t, 8, s.Report.Hour)
	assert.Equal(t, "", s.ReportChannel())

	s.NicknamePrefix = ""
	assert.Equal(t, "[CMI]", s.Prefix())

	s.CMIChannelID = "cmi"
	assert.Equal(t, "cmi", s.ReportChannel())
	s.Report.ChannelID = "rep"
	assert.Equal(t, "rep", s.ReportChannel())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "unknown", State(9).String())
}

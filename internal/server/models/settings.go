package models

import "time"

const (
	DefaultNicknamePrefix = "[CMI]"
	DefaultReportHour     = 8
)

// ReportSettings configures the daily digest of a guild.
type ReportSettings struct {
	Enabled    bool
	ChannelID  string
	Hour       int
	LastSentAt *time.Time
}

// GuildSettings is the per-guild configuration. Empty strings mean "not set".
type GuildSettings struct {
	GuildID        string
	ServerTimezone string
	AwayRoleID     string
	NicknamePrefix string
	CMIChannelID   string
	Report         ReportSettings
}

// DefaultGuildSettings returns the settings of a guild nobody configured yet.
func DefaultGuildSettings(guildID string) *GuildSettings {
	return &GuildSettings{
		GuildID:        guildID,
		NicknamePrefix: DefaultNicknamePrefix,
		Report:         ReportSettings{Hour: DefaultReportHour},
	}
}

// Prefix returns the nickname marker, falling back to the default.
func (s *GuildSettings) Prefix() string {
	if s.NicknamePrefix == "" {
		return DefaultNicknamePrefix
	}
	return s.NicknamePrefix
}

// ReportChannel returns the channel for the digest: the report channel,
// then the CMI channel, then "".
func (s *GuildSettings) ReportChannel() string {
	if s.Report.ChannelID != "" {
		return s.Report.ChannelID
	}
	return s.CMIChannelID
}

// LeadershipGrants are the allow-listed roles and users of one guild.
type LeadershipGrants struct {
	RoleIDs []string
	UserIDs []string
}

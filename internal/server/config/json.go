package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/awaykeeper/internal/flagx"
	"github.com/dmitrijs2005/awaykeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "5m" and integer nanoseconds are accepted.
// Zero values leave the current setting untouched.
type JsonConfig struct {
	DatabaseDSN          string         `json:"database_dsn"`
	DiscordToken         string         `json:"discord_token"`
	LogLevel             string         `json:"log_level"`
	FallbackTimezone     string         `json:"fallback_timezone"`
	ReconcileInterval    timex.Duration `json:"reconcile_interval"`
	ReconcileCallTimeout timex.Duration `json:"reconcile_call_timeout"`
	NicknameMaxLength    int            `json:"nickname_max_length"`
	RetentionInterval    timex.Duration `json:"retention_interval"`
	RetentionHorizon     timex.Duration `json:"retention_horizon"`
	ReportCheckInterval  timex.Duration `json:"report_check_interval"`
	ReportHorizon        timex.Duration `json:"report_horizon"`
	MetricsAddr          *string        `json:"metrics_addr"`
}

// parseJson overlays values from the file named by -c/-config. It does
// nothing when no file is given and panics if the file is unreadable or
// not valid JSON.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.DiscordToken, c.DiscordToken)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.FallbackTimezone, c.FallbackTimezone)
	setDuration(&config.ReconcileInterval, c.ReconcileInterval)
	setDuration(&config.ReconcileCallTimeout, c.ReconcileCallTimeout)
	setDuration(&config.RetentionInterval, c.RetentionInterval)
	setDuration(&config.RetentionHorizon, c.RetentionHorizon)
	setDuration(&config.ReportCheckInterval, c.ReportCheckInterval)
	setDuration(&config.ReportHorizon, c.ReportHorizon)
	if c.NicknameMaxLength > 0 {
		config.NicknameMaxLength = c.NicknameMaxLength
	}
	// explicit "" disables the metrics listener
	if c.MetricsAddr != nil {
		config.MetricsAddr = *c.MetricsAddr
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

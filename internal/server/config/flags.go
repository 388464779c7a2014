package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/awaykeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-d string     database DSN
//	-t string     Discord bot token
//	-l string     log level
//	-z string     fallback timezone
//	-r duration   reconcile interval
//	-m string     metrics address ("" disables)
//	-retention duration   retention horizon
//	-report-horizon duration  report look-ahead
//
// Only these flags reach the parser, so -c/-config and flags meant for other
// commands are ignored.
func parseFlags(config *Config, args []string) {
	args = flagx.Subset(args, "d", "t", "l", "z", "r", "m", "retention", "report-horizon")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DiscordToken, "t", config.DiscordToken, "Discord bot token")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.FallbackTimezone, "z", config.FallbackTimezone, "fallback timezone")
	fs.DurationVar(&config.ReconcileInterval, "r", config.ReconcileInterval, "reconcile interval")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics listen address")
	fs.DurationVar(&config.RetentionHorizon, "retention", config.RetentionHorizon, "retention horizon")
	fs.DurationVar(&config.ReportHorizon, "report-horizon", config.ReportHorizon, "report look-ahead")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

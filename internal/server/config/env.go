package config

const (
	envDiscordToken = "DISCORD_TOKEN"
	envDatabaseDSN  = "DATABASE_DSN"
	envLogLevel     = "LOG_LEVEL"
)

func parseEnv(config *Config, getenv func(string) string) {
	if v := getenv(envDiscordToken); v != "" {
		config.DiscordToken = v
	}
	if v := getenv(envDatabaseDSN); v != "" {
		config.DatabaseDSN = v
	}
	if v := getenv(envLogLevel); v != "" {
		config.LogLevel = v
	}
}

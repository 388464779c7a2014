package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/awaykeeper/internal/server"
	"github.com/dmitrijs2005/awaykeeper/internal/server/reconcile"
	"github.com/dmitrijs2005/awaykeeper/internal/server/settings"
	"github.com/spf13/cobra"
)

func (a *app) syncCommand() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile roles and nicknames now (all guilds unless --guild is given)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&user, "user", "", "only this member (requires --guild)")

	cmd.RunE = a.run(nil, func(ctx context.Context, c *server.Components, out io.Writer) error {
		var s reconcile.Summary
		switch {
		case user != "":
			if err := a.requireGuild(); err != nil {
				return err
			}
			s = c.Engine.ReconcileUser(ctx, a.guild, user)
		case a.guild != "":
			s = c.Engine.ReconcileGuild(ctx, a.guild)
		default:
			s = c.Engine.ReconcileAll(ctx)
		}
		_, err := fmt.Fprintf(out, "added %d, removed %d, renamed %d, failures %d, skipped %d\n",
			s.Added, s.Removed, s.Renamed, s.Failures, s.Skipped)
		return err
	})
	return cmd
}

func (a *app) sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete entries past the retention horizon",
		Args:  cobra.NoArgs,
		RunE: a.run(nil, func(ctx context.Context, c *server.Components, out io.Writer) error {
			n, err := c.Sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "removed %d entries\n", n)
			return err
		}),
	}
}

func (a *app) reportCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Daily report tools"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "preview",
			Short: "Print the digest the guild would receive now",
			Args:  cobra.NoArgs,
			RunE: a.run(a.requireGuild, func(ctx context.Context, c *server.Components, out io.Writer) error {
				text, err := c.Reports.Preview(ctx, a.guild)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, text)
				return err
			}),
		},
		&cobra.Command{
			Use:   "export",
			Short: "Write every entry of the guild as CSV",
			Args:  cobra.NoArgs,
			RunE: a.run(a.requireGuild, func(ctx context.Context, c *server.Components, out io.Writer) error {
				return c.Reports.Export(ctx, a.guild, out)
			}),
		},
	)
	return cmd
}

func (a *app) tzCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "tz", Short: "Timezone settings"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-server ZONE",
			Short: "Set the guild timezone (IANA name or alias such as NZT)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
					zone, err := c.Settings.SetServerTimezone(ctx, a.guild, a.actor, args[0])
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(out, "server timezone set to %s\n", zone)
					return err
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "set-user [ZONE]",
			Short: "Set or clear (no argument) the actor's own timezone",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				text := strings.Join(args, "")
				return a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
					zone, err := c.Settings.SetUserTimezone(ctx, a.guild, a.actor, text)
					if err != nil {
						return err
					}
					if zone == "" {
						_, err = fmt.Fprintln(out, "user timezone cleared")
						return err
					}
					_, err = fmt.Fprintf(out, "user timezone set to %s\n", zone)
					return err
				})(cmd, args)
			},
		},
	)
	return cmd
}

func (a *app) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Guild configuration"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the guild settings and leadership grants",
		Args:  cobra.NoArgs,
		RunE: a.run(a.requireGuild, func(ctx context.Context, c *server.Components, out io.Writer) error {
			gs, err := c.Settings.Get(ctx, a.guild)
			if err != nil {
				return err
			}
			g, err := c.Settings.Grants(ctx, a.guild)
			if err != nil {
				return err
			}
			res, err := c.Resolver.ServerLocation(ctx, a.guild)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "timezone:        %s (%s)\n", res.Zone, res.Source)
			fmt.Fprintf(out, "away role:       %s\n", orNone(gs.AwayRoleID))
			fmt.Fprintf(out, "nickname prefix: %s\n", gs.Prefix())
			fmt.Fprintf(out, "cmi channel:     %s\n", orNone(gs.CMIChannelID))
			fmt.Fprintf(out, "daily report:    enabled=%t channel=%s hour=%d\n", gs.Report.Enabled, orNone(gs.ReportChannel()), gs.Report.Hour)
			fmt.Fprintf(out, "leader roles:    %s\n", orNone(strings.Join(g.RoleIDs, ", ")))
			_, err = fmt.Fprintf(out, "leader users:    %s\n", orNone(strings.Join(g.UserIDs, ", ")))
			return err
		}),
	}

	setter := func(use, short string, set func(ctx context.Context, s *settings.Service, value string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := strings.Join(args, "")
				return a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
					if err := set(ctx, c.Settings, value); err != nil {
						return err
					}
					_, err := fmt.Fprintln(out, "settings updated")
					return err
				})(cmd, args)
			},
		}
	}

	var in settings.ReportInput
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Configure the daily report",
		Args:  cobra.NoArgs,
		RunE: a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
			if err := c.Settings.SetReportSettings(ctx, a.guild, a.actor, in); err != nil {
				return err
			}
			_, err := fmt.Fprintln(out, "settings updated")
			return err
		}),
	}
	reportCmd.Flags().BoolVar(&in.Enabled, "enabled", true, "send the daily report")
	reportCmd.Flags().StringVar(&in.ChannelID, "channel", "", "report channel (empty uses the CMI channel)")
	reportCmd.Flags().IntVar(&in.Hour, "hour", 8, "local hour 0-23 in the server timezone")

	cmd.AddCommand(
		show,
		setter("away-role [ROLE]", "Set the away role (no argument disables)", func(ctx context.Context, s *settings.Service, v string) error {
			return s.SetAwayRole(ctx, a.guild, a.actor, v)
		}),
		setter("prefix PREFIX", "Set the nickname marker", func(ctx context.Context, s *settings.Service, v string) error {
			return s.SetNicknamePrefix(ctx, a.guild, a.actor, v)
		}),
		setter("channel [CHANNEL]", "Set the CMI channel (no argument clears)", func(ctx context.Context, s *settings.Service, v string) error {
			return s.SetCMIChannel(ctx, a.guild, a.actor, v)
		}),
		reportCmd,
	)
	return cmd
}

func (a *app) leadershipCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "leadership", Short: "Manage leadership allow-lists"}

	grant := func(use, short string, apply func(ctx context.Context, s *settings.Service, id string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
					if err := apply(ctx, c.Settings, args[0]); err != nil {
						return err
					}
					_, err := fmt.Fprintln(out, "leadership updated")
					return err
				})(cmd, args)
			},
		}
	}

	cmd.AddCommand(
		grant("grant-role", "Allow a role to manage others' entries", func(ctx context.Context, s *settings.Service, id string) error {
			return s.GrantRole(ctx, a.guild, a.actor, id)
		}),
		grant("revoke-role", "Remove a role from the allow-list", func(ctx context.Context, s *settings.Service, id string) error {
			return s.RevokeRole(ctx, a.guild, a.actor, id)
		}),
		grant("grant-user", "Allow a user to manage others' entries", func(ctx context.Context, s *settings.Service, id string) error {
			return s.GrantUser(ctx, a.guild, a.actor, id)
		}),
		grant("revoke-user", "Remove a user from the allow-list", func(ctx context.Context, s *settings.Service, id string) error {
			return s.RevokeUser(ctx, a.guild, a.actor, id)
		}),
	)
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-legacy FILE",
		Short: "Copy data from the original SQLite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(nil, func(ctx context.Context, c *server.Components, out io.Writer) error {
				rep, err := c.Importer.Import(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "entries %d (skipped %d), guilds %d, user timezones %d, role grants %d, user grants %d\n",
					rep.Entries, rep.SkippedEntries, rep.Guilds, rep.UserTimezones, rep.RoleGrants, rep.UserGrants)
				return err
			})(cmd, args)
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/awaykeeper/internal/server"
	"github.com/dmitrijs2005/awaykeeper/internal/server/entries"
	"github.com/dmitrijs2005/awaykeeper/internal/server/models"
	"github.com/spf13/cobra"
)

const stampLayout = "02/01/2006 15:04"

type entryFlags struct {
	user       string
	leaveDate  string
	leaveTime  string
	returnDate string
	returnTime string
	reason     string
	zone       string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.leaveDate, "leave-date", "", "leave date (today, tomorrow, 2026-03-10, 10/3, 10 Mar)")
	fl.StringVar(&f.leaveTime, "leave-time", "", "leave time (14:30, 2pm)")
	fl.StringVar(&f.returnDate, "return-date", "", "return date")
	fl.StringVar(&f.returnTime, "return-time", "", "return time")
	fl.StringVar(&f.reason, "reason", "", "reason shown to others")
	fl.StringVar(&f.zone, "tz", "", "timezone override for this entry")
}

func (a *app) entryCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "entry", Short: "Create, change and list away entries"}
	cmd.AddCommand(a.entryCreate(), a.entryEdit(), a.entryCancel(), a.entryReturn(), a.entryList())
	return cmd
}

func (a *app) entryCreate() *cobra.Command {
	f := &entryFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Declare an absence",
		Args:  cobra.NoArgs,
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.user, "user", "", "owner of the entry (defaults to --actor)")

	cmd.RunE = a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
		e, err := c.Entries.Create(ctx, entries.CreateInput{
			GuildID:          a.guild,
			ActorID:          a.actor,
			TargetUserID:     f.user,
			LeaveDate:        f.leaveDate,
			LeaveTime:        f.leaveTime,
			ReturnDate:       f.returnDate,
			ReturnTime:       f.returnTime,
			Reason:           f.reason,
			TimezoneOverride: f.zone,
		})
		if err != nil {
			return err
		}
		return printEntries(ctx, c, out, a.guild, []*models.Entry{e})
	})
	return cmd
}

func (a *app) entryEdit() *cobra.Command {
	f := &entryFlags{}
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change an entry; omitted flags keep their value, empty ones reset to defaults",
		Args:  cobra.ExactArgs(1),
	}
	f.register(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		changed := func(name, v string) *string {
			if !cmd.Flags().Changed(name) {
				return nil
			}
			return &v
		}
		in := entries.EditInput{
			EntryID:          id,
			GuildID:          a.guild,
			ActorID:          a.actor,
			LeaveDate:        changed("leave-date", f.leaveDate),
			LeaveTime:        changed("leave-time", f.leaveTime),
			ReturnDate:       changed("return-date", f.returnDate),
			ReturnTime:       changed("return-time", f.returnTime),
			Reason:           changed("reason", f.reason),
			TimezoneOverride: changed("tz", f.zone),
		}

		return a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
			e, err := c.Entries.Edit(ctx, in)
			if err != nil {
				return err
			}
			return printEntries(ctx, c, out, a.guild, []*models.Entry{e})
		})(cmd, args)
	}
	return cmd
}

func (a *app) entryCancel() *cobra.Command {
	cmd := &cobra.Command{Use: "cancel ID", Short: "Delete an entry", Args: cobra.ExactArgs(1)}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
			if err := c.Entries.Cancel(ctx, a.guild, id, a.actor); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "entry %d cancelled\n", id)
			return err
		})(cmd, args)
	}
	return cmd
}

func (a *app) entryReturn() *cobra.Command {
	cmd := &cobra.Command{Use: "return ID", Short: "End an active entry now", Args: cobra.ExactArgs(1)}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return a.run(a.requireActor, func(ctx context.Context, c *server.Components, out io.Writer) error {
			e, err := c.Entries.ReturnEarly(ctx, a.guild, id, a.actor)
			if err != nil {
				return err
			}
			return printEntries(ctx, c, out, a.guild, []*models.Entry{e})
		})(cmd, args)
	}
	return cmd
}

func (a *app) entryList() *cobra.Command {
	var user string
	cmd := &cobra.Command{Use: "list", Short: "List a user's entries", Args: cobra.NoArgs}
	cmd.Flags().StringVar(&user, "user", "", "user id (defaults to --actor)")

	cmd.RunE = a.run(a.requireGuild, func(ctx context.Context, c *server.Components, out io.Writer) error {
		if user == "" {
			user = a.actor
		}
		if user == "" {
			return fmt.Errorf("--user or --actor is required")
		}
		list, err := c.Entries.List(ctx, a.guild, user)
		if err != nil {
			return err
		}
		return printEntries(ctx, c, out, a.guild, list)
	})
	return cmd
}

func printEntries(ctx context.Context, c *server.Components, out io.Writer, guildID string, list []*models.Entry) error {
	res, err := c.Resolver.ServerLocation(ctx, guildID)
	if err != nil {
		return err
	}
	now := c.Clock.Now()

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tSTATE\tLEAVE\tRETURN\tREASON")
	for _, e := range list {
		ret := "until further notice"
		if e.ReturnAt != nil {
			ret = e.ReturnAt.In(res.Location).Format(stampLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.UserID, e.StateAt(now), e.LeaveAt.In(res.Location).Format(stampLayout), ret, e.Reason)
	}
	return tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}

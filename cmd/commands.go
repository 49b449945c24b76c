package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"kongming/internal/calendar"
	"kongming/internal/ics"
	"kongming/internal/models"
	"kongming/internal/schedule"
	"kongming/internal/web"
)

const sessionTTL = 12 * time.Hour

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the calendar API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Listen address. Overrides LISTEN_ADDR."},
			&cli.StringFlag{Name: "publish-cron", Usage: "Also publish to CalDAV on this cron spec, e.g. \"*/15 * * * *\"."},
		},
		Action: func(c *cli.Context) error {
			return withBackend(c, func(b *backend) error {
				opts := web.Options{Location: b.cfg.Location()}
				if b.cfg.Reminder.Enabled {
					sc, err := b.scanner()
					if err != nil {
						return err
					}
					opts.Reminder = sc
					b.logger.Info("Reminders are checked on every calendar render.", "time", b.cfg.Reminder.Time)
				}

				if spec := c.String("publish-cron"); spec != "" {
					pub, err := b.publisher(c.Context, false)
					if err != nil {
						return err
					}
					runner := schedule.New(b.logger, c.Context, cron.WithLocation(b.cfg.Location()))
					if _, err := runner.Add(spec, func(ctx context.Context) {
						events, err := b.svc.Events(ctx)
						if err != nil {
							b.logger.Error("Failed to read events for publishing", "error", err)
							return
						}
						if _, err := pub.Publish(ctx, events); err != nil {
							b.logger.Error("Publish cycle failed", "error", err)
						}
					}); err != nil {
						return fmt.Errorf("invalid --publish-cron: %w", err)
					}
					runner.Start()
					defer runner.Stop()
				}

				if b.cfg.LogLevel != "debug" {
					gin.SetMode(gin.ReleaseMode)
				}
				addr := b.cfg.Listen
				if c.IsSet("listen") {
					addr = c.String("listen")
				}
				srv := web.NewServer(b.logger, b.svc, calendar.NewSessionStore(sessionTTL), opts)
				return srv.ListenAndServe(c.Context, addr)
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the events of the selected facet values.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "select", Usage: "Facet values to show. Defaults to all."},
			&cli.BoolFlag{Name: "json", Usage: "Print the calendar widget objects as JSON."},
		},
		Action: func(c *cli.Context) error {
			return withBackend(c, func(b *backend) error {
				st := b.svc.NewState()
				if c.IsSet("select") {
					st.Selected = c.StringSlice("select")
				}
				v, err := b.svc.View(c.Context, st)
				if err != nil {
					return err
				}
				if !v.IDsCoerced {
					b.logger.Warn("Identifiers are shown as stored text.")
				}
				if c.Bool("json") {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(v.Events)
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTART\tEND\tTITLE\t"+strings.ToUpper(b.facets.Name))
				for _, ev := range v.Events {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", ev.ID, ev.Start, ev.End, ev.Title, ev.ExtendedProps[b.facets.Name])
				}
				return tw.Flush()
			})
		},
	}
}

func eventFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Required: true},
		&cli.StringFlag{Name: "start", Usage: "Start time, e.g. 2025-01-01T18:00."},
		&cli.StringFlag{Name: "end", Usage: "End time."},
		&cli.StringFlag{Name: "date", Usage: "Day of an all-day event. Replaces --start and --end."},
		&cli.StringFlag{Name: "color", Usage: "Background color. Defaults to the facet color."},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "attendee"},
		&cli.StringFlag{Name: "channel"},
		&cli.StringFlag{Name: "submit-due", Usage: "Submission deadline (channel schema)."},
		&cli.StringSliceFlag{Name: "manager", Usage: "Manager name, repeatable (channel schema)."},
	}
}

// fieldsFromFlags converts the event flags. A time that cannot be parsed is
// rejected before anything is written.
func fieldsFromFlags(c *cli.Context) (models.Fields, error) {
	f := models.Fields{
		Title:       c.String("title"),
		Color:       c.String("color"),
		Description: c.String("description"),
		Attendee:    c.String("attendee"),
		Channel:     c.String("channel"),
		Managers:    models.SplitManagers(models.JoinManagers(c.StringSlice("manager"))),
	}
	parse := func(name string) (time.Time, error) {
		if !c.IsSet(name) {
			return time.Time{}, nil
		}
		t, err := models.ParseTimestampStrict(c.String(name))
		if err != nil {
			return time.Time{}, fmt.Errorf("--%s: %w", name, err)
		}
		return t, nil
	}
	var err error
	if c.IsSet("date") {
		day, err := parse("date")
		if err != nil {
			return f, err
		}
		f.AllDay = true
		f.Start, f.End = models.AllDayRange(day)
	} else {
		if f.Start, err = parse("start"); err != nil {
			return f, err
		}
		if f.End, err = parse("end"); err != nil {
			return f, err
		}
	}
	if f.SubmitDue, err = parse("submit-due"); err != nil {
		return f, err
	}
	return f, nil
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Create an event.",
		Flags: eventFlags(),
		Action: func(c *cli.Context) error {
			f, err := fieldsFromFlags(c)
			if err != nil {
				return err
			}
			return withBackend(c, func(b *backend) error {
				f.Color = b.facets.ResolveColor(f.Facet(b.facets.Name), f.Color)
				id, err := b.events.Create(c.Context, f)
				if err != nil {
					return err
				}
				fmt.Println(id)
				return nil
			})
		},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Replace an event. Every field is rewritten.",
		Flags: append([]cli.Flag{&cli.IntFlag{Name: "id", Required: true}}, eventFlags()...),
		Action: func(c *cli.Context) error {
			f, err := fieldsFromFlags(c)
			if err != nil {
				return err
			}
			return withBackend(c, func(b *backend) error {
				_, err := b.svc.Update(c.Context, b.svc.NewState(), c.Int("id"), f)
				return err
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete an event.",
		Flags: []cli.Flag{&cli.IntFlag{Name: "id", Required: true}},
		Action: func(c *cli.Context) error {
			return withBackend(c, func(b *backend) error {
				return b.events.Delete(c.Context, c.Int("id"))
			})
		},
	}
}

func managerCommand() *cli.Command {
	return &cli.Command{
		Name:  "manager",
		Usage: "Manage the manager directory (channel schema).",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a manager.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: func(c *cli.Context) error {
					return withBackend(c, func(b *backend) error {
						_, err := b.svc.RegisterManager(c.Context, c.String("name"), c.String("email"))
						return err
					})
				},
			},
			{
				Name:  "list",
				Usage: "List registered managers.",
				Action: func(c *cli.Context) error {
					return withBackend(c, func(b *backend) error {
						list, err := b.svc.Managers(c.Context)
						if err != nil {
							return err
						}
						tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
						fmt.Fprintln(tw, "NAME\tEMAIL\tREGISTERED")
						for _, m := range list {
							fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.Email, models.FormatTimestamp(m.CreatedAt))
						}
						return tw.Flush()
					})
				},
			},
		},
	}
}

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Send reminders that are due now.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cron", Usage: "Keep running and scan on this cron spec, e.g. \"* * * * *\"."},
		},
		Action: func(c *cli.Context) error {
			return withBackend(c, func(b *backend) error {
				sc, err := b.scanner()
				if err != nil {
					return err
				}
				spec := c.String("cron")
				if spec == "" {
					n, err := sc.Scan(c.Context, time.Now())
					if err != nil {
						return err
					}
					b.logger.Info("Reminder scan finished.", "sent", n)
					return nil
				}

				runner := schedule.New(b.logger, c.Context, cron.WithLocation(b.cfg.Location()))
				if _, err := runner.Add(spec, func(ctx context.Context) {
					if _, err := sc.Scan(ctx, time.Now()); err != nil {
						b.logger.Error("Reminder scan failed", "error", err)
					}
				}); err != nil {
					return fmt.Errorf("invalid --cron: %w", err)
				}
				runner.Start()
				<-c.Context.Done()
				runner.Stop()
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write all events as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file. Defaults to stdout."},
		},
		Action: func(c *cli.Context) error {
			return withBackend(c, func(b *backend) error {
				events, err := b.svc.Events(c.Context)
				if err != nil {
					return err
				}
				w := os.Stdout
				if path := c.String("out"); path != "" {
					file, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", path, err)
					}
					defer file.Close()
					w = file
				}
				return ics.Write(w, events, b.facets.Name, b.cfg.Location(), time.Now())
			})
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Mirror all events into a CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
		},
		Action: func(c *cli.Context) error {
			return withBackend(c, func(b *backend) error {
				if c.Bool("dry-run") {
					b.logger.Info("Performing a dry run. No changes will be made.")
				}
				pub, err := b.publisher(c.Context, c.Bool("dry-run"))
				if err != nil {
					return err
				}
				events, err := b.svc.Events(c.Context)
				if err != nil {
					return err
				}
				res, err := pub.Publish(c.Context, events)
				if err != nil {
					return fmt.Errorf("publish failed: %w", err)
				}
				b.logger.Info("Publish finished.", "written", res.Written, "removed", res.Removed, "failed", res.Failed)
				return nil
			})
		},
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"kongming/internal/caldav"
	"kongming/internal/calendar"
	"kongming/internal/config"
	"kongming/internal/google"
	"kongming/internal/models"
	"kongming/internal/reminder"
	"kongming/internal/sqlite"
	"kongming/internal/store"
	"kongming/internal/tabular"
)

// backend is everything a command needs, built once per process.
type backend struct {
	cfg      *config.Config
	logger   *slog.Logger
	events   *store.Events
	managers *store.Managers // nil unless the schema has a manager directory
	facets   calendar.Facets
	svc      *calendar.Service
	close    func() error
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	schema, err := models.SchemaByName(cfg.Schema)
	if err != nil {
		return nil, err
	}
	withManagers := schema.Has(models.ColumnManager)

	var eventsTable, managersTable tabular.Table
	closeFn := func() error { return nil }

	switch cfg.Backend {
	case "sheets":
		client, err := google.NewSheetsClient(ctx, logger, google.Credentials{
			ServiceAccountFile: cfg.Sheets.ServiceAccountFile,
			ClientID:           cfg.Sheets.ClientID,
			ClientSecret:       cfg.Sheets.ClientSecret,
			Account:            cfg.Sheets.Account,
		}, cfg.Sheets.SpreadsheetID)
		if err != nil {
			return nil, err
		}
		ws, err := client.Worksheet(ctx, cfg.Sheets.EventsWorksheet)
		if err != nil {
			return nil, err
		}
		eventsTable = ws
		if withManagers {
			mws, err := client.Worksheet(ctx, cfg.Sheets.ManagersWorksheet)
			if err != nil {
				return nil, err
			}
			managersTable = mws
		}
	case "sqlite":
		db, err := sqlite.Open(logger, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		eventsTable = db.Table("events")
		if withManagers {
			managersTable = db.Table("managers")
		}
		closeFn = db.Close
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	facets := calendar.FacetsByName(schema.Facet)
	b := &backend{
		cfg:    cfg,
		logger: logger,
		events: store.NewEvents(logger, eventsTable, schema, facets.Values),
		facets: facets,
		close:  closeFn,
	}
	if err := b.events.Init(ctx); err != nil {
		_ = closeFn()
		return nil, err
	}

	var dir calendar.ManagerDirectory
	if managersTable != nil {
		b.managers = store.NewManagers(logger, managersTable, nil)
		if err := b.managers.Init(ctx); err != nil {
			_ = closeFn()
			return nil, err
		}
		dir = b.managers
	}
	b.svc = calendar.NewService(logger, b.events, dir, facets)
	logger.Debug("Backend ready.", "backend", cfg.Backend, "schema", schema.Name)
	return b, nil
}

// scanner builds the reminder scanner from the SMTP and reminder settings.
func (b *backend) scanner() (*reminder.Scanner, error) {
	hour, minute, err := b.cfg.Reminder.Clock()
	if err != nil {
		return nil, err
	}
	mailer := &reminder.SMTPMailer{
		Host:     b.cfg.SMTP.Host,
		Port:     b.cfg.SMTP.Port,
		Username: b.cfg.SMTP.Username,
		Password: b.cfg.SMTP.Password,
		From:     b.cfg.SMTP.From,
	}
	var dir reminder.DirectoryReader
	if b.managers != nil {
		dir = b.managers
	}
	return reminder.NewScanner(b.logger, b.events, dir, mailer, reminder.Config{
		Hour:       hour,
		Minute:     minute,
		Recipients: b.cfg.Reminder.Recipients,
		Facet:      b.facets.Name,
		Location:   b.cfg.Location(),
	}), nil
}

func (b *backend) publisher(ctx context.Context, dryRun bool) (*caldav.Publisher, error) {
	return caldav.NewPublisher(ctx, b.logger, caldav.Config{
		Endpoint: b.cfg.CalDAV.Endpoint,
		Username: b.cfg.CalDAV.Username,
		Password: b.cfg.CalDAV.Password,
		Calendar: b.cfg.CalDAV.Calendar,
		Facet:    b.facets.Name,
		Location: b.cfg.Location(),
		DryRun:   dryRun,
	})
}

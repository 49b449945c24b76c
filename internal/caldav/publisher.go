// Package caldav mirrors the event table into a CalDAV calendar.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"kongming/internal/ics"
	"kongming/internal/models"
)

const (
	// DefaultEndpoint is the iCloud CalDAV server.
	DefaultEndpoint = "https://caldav.icloud.com/"

	uidSuffix = "@kongming"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "kongming/1.0")
	return t.Transport.RoundTrip(req)
}

// Config describes the target calendar.
type Config struct {
	Endpoint string
	Username string
	Password string
	Calendar string // display name of the target calendar
	Facet    string
	Location *time.Location
	DryRun   bool
}

// Publisher writes events into a CalDAV calendar and removes the ones it
// previously wrote that no longer exist.
type Publisher struct {
	client      *caldav.Client
	logger      *slog.Logger
	cfg         Config
	calendarURL string
}

// NewPublisher connects to the server and resolves the target calendar.
func NewPublisher(ctx context.Context, logger *slog.Logger, cfg Config) (*Publisher, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	httpClient := &http.Client{Transport: &customTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: http.DefaultTransport,
	}}
	return newPublisher(ctx, logger, httpClient, cfg)
}

func newPublisher(ctx context.Context, logger *slog.Logger, httpClient webdav.HTTPClient, cfg Config) (*Publisher, error) {
	client, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	p := &Publisher{client: client, logger: logger, cfg: cfg}

	logger.Info("Finding CalDAV calendar", "calendarName", cfg.Calendar)
	calendarURL, err := p.findCalendar(ctx, cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.Calendar, err)
	}
	p.calendarURL = calendarURL
	logger.Info("Successfully found CalDAV calendar", "path", calendarURL)
	return p, nil
}

// Result counts what a publish run did.
type Result struct {
	Written int
	Removed int
	Failed  int
}

// Publish writes every event and deletes stale objects carrying our UID
// suffix. A failing event is logged and skipped.
func (p *Publisher) Publish(ctx context.Context, events []models.Event) (Result, error) {
	var res Result
	now := time.Now()

	keep := make(map[string]bool, len(events))
	for _, ev := range p.exportable(events) {
		uid := ics.UID(ev)
		keep[uid] = true

		if p.cfg.DryRun {
			p.logger.Info("[DRY RUN] Would write event to CalDAV", "title", ev.Title, "uid", uid)
			continue
		}
		if err := p.put(ctx, ev, now); err != nil {
			p.logger.Error("Failed to publish event", "title", ev.Title, "error", err)
			res.Failed++
			continue
		}
		res.Written++
	}

	existing, err := p.publishedUIDs(ctx)
	if err != nil {
		return res, err
	}
	for uid, objPath := range existing {
		if keep[uid] {
			continue
		}
		if p.cfg.DryRun {
			p.logger.Info("[DRY RUN] Would remove stale CalDAV event", "uid", uid)
			continue
		}
		if err := p.client.RemoveAll(ctx, objPath); err != nil {
			p.logger.Error("Failed to remove stale event", "uid", uid, "error", err)
			res.Failed++
			continue
		}
		res.Removed++
	}

	p.logger.Info("Publish finished.", "written", res.Written, "removed", res.Removed, "failed", res.Failed)
	return res, nil
}

// exportable drops events whose times did not parse. Their objects, if
// published earlier, are removed as stale.
func (p *Publisher) exportable(events []models.Event) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if !ics.Exportable(ev) {
			p.logger.Warn("Skipping event without valid times", "id", ev.RawID, "title", ev.Title)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (p *Publisher) put(ctx context.Context, ev models.Event, now time.Time) error {
	cal := ics.NewCalendar()
	cal.Children = append(cal.Children, ics.Component(ev, p.cfg.Facet, p.cfg.Location, now))

	objPath := p.objectPath(ics.UID(ev))
	if _, err := p.client.PutCalendarObject(ctx, objPath, cal); err != nil {
		return fmt.Errorf("failed to write event on CalDAV server: %w", err)
	}
	p.logger.Debug("Wrote event to CalDAV", "title", ev.Title, "path", objPath)
	return nil
}

// publishedUIDs returns our objects currently on the server, keyed by UID.
func (p *Publisher) publishedUIDs(ctx context.Context) (map[string]string, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, Props: []string{ical.PropUID}}},
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompEvent}},
		},
	}
	objs, err := p.client.QueryCalendar(ctx, p.calendarURL, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	out := make(map[string]string)
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		for _, ev := range obj.Data.Events() {
			uid, err := ev.Props.Text(ical.PropUID)
			if err != nil || !strings.HasSuffix(uid, uidSuffix) {
				continue
			}
			out[uid] = obj.Path
		}
	}
	return out, nil
}

func (p *Publisher) objectPath(uid string) string {
	return path.Join(p.calendarURL, strings.ReplaceAll(uid, "@", "_")+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (p *Publisher) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := p.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := p.client.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := p.client.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

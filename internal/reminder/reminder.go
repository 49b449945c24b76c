// Package reminder sends D-1 and D-day notices for upcoming events.
//
// A scan is a single synchronous pass over all events. It fires only when the
// current minute equals the configured send time, so repeated polls within
// that minute send again.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kongming/internal/models"
	"kongming/internal/store"
)

// Kind tells which notice a reminder is.
type Kind string

const (
	DayBefore Kind = "D-1"
	DayOf     Kind = "D-day"
)

// Message is one outbound reminder.
type Message struct {
	To      []string
	Subject string
	Body    string
	Invite  []byte // text/calendar attachment, may be nil
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// EventLister is the part of store.Events the scanner reads.
type EventLister interface {
	List(ctx context.Context) (store.Listing, error)
}

// DirectoryReader resolves manager names.
type DirectoryReader interface {
	Directory(ctx context.Context) (map[string]models.Manager, error)
}

// Config controls when and to whom reminders go.
type Config struct {
	Hour, Minute int      // local send time
	Recipients   []string // always copied on every reminder
	Facet        string
	Location     *time.Location
}

// Scanner finds events due for a reminder and mails them.
type Scanner struct {
	events   EventLister
	managers DirectoryReader
	mailer   Mailer
	cfg      Config
	logger   *slog.Logger
}

// NewScanner creates a Scanner. managers may be nil.
func NewScanner(logger *slog.Logger, events EventLister, managers DirectoryReader, mailer Mailer, cfg Config) *Scanner {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scanner{events: events, managers: managers, mailer: mailer, cfg: cfg, logger: logger}
}

// Due reports which notice, if any, is due for an event starting at start
// when the clock reads now. start is a wall-clock time in the scanner location.
func (s *Scanner) Due(start, now time.Time) (Kind, bool) {
	now = now.In(s.cfg.Location)
	if now.Hour() != s.cfg.Hour || now.Minute() != s.cfg.Minute {
		return "", false
	}
	today := civilDate(now.Year(), now.Month(), now.Day())
	day := civilDate(start.Year(), start.Month(), start.Day())
	switch {
	case day.Equal(today.AddDate(0, 0, 1)):
		return DayBefore, true
	case day.Equal(today):
		return DayOf, true
	}
	return "", false
}

// Scan checks every event once and returns how many reminders were sent.
// Delivery failures are logged and do not stop the scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (int, error) {
	listing, err := s.events.List(ctx)
	if err != nil {
		return 0, err
	}

	var dir map[string]models.Manager
	sent := 0
	for _, ev := range listing.Events {
		if ev.Start.IsZero() {
			continue
		}
		kind, ok := s.Due(ev.Start, now)
		if !ok {
			continue
		}
		if dir == nil && s.managers != nil && len(ev.Managers) > 0 {
			if dir, err = s.managers.Directory(ctx); err != nil {
				return sent, fmt.Errorf("failed to load managers: %w", err)
			}
		}
		to := s.recipients(ev, dir)
		if len(to) == 0 {
			s.logger.Debug("Reminder has no recipients, skipping.", "id", ev.RawID, "title", ev.Title)
			continue
		}
		msg, err := s.message(ev, kind, to, now)
		if err != nil {
			s.logger.Error("Failed to build reminder", "id", ev.RawID, "error", err)
			continue
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Error("Failed to send reminder", "id", ev.RawID, "kind", kind, "error", err)
			continue
		}
		s.logger.Info("Sent reminder.", "id", ev.RawID, "kind", kind, "recipients", len(to))
		sent++
	}
	return sent, nil
}

func (s *Scanner) recipients(ev models.Event, dir map[string]models.Manager) []string {
	seen := map[string]bool{}
	var to []string
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		to = append(to, addr)
	}
	for _, name := range ev.Managers {
		if m, ok := dir[name]; ok {
			add(m.Email)
		}
	}
	for _, r := range s.cfg.Recipients {
		add(r)
	}
	return to
}

func civilDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

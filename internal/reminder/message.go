package reminder

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"kongming/internal/ics"
	"kongming/internal/models"
)

func (s *Scanner) message(ev models.Event, kind Kind, to []string, now time.Time) (Message, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n\n", kind, ev.Title)
	if ev.AllDay {
		fmt.Fprintf(&b, "Date: %s\n", models.FormatDate(ev.Start))
	} else {
		fmt.Fprintf(&b, "Start: %s\n", ev.Start.Format("2006-01-02 15:04"))
		fmt.Fprintf(&b, "End:   %s\n", ev.End.Format("2006-01-02 15:04"))
	}
	if v := ev.Facet(s.cfg.Facet); v != "" {
		fmt.Fprintf(&b, "%s: %s\n", s.cfg.Facet, v)
	}
	if !ev.SubmitDue.IsZero() {
		fmt.Fprintf(&b, "Submit by: %s\n", models.FormatDate(ev.SubmitDue))
	}
	if ev.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", ev.Description)
	}

	cal := ics.NewCalendar()
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	cal.Children = append(cal.Children, ics.Component(ev, s.cfg.Facet, s.cfg.Location, now))
	var invite bytes.Buffer
	if err := ical.NewEncoder(&invite).Encode(cal); err != nil {
		return Message{}, fmt.Errorf("failed to encode invite: %w", err)
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] %s", kind, ev.Title),
		Body:    b.String(),
		Invite:  invite.Bytes(),
	}, nil
}

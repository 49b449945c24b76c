// Package ics renders stored events as iCalendar data.
package ics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"kongming/internal/models"
)

const productID = "-//kongming//EN"

// UID returns the stable iCalendar UID of an event.
func UID(ev models.Event) string {
	id := ev.RawID
	if ev.ID != 0 {
		id = strconv.Itoa(ev.ID)
	}
	return fmt.Sprintf("%s@kongming", id)
}

// NewCalendar returns an empty calendar with the required properties set.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

// Component converts an event to a VEVENT. Stored wall-clock times are
// interpreted in loc and written in UTC, so no VTIMEZONE is needed; all-day
// events use DATE values.
func Component(ev models.Event, facet string, loc *time.Location, stamp time.Time) *ical.Component {
	ve := ical.NewEvent()
	ve.Props.SetText(ical.PropUID, UID(ev))
	ve.Props.SetText(ical.PropSummary, ev.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if ev.AllDay {
		ve.Props.SetDate(ical.PropDateTimeStart, ev.Start)
		ve.Props.SetDate(ical.PropDateTimeEnd, ev.End)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, inLocation(ev.Start, loc).UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, inLocation(ev.End, loc).UTC())
	}
	if ev.Description != "" {
		ve.Props.SetText(ical.PropDescription, ev.Description)
	}
	if v := ev.Facet(facet); v != "" {
		ve.Props.SetText(ical.PropCategories, v)
	}
	return ve.Component
}

// Exportable reports whether ev has times worth exporting. Rows whose start
// could not be parsed decode to the zero time and are left out.
func Exportable(ev models.Event) bool {
	return !ev.Start.IsZero() && !ev.End.IsZero()
}

// Write encodes the exportable events as one calendar.
func Write(w io.Writer, events []models.Event, facet string, loc *time.Location, stamp time.Time) error {
	cal := NewCalendar()
	for _, ev := range events {
		if !Exportable(ev) {
			continue
		}
		cal.Children = append(cal.Children, Component(ev, facet, loc, stamp))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// inLocation keeps the wall clock of t and attaches loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

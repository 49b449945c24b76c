package models

import (
	"fmt"
	"strings"
	"time"
)

// Column names shared by both schema variants.
const (
	ColumnID          = "id"
	ColumnTitle       = "title"
	ColumnStart       = "start"
	ColumnEnd         = "end"
	ColumnAllDay      = "all_day"
	ColumnColor       = "color"
	ColumnDescription = "description"
	ColumnAttendee    = "attendee"
	ColumnChannel     = "channel"
	ColumnSubmitDue   = "submit_due"
	ColumnManager     = "manager"
)

// Schema is a fixed flat row layout for the events table.
type Schema struct {
	Name    string
	Columns []string
	Facet   string // classification column used for filtering and coloring
}

var (
	// AttendeeSchema classifies each event by a single attendee.
	AttendeeSchema = Schema{
		Name:    "attendee",
		Columns: []string{ColumnID, ColumnTitle, ColumnStart, ColumnEnd, ColumnAllDay, ColumnColor, ColumnDescription, ColumnAttendee},
		Facet:   ColumnAttendee,
	}

	// ChannelSchema classifies each event by channel and tracks managers and a submit deadline.
	ChannelSchema = Schema{
		Name:    "channel",
		Columns: []string{ColumnID, ColumnTitle, ColumnStart, ColumnEnd, ColumnAllDay, ColumnColor, ColumnDescription, ColumnChannel, ColumnSubmitDue, ColumnManager},
		Facet:   ColumnChannel,
	}

	// ManagerColumns is the layout of the manager directory table.
	ManagerColumns = []string{"name", "email", "created_at"}
)

// SchemaByName returns the schema variant called name.
func SchemaByName(name string) (Schema, error) {
	switch strings.ToLower(name) {
	case "", AttendeeSchema.Name:
		return AttendeeSchema, nil
	case ChannelSchema.Name:
		return ChannelSchema, nil
	}
	return Schema{}, fmt.Errorf("unknown schema %q", name)
}

// Has reports whether column is part of the schema.
func (s Schema) Has(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Row encodes an event into a row ordered by the schema columns.
// Absent optional values are written as empty strings.
func (s Schema) Row(id int, f Fields) []string {
	row := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		switch col {
		case ColumnID:
			row[i] = fmt.Sprint(id)
		case ColumnTitle:
			row[i] = f.Title
		case ColumnStart:
			row[i] = FormatTimestamp(f.Start)
		case ColumnEnd:
			row[i] = FormatTimestamp(f.End)
		case ColumnAllDay:
			row[i] = FormatBool(f.AllDay)
		case ColumnColor:
			row[i] = f.Color
		case ColumnDescription:
			row[i] = f.Description
		case ColumnAttendee:
			row[i] = f.Attendee
		case ColumnChannel:
			row[i] = f.Channel
		case ColumnSubmitDue:
			if !f.SubmitDue.IsZero() {
				row[i] = FormatDate(f.SubmitDue)
			}
		case ColumnManager:
			row[i] = JoinManagers(f.Managers)
		}
	}
	return row
}

// Decode builds an event from a header-keyed record. Missing columns decode
// to their zero value and malformed values are defaulted, never reported.
func (s Schema) Decode(record map[string]string) Event {
	return Event{
		RawID:       strings.TrimSpace(record[ColumnID]),
		Title:       record[ColumnTitle],
		Start:       ParseTimestamp(record[ColumnStart]),
		End:         ParseTimestamp(record[ColumnEnd]),
		AllDay:      ParseBool(record[ColumnAllDay]),
		Color:       record[ColumnColor],
		Description: record[ColumnDescription],
		Attendee:    record[ColumnAttendee],
		Channel:     record[ColumnChannel],
		SubmitDue:   ParseTimestamp(record[ColumnSubmitDue]),
		Managers:    SplitManagers(record[ColumnManager]),
	}
}

// TimestampLayout is the layout written to the start and end columns.
const TimestampLayout = "2006-01-02T15:04:05"

// DateLayout is the layout of date-only values.
const DateLayout = "2006-01-02"

var readLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// FormatTimestamp encodes t as naive ISO-8601 text.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

// FormatDate encodes the calendar date of t.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseTimestamp decodes stored timestamp text. Values with a zone keep
// their wall clock; unparsable text yields the zero time.
func ParseTimestamp(s string) time.Time {
	t, err := ParseTimestampStrict(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseTimestampStrict is ParseTimestamp with the parse error reported.
func ParseTimestampStrict(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range readLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if layout == time.RFC3339 {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed timestamp %q", s)
}

// FormatBool encodes the all_day column.
func FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseBool decodes the all_day column.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

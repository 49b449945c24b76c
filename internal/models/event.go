package models

import (
	"strings"
	"time"
)

// Event represents one stored calendar entry.
// It is independent of the backend that holds the row (worksheet or SQLite table).
type Event struct {
	ID          int       // Store-assigned identifier; zero when RawID could not be coerced
	RawID       string    // Identifier exactly as read from the identifier column
	Title       string    // Event name shown on the calendar
	Start       time.Time // Start of the event (local, no zone)
	End         time.Time // End of the event, exclusive
	AllDay      bool      // Whole-day event; End is midnight after the last day
	Color       string    // Background color, #RRGGBB
	Description string    // Free-text notes
	Attendee    string    // Facet value in the attendee schema
	Channel     string    // Facet value in the channel schema
	SubmitDue   time.Time // Optional submission deadline (channel schema)
	Managers    []string  // Manager names (channel schema)
}

// Fields is the writable part of an event. Create and Update both take a
// complete Fields value; updates replace the whole row.
type Fields struct {
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Color       string
	Description string
	Attendee    string
	Channel     string
	SubmitDue   time.Time
	Managers    []string
}

// Fields returns the writable part of e.
func (e Event) Fields() Fields {
	return Fields{
		Title:       e.Title,
		Start:       e.Start,
		End:         e.End,
		AllDay:      e.AllDay,
		Color:       e.Color,
		Description: e.Description,
		Attendee:    e.Attendee,
		Channel:     e.Channel,
		SubmitDue:   e.SubmitDue,
		Managers:    e.Managers,
	}
}

// Facet returns the value of the classification field named by facet.
func (e Event) Facet(facet string) string {
	if facet == ColumnChannel {
		return e.Channel
	}
	return e.Attendee
}

// Facet returns the value of the classification field named by facet.
func (f Fields) Facet(facet string) string {
	if facet == ColumnChannel {
		return f.Channel
	}
	return f.Attendee
}

// Manager is an entry in the manager directory used by the channel schema.
type Manager struct {
	Name      string
	Email     string
	CreatedAt time.Time
}

// AllDayRange returns the stored range of an all-day event covering day:
// midnight of day up to midnight of the following day.
func AllDayRange(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

// JoinManagers encodes a manager list for the manager column.
// Names are not escaped; a name containing a comma will not survive a round trip.
func JoinManagers(names []string) string {
	return strings.Join(names, ",")
}

// SplitManagers decodes the manager column. Blank entries are dropped.
func SplitManagers(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Package calendar turns stored events into what the calendar widget shows:
// facet filtering, display objects, stacking order and click details.
package calendar

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"kongming/internal/models"
)

// NoEmail is shown next to a manager name missing from the directory.
const NoEmail = "no email"

// DisplayEvent is the event object consumed by the calendar widget.
type DisplayEvent struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Start         string         `json:"start"`
	End           string         `json:"end"`
	AllDay        bool           `json:"allDay"`
	Color         string         `json:"color"`
	TextColor     string         `json:"textColor"`
	ExtendedProps map[string]any `json:"extendedProps"`
}

// Filter keeps the events whose facet value is selected. An empty selection
// selects nothing.
func Filter(events []models.Event, facet string, selected []string) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if slices.Contains(selected, ev.Facet(facet)) {
			out = append(out, ev)
		}
	}
	return out
}

// Order sorts events by the facet priority. Values outside the priority list
// go last; ties keep store order. Without a priority the input is returned as is.
func (f Facets) Order(events []models.Event) []models.Event {
	if len(f.Priority) == 0 {
		return events
	}
	rank := make(map[string]int, len(f.Priority))
	for i, v := range f.Priority {
		rank[v] = i
	}
	rankOf := func(ev models.Event) int {
		if r, ok := rank[ev.Facet(f.Name)]; ok {
			return r
		}
		return len(f.Priority)
	}
	out := slices.Clone(events)
	sort.SliceStable(out, func(i, j int) bool {
		return rankOf(out[i]) < rankOf(out[j])
	})
	return out
}

// ToDisplay maps one event onto the widget schema.
func (f Facets) ToDisplay(ev models.Event) DisplayEvent {
	value := ev.Facet(f.Name)

	title := ev.Title
	if mark := f.Decorations[value]; mark != "" {
		title = mark + " " + title
	}
	color := ev.Color
	if strings.TrimSpace(color) == "" {
		color = DefaultColor
	}
	id := ev.RawID
	if ev.ID != 0 {
		id = strconv.Itoa(ev.ID)
	}

	props := map[string]any{
		"description": ev.Description,
		f.Name:        value,
	}
	if f.Name == models.ColumnChannel {
		props["submit_due"] = models.FormatDate(ev.SubmitDue)
		props["managers"] = append([]string{}, ev.Managers...)
	}

	return DisplayEvent{
		ID:            id,
		Title:         title,
		Start:         models.FormatTimestamp(ev.Start),
		End:           models.FormatTimestamp(ev.End),
		AllDay:        ev.AllDay,
		Color:         color,
		TextColor:     f.TextColor(value),
		ExtendedProps: props,
	}
}

// Display filters, orders and maps events in one pass.
func (f Facets) Display(events []models.Event, selected []string) []DisplayEvent {
	events = f.Order(Filter(events, f.Name, selected))
	out := make([]DisplayEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, f.ToDisplay(ev))
	}
	return out
}

// Detail is what the click-through panel shows for one event.
type Detail struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	AllDay      bool   `json:"all_day"`
	Description string `json:"description"`
	Facet       string `json:"facet"`
	SubmitDue   string `json:"submit_due,omitempty"`
	Managers    string `json:"managers,omitempty"`
}

// Detail resolves the event for display on click. Manager names are rendered
// as "name (email)"; names absent from dir get the NoEmail placeholder.
func (f Facets) Detail(ev models.Event, dir map[string]models.Manager) Detail {
	d := f.ToDisplay(ev)
	return Detail{
		ID:          d.ID,
		Title:       ev.Title,
		Start:       d.Start,
		End:         d.End,
		AllDay:      ev.AllDay,
		Description: ev.Description,
		Facet:       ev.Facet(f.Name),
		SubmitDue:   models.FormatDate(ev.SubmitDue),
		Managers:    ManagerLine(ev.Managers, dir),
	}
}

// ManagerLine renders manager names with their emails.
func ManagerLine(names []string, dir map[string]models.Manager) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		email := NoEmail
		if m, ok := dir[name]; ok && m.Email != "" {
			email = m.Email
		}
		parts = append(parts, name+" ("+email+")")
	}
	return strings.Join(parts, ", ")
}

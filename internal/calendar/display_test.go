package calendar

import (
	"reflect"
	"testing"
	"time"

	"kongming/internal/models"
)

func sampleEvents() []models.Event {
	day := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)
	return []models.Event{
		{ID: 1, RawID: "1", Title: "a", Start: day, End: day.Add(time.Hour), Attendee: "콩", Color: "#B4BDBD"},
		{ID: 2, RawID: "2", Title: "b", Start: day, End: day.Add(time.Hour), Attendee: "밍깅"},
		{ID: 3, RawID: "3", Title: "c", Start: day, End: day.Add(time.Hour), Attendee: "밍콩콩"},
		{ID: 4, RawID: "4", Title: "d", Start: day, End: day.Add(time.Hour), Attendee: "unknown"},
	}
}

func titles(events []models.Event) []string {
	var out []string
	for _, ev := range events {
		out = append(out, ev.Title)
	}
	return out
}

func TestFilter_OptIn(t *testing.T) {
	events := sampleEvents()
	if got := Filter(events, "attendee", nil); len(got) != 0 {
		t.Errorf("empty selection returned %v", titles(got))
	}
	if got := Filter(events, "attendee", []string{}); len(got) != 0 {
		t.Errorf("empty selection returned %v", titles(got))
	}

	got := Filter(events, "attendee", AttendeeFacets().Values)
	if !reflect.DeepEqual(titles(got), []string{"a", "b", "c"}) {
		t.Errorf("full selection = %v", titles(got))
	}

	got = Filter(events, "attendee", []string{"밍깅"})
	if !reflect.DeepEqual(titles(got), []string{"b"}) {
		t.Errorf("single selection = %v", titles(got))
	}
}

func TestFilter_AllFacetValuesReturnsFullSet(t *testing.T) {
	events := sampleEvents()[:3]
	if got := Filter(events, "attendee", AttendeeFacets().Values); len(got) != len(events) {
		t.Errorf("got %d events, want %d", len(got), len(events))
	}
}

func TestToDisplay(t *testing.T) {
	f := AttendeeFacets()
	events := sampleEvents()

	d := f.ToDisplay(events[0])
	want := DisplayEvent{
		ID:        "1",
		Title:     "a",
		Start:     "2025-01-01T18:00:00",
		End:       "2025-01-01T19:00:00",
		Color:     "#B4BDBD",
		TextColor: "#000000",
		ExtendedProps: map[string]any{
			"description": "",
			"attendee":    "콩",
		},
	}
	if !reflect.DeepEqual(d, want) {
		t.Errorf("display = %+v\nwant %+v", d, want)
	}

	d = f.ToDisplay(events[1])
	if d.Color != DefaultColor || d.TextColor != "#1f1f1f" {
		t.Errorf("fallback color display = %+v", d)
	}
	d = f.ToDisplay(events[3])
	if d.TextColor != DefaultTextColor {
		t.Errorf("unknown attendee text color = %q", d.TextColor)
	}
}

func TestToDisplay_ChannelDecorationAndRawID(t *testing.T) {
	f := ChannelFacets()
	ev := models.Event{
		RawID:     "x7",
		Title:     "launch",
		Channel:   "youtube",
		AllDay:    true,
		SubmitDue: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Managers:  []string{"A", "B"},
	}
	d := f.ToDisplay(ev)
	if d.ID != "x7" || d.Title != "[YT] launch" || !d.AllDay {
		t.Errorf("display = %+v", d)
	}
	if d.ExtendedProps["channel"] != "youtube" || d.ExtendedProps["submit_due"] != "2025-03-01" {
		t.Errorf("extended props = %v", d.ExtendedProps)
	}
	if !reflect.DeepEqual(d.ExtendedProps["managers"], []string{"A", "B"}) {
		t.Errorf("managers = %v", d.ExtendedProps["managers"])
	}
}

func TestOrder(t *testing.T) {
	events := []models.Event{
		{Title: "1", Channel: "blog"},
		{Title: "2", Channel: "other"},
		{Title: "3", Channel: "youtube"},
		{Title: "4", Channel: "blog"},
		{Title: "5", Channel: "youtube"},
	}
	got := ChannelFacets().Order(events)
	if !reflect.DeepEqual(titles(got), []string{"3", "5", "1", "4", "2"}) {
		t.Errorf("order = %v", titles(got))
	}
	if !reflect.DeepEqual(titles(events), []string{"1", "2", "3", "4", "5"}) {
		t.Errorf("input was reordered: %v", titles(events))
	}

	plain := AttendeeFacets().Order(sampleEvents())
	if !reflect.DeepEqual(titles(plain), []string{"a", "b", "c", "d"}) {
		t.Errorf("store order not kept: %v", titles(plain))
	}
}

func TestDetail_ManagerEmails(t *testing.T) {
	dir := map[string]models.Manager{"A": {Name: "A", Email: "a@x.com"}}
	ev := models.Event{ID: 1, RawID: "1", Title: "t", Channel: "blog", Managers: models.SplitManagers("A,B")}

	d := ChannelFacets().Detail(ev, dir)
	if d.Managers != "A (a@x.com), B (no email)" {
		t.Errorf("managers = %q", d.Managers)
	}
	if d.Facet != "blog" || d.Title != "t" {
		t.Errorf("detail = %+v", d)
	}
}

func TestResolveColor(t *testing.T) {
	f := AttendeeFacets()
	if got := f.ResolveColor("밍콩콩", ""); got != "#EC7B87" {
		t.Errorf("chip color = %q", got)
	}
	if got := f.ResolveColor("밍콩콩", "#123456"); got != "#123456" {
		t.Errorf("custom color = %q", got)
	}
	if got := f.ResolveColor("", ""); got != DefaultColor {
		t.Errorf("default color = %q", got)
	}
}

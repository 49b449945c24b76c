package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"kongming/internal/models"
	"kongming/internal/tabular"
)

var attendees = []string{"콩", "밍깅", "밍콩콩"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEvents(t *testing.T, table *tabular.Memory) *Events {
	t.Helper()
	s := NewEvents(discardLogger(), table, models.AttendeeSchema, attendees)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func ts(s string) time.Time {
	t, err := time.Parse(models.TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func demoFields() models.Fields {
	return models.Fields{
		Title:       "Demo",
		Start:       ts("2025-01-01T18:00:00"),
		End:         ts("2025-01-01T19:00:00"),
		Color:       "#EC7B87",
		Description: "notes",
		Attendee:    "밍콩콩",
	}
}

func TestInit_WritesHeaderOnce(t *testing.T) {
	table := tabular.NewMemory()
	s := newTestEvents(t, table)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	values, _ := table.Values(context.Background())
	if len(values) != 1 {
		t.Fatalf("expected only the header row, got %d rows", len(values))
	}
	if !reflect.DeepEqual(values[0], models.AttendeeSchema.Columns) {
		t.Errorf("header = %v", values[0])
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	table := tabular.NewMemory()
	s := newTestEvents(t, table)

	id, err := s.Create(ctx, demoFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}

	values, _ := table.Values(ctx)
	wantRow := []string{"1", "Demo", "2025-01-01T18:00:00", "2025-01-01T19:00:00", "0", "#EC7B87", "notes", "밍콩콩"}
	if !reflect.DeepEqual(values[1], wantRow) {
		t.Errorf("stored row = %v, want %v", values[1], wantRow)
	}

	listing, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !listing.IDsCoerced || len(listing.Events) != 1 {
		t.Fatalf("listing = %+v", listing)
	}
	got := listing.Events[0]
	if got.ID != 1 || !reflect.DeepEqual(got.Fields(), demoFields()) {
		t.Errorf("listed event = %+v", got)
	}

	f := demoFields()
	f.Title = "Demo2"
	if err := s.Update(ctx, 1, f); err != nil {
		t.Fatalf("update: %v", err)
	}
	listing, _ = s.List(ctx)
	if len(listing.Events) != 1 || listing.Events[0].Title != "Demo2" || listing.Events[0].ID != 1 {
		t.Errorf("after update = %+v", listing.Events)
	}
}

func TestCreate_IDsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	s := newTestEvents(t, tabular.NewMemory())

	last := 0
	for i := 0; i < 5; i++ {
		id, err := s.Create(ctx, demoFields())
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if id <= last {
			t.Fatalf("id %d does not exceed previous %d", id, last)
		}
		last = id
	}
}

func TestCreate_IDsNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestEvents(t, tabular.NewMemory())

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, demoFields()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	id, _ := s.Create(ctx, demoFields())
	if id != 4 {
		t.Errorf("id after deleting a middle row = %d, want 4", id)
	}
}

func TestCreate_RestartsAtOneWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestEvents(t, tabular.NewMemory())

	for i := 0; i < 3; i++ {
		if _, err := s.Create(ctx, demoFields()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	for id := 1; id <= 3; id++ {
		if err := s.Delete(ctx, id); err != nil {
			t.Fatalf("delete %d: %v", id, err)
		}
	}
	id, err := s.Create(ctx, demoFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 1 {
		t.Errorf("id after emptying the table = %d, want 1", id)
	}
}

func TestNextID_IgnoresGarbage(t *testing.T) {
	table := tabular.NewMemory(
		models.AttendeeSchema.Columns,
		[]string{"3", "a"},
		[]string{"abc", "b"},
		[]string{" 7 ", "c"},
	)
	s := NewEvents(discardLogger(), table, models.AttendeeSchema, nil)
	id, err := s.NextID(context.Background())
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if id != 8 {
		t.Errorf("next id = %d, want 8", id)
	}
}

// Two writers that both read the maximum before either appends get the same
// id. The store does not guard against this.
func TestNextID_IsNotAtomic(t *testing.T) {
	ctx := context.Background()
	table := tabular.NewMemory()
	a := newTestEvents(t, table)
	b := NewEvents(discardLogger(), table, models.AttendeeSchema, attendees)

	idA, _ := a.NextID(ctx)
	idB, _ := b.NextID(ctx)
	if idA != idB {
		t.Fatalf("expected both writers to compute the same id, got %d and %d", idA, idB)
	}
}

func TestCreateUpdate_RejectInvalid(t *testing.T) {
	ctx := context.Background()
	table := tabular.NewMemory()
	s := newTestEvents(t, table)
	if _, err := s.Create(ctx, demoFields()); err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := table.Values(ctx)

	cases := map[string]func(*models.Fields){
		"end equals start": func(f *models.Fields) { f.End = f.Start },
		"end before start": func(f *models.Fields) { f.End = f.Start.Add(-time.Hour) },
		"empty title":      func(f *models.Fields) { f.Title = "  " },
		"missing start":    func(f *models.Fields) { f.Start = time.Time{} },
		"unknown attendee": func(f *models.Fields) { f.Attendee = "someone" },
		"color name":       func(f *models.Fields) { f.Color = "banana" },
		"color markup":     func(f *models.Fields) { f.Color = `#fff"><script>` },
		"short color":      func(f *models.Fields) { f.Color = "#fff" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := demoFields()
			mutate(&f)

			_, err := s.Create(ctx, f)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("create error = %v, want ValidationError", err)
			}
			if err := s.Update(ctx, 1, f); !errors.As(err, &verr) {
				t.Fatalf("update error = %v, want ValidationError", err)
			}
			after, _ := table.Values(ctx)
			if !reflect.DeepEqual(before, after) {
				t.Errorf("table changed after rejected write")
			}
		})
	}

	f := demoFields()
	f.Color = "#ec7b87"
	if err := s.Update(ctx, 1, f); err != nil {
		t.Errorf("lowercase color rejected: %v", err)
	}
}

func TestUpdate_IsFullReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestEvents(t, tabular.NewMemory())
	id, _ := s.Create(ctx, demoFields())

	repl := models.Fields{
		Title: "Other",
		Start: ts("2025-02-01T09:00:00"),
		End:   ts("2025-02-01T10:00:00"),
		Color: "#B4BDBD",
	}
	if err := s.Update(ctx, id, repl); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id || !reflect.DeepEqual(got.Fields(), repl) {
		t.Errorf("got %+v, want fields %+v", got, repl)
	}
}

func TestUpdateDelete_MissingIDIsNoop(t *testing.T) {
	ctx := context.Background()
	table := tabular.NewMemory()
	s := newTestEvents(t, table)
	_, _ = s.Create(ctx, demoFields())
	before, _ := table.Values(ctx)

	if err := s.Update(ctx, 42, demoFields()); err != nil {
		t.Errorf("update missing: %v", err)
	}
	if err := s.Delete(ctx, 42); err != nil {
		t.Errorf("delete missing: %v", err)
	}
	after, _ := table.Values(ctx)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("table changed: %v", after)
	}
}

func TestUpdate_MatchesIdentifierColumnOnly(t *testing.T) {
	ctx := context.Background()
	table := tabular.NewMemory(
		models.AttendeeSchema.Columns,
		[]string{"1", "2", "2025-01-01T10:00:00", "2025-01-01T11:00:00", "0", "", "", ""},
		[]string{"2", "title", "2025-01-01T10:00:00", "2025-01-01T11:00:00", "0", "", "", ""},
	)
	s := NewEvents(discardLogger(), table, models.AttendeeSchema, attendees)
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	values, _ := table.Values(ctx)
	if len(values) != 2 || values[1][0] != "1" {
		t.Errorf("wrong row deleted: %v", values)
	}
}

func TestList_SynthesizesMissingColumns(t *testing.T) {
	table := tabular.NewMemory(
		[]string{"id", "title", "start", "end"},
		[]string{"5", "Partial", "2025-01-01T10:00:00", "2025-01-01T11:00:00"},
	)
	s := NewEvents(discardLogger(), table, models.AttendeeSchema, attendees)
	listing, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ev := listing.Events[0]
	if ev.ID != 5 || ev.Color != "" || ev.Attendee != "" || ev.Description != "" || ev.AllDay {
		t.Errorf("event = %+v", ev)
	}
}

func TestList_DegradesToRawIDs(t *testing.T) {
	table := tabular.NewMemory(
		models.AttendeeSchema.Columns,
		[]string{"1", "ok"},
		[]string{"x-2", "bad"},
	)
	s := NewEvents(discardLogger(), table, models.AttendeeSchema, attendees)
	listing, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.IDsCoerced {
		t.Fatalf("expected IDsCoerced=false")
	}
	for _, ev := range listing.Events {
		if ev.ID != 0 {
			t.Errorf("event %q kept integer id %d", ev.RawID, ev.ID)
		}
	}
	if listing.Events[1].RawID != "x-2" {
		t.Errorf("raw id = %q", listing.Events[1].RawID)
	}
}

func TestAllDayBoundary(t *testing.T) {
	ctx := context.Background()
	table := tabular.NewMemory()
	s := newTestEvents(t, table)

	start, end := models.AllDayRange(time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC))
	f := demoFields()
	f.Start, f.End, f.AllDay = start, end, true
	if _, err := s.Create(ctx, f); err != nil {
		t.Fatalf("create: %v", err)
	}
	values, _ := table.Values(ctx)
	row := values[1]
	if row[2] != "2025-03-10T00:00:00" || row[3] != "2025-03-11T00:00:00" || row[4] != "1" {
		t.Errorf("stored all-day row = %v", row)
	}
}

func TestBackendErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	table := tabular.NewMemory()
	s := newTestEvents(t, table)
	table.Fail = &tabular.BackendError{Kind: tabular.KindPermissionDenied, Resource: "sheet", Err: errors.New("403")}

	if _, err := s.Create(ctx, demoFields()); !errors.Is(err, tabular.ErrPermissionDenied) {
		t.Errorf("create error = %v", err)
	}
	if _, err := s.List(ctx); !errors.Is(err, tabular.ErrPermissionDenied) {
		t.Errorf("list error = %v", err)
	}
	if err := s.Delete(ctx, 1); !errors.Is(err, tabular.ErrPermissionDenied) {
		t.Errorf("delete error = %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestEvents(t, tabular.NewMemory())
	if _, err := s.Get(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("get error = %v", err)
	}
}

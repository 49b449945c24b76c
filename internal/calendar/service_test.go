package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"kongming/internal/models"
	"kongming/internal/store"
	"kongming/internal/tabular"
)

func newTestService(t *testing.T, facets Facets, schema models.Schema) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := store.NewEvents(logger, tabular.NewMemory(), schema, facets.Values)
	if err := events.Init(context.Background()); err != nil {
		t.Fatalf("init events: %v", err)
	}
	var managers ManagerDirectory
	if schema.Name == models.ChannelSchema.Name {
		m := store.NewManagers(logger, tabular.NewMemory(), nil)
		if err := m.Init(context.Background()); err != nil {
			t.Fatalf("init managers: %v", err)
		}
		managers = m
	}
	return NewService(logger, events, managers, facets)
}

func fields(title, attendee string) models.Fields {
	start := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)
	return models.Fields{Title: title, Start: start, End: start.Add(time.Hour), Attendee: attendee}
}

func TestService_CommandsReturnFreshViews(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, AttendeeFacets(), models.AttendeeSchema)
	st := svc.NewState()

	v, err := svc.Create(ctx, st, fields("Demo", "밍콩콩"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(v.Events) != 1 || v.Events[0].Color != "#EC7B87" || v.Events[0].ID != "1" {
		t.Fatalf("view after create = %+v", v.Events)
	}

	v, ev, err := svc.Edit(ctx, v.State, 1)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if v.State.EditingID != 1 || ev.Title != "Demo" {
		t.Fatalf("edit state = %+v, event = %+v", v.State, ev)
	}

	v, err = svc.Update(ctx, v.State, 1, fields("Demo2", "밍콩콩"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v.State.EditingID != 0 || v.Events[0].Title != "Demo2" {
		t.Fatalf("view after update = %+v", v)
	}

	v, err = svc.Select(ctx, v.State, []string{"콩", "bogus"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(v.Events) != 0 || len(v.State.Selected) != 1 {
		t.Fatalf("view after select = %+v", v)
	}

	v, err = svc.Delete(ctx, svc.NewState(), 1)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(v.Events) != 0 {
		t.Fatalf("view after delete = %+v", v.Events)
	}
}

func TestService_DetailResolvesManagers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, ChannelFacets(), models.ChannelSchema)

	if _, err := svc.RegisterManager(ctx, "A", "a@x.com"); err != nil {
		t.Fatalf("register: %v", err)
	}
	f := fields("launch", "")
	f.Channel = "youtube"
	f.Managers = []string{"A", "B"}
	if _, err := svc.Create(ctx, svc.NewState(), f); err != nil {
		t.Fatalf("create: %v", err)
	}

	d, err := svc.Detail(ctx, 1)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if d.Managers != "A (a@x.com), B (no email)" {
		t.Errorf("managers = %q", d.Managers)
	}
}

func TestService_NoDirectory(t *testing.T) {
	svc := newTestService(t, AttendeeFacets(), models.AttendeeSchema)
	if _, err := svc.RegisterManager(context.Background(), "A", "a@x.com"); !errors.Is(err, ErrNoDirectory) {
		t.Errorf("error = %v", err)
	}
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore(0)
	if _, ok := s.Get("x"); ok {
		t.Fatalf("unexpected session")
	}
	st := State{Selected: []string{"콩"}, EditingID: 3}
	s.Set("x", st)
	st.Selected[0] = "changed"

	got, ok := s.Get("x")
	if !ok || got.Selected[0] != "콩" || got.EditingID != 3 {
		t.Errorf("session = %+v, %v", got, ok)
	}
}

func TestSessionStore_IdleSessionsExpire(t *testing.T) {
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewSessionStore(time.Hour)
	s.now = func() time.Time { return clock }

	s.Set("idle", State{EditingID: 1})
	s.Set("busy", State{EditingID: 2})

	clock = clock.Add(40 * time.Minute)
	if _, ok := s.Get("busy"); !ok {
		t.Fatal("busy session expired early")
	}

	clock = clock.Add(40 * time.Minute)
	if _, ok := s.Get("idle"); ok {
		t.Error("idle session survived its TTL")
	}
	if _, ok := s.Get("busy"); !ok {
		t.Error("touched session expired")
	}

	clock = clock.Add(2 * time.Hour)
	s.Set("new", State{})
	if n := s.Len(); n != 1 {
		t.Errorf("sessions after sweep = %d, want 1", n)
	}
}

func TestState_Equal(t *testing.T) {
	a := State{Selected: []string{"콩", "밍깅"}}
	if !a.Equal(State{Selected: []string{"콩", "밍깅"}}) {
		t.Error("same selection not equal")
	}
	if a.Equal(State{Selected: []string{"콩"}}) || a.Equal(State{Selected: a.Selected, EditingID: 4}) {
		t.Error("different states reported equal")
	}
}

package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kongming/internal/models"
	"kongming/internal/store"
)

// ErrNoDirectory is returned by manager operations when the schema has no
// manager directory.
var ErrNoDirectory = errors.New("manager directory is not configured")

// EventStore is the part of store.Events the service needs.
type EventStore interface {
	List(ctx context.Context) (store.Listing, error)
	Get(ctx context.Context, id int) (models.Event, error)
	Create(ctx context.Context, f models.Fields) (int, error)
	Update(ctx context.Context, id int, f models.Fields) error
	Delete(ctx context.Context, id int) error
}

// ManagerDirectory is the part of store.Managers the service needs.
type ManagerDirectory interface {
	List(ctx context.Context) ([]models.Manager, error)
	Directory(ctx context.Context) (map[string]models.Manager, error)
	Register(ctx context.Context, name, email string) (models.Manager, error)
}

// View is the fresh state returned by every command.
type View struct {
	Events     []DisplayEvent `json:"events"`
	State      State          `json:"state"`
	IDsCoerced bool           `json:"ids_coerced"`
}

// Service runs user commands against the store and re-reads the full event
// set afterwards. It keeps no state between calls.
type Service struct {
	events   EventStore
	managers ManagerDirectory
	facets   Facets
	logger   *slog.Logger
}

// NewService creates a Service. managers may be nil.
func NewService(logger *slog.Logger, events EventStore, managers ManagerDirectory, facets Facets) *Service {
	return &Service{events: events, managers: managers, facets: facets, logger: logger}
}

// Facets returns the facet configuration.
func (s *Service) Facets() Facets { return s.facets }

// NewState returns the initial state: every facet value selected, nothing in edit.
func (s *Service) NewState() State {
	return State{Selected: append([]string{}, s.facets.Values...)}
}

// View renders the calendar for st.
func (s *Service) View(ctx context.Context, st State) (View, error) {
	listing, err := s.events.List(ctx)
	if err != nil {
		return View{}, err
	}
	return View{
		Events:     s.facets.Display(listing.Events, st.Selected),
		State:      st,
		IDsCoerced: listing.IDsCoerced,
	}, nil
}

// Events returns the stored events ordered by facet priority, unfiltered.
func (s *Service) Events(ctx context.Context) ([]models.Event, error) {
	listing, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.facets.Order(listing.Events), nil
}

// Get returns one event for form prefill.
func (s *Service) Get(ctx context.Context, id int) (models.Event, error) {
	return s.events.Get(ctx, id)
}

// Create adds an event. The facet color is used when f.Color is empty.
func (s *Service) Create(ctx context.Context, st State, f models.Fields) (View, error) {
	f.Color = s.facets.ResolveColor(f.Facet(s.facets.Name), f.Color)
	if _, err := s.events.Create(ctx, f); err != nil {
		return View{}, err
	}
	return s.View(ctx, st)
}

// Edit puts id into inline-edit mode and returns the event for prefill.
func (s *Service) Edit(ctx context.Context, st State, id int) (View, models.Event, error) {
	ev, err := s.events.Get(ctx, id)
	if err != nil {
		return View{}, models.Event{}, err
	}
	st.EditingID = id
	v, err := s.View(ctx, st)
	return v, ev, err
}

// Update replaces the event and leaves edit mode.
func (s *Service) Update(ctx context.Context, st State, id int, f models.Fields) (View, error) {
	f.Color = s.facets.ResolveColor(f.Facet(s.facets.Name), f.Color)
	if err := s.events.Update(ctx, id, f); err != nil {
		return View{}, err
	}
	if st.EditingID == id {
		st.EditingID = 0
	}
	return s.View(ctx, st)
}

// Delete removes the event.
func (s *Service) Delete(ctx context.Context, st State, id int) (View, error) {
	if err := s.events.Delete(ctx, id); err != nil {
		return View{}, err
	}
	if st.EditingID == id {
		st.EditingID = 0
	}
	return s.View(ctx, st)
}

// Select replaces the facet selection. Unknown values are dropped.
func (s *Service) Select(ctx context.Context, st State, values []string) (View, error) {
	selected := make([]string, 0, len(values))
	for _, v := range values {
		if s.facets.Known(v) {
			selected = append(selected, v)
		} else {
			s.logger.Debug("Ignoring unknown facet value", "facet", s.facets.Name, "value", v)
		}
	}
	st.Selected = selected
	return s.View(ctx, st)
}

// Detail returns the click-through view of one event.
func (s *Service) Detail(ctx context.Context, id int) (Detail, error) {
	ev, err := s.events.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	dir := map[string]models.Manager{}
	if s.managers != nil && len(ev.Managers) > 0 {
		dir, err = s.managers.Directory(ctx)
		if err != nil {
			return Detail{}, fmt.Errorf("failed to load managers: %w", err)
		}
	}
	return s.facets.Detail(ev, dir), nil
}

// Managers lists the manager directory.
func (s *Service) Managers(ctx context.Context) ([]models.Manager, error) {
	if s.managers == nil {
		return nil, ErrNoDirectory
	}
	return s.managers.List(ctx)
}

// RegisterManager adds a manager to the directory.
func (s *Service) RegisterManager(ctx context.Context, name, email string) (models.Manager, error) {
	if s.managers == nil {
		return models.Manager{}, ErrNoDirectory
	}
	return s.managers.Register(ctx, name, email)
}

// Package store maps calendar events onto a flat row schema held by a
// tabular backend and owns identifier assignment.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"kongming/internal/models"
	"kongming/internal/tabular"
)

// ErrNotFound is returned by Get when no row carries the identifier.
var ErrNotFound = errors.New("event not found")

// Listing is the result of List. IDsCoerced is false when at least one
// identifier was not an integer; every event then carries only RawID.
type Listing struct {
	Events     []models.Event
	IDsCoerced bool
}

// Events is the event store adapter.
type Events struct {
	table  tabular.Table
	schema models.Schema
	facets []string
	logger *slog.Logger
}

// NewEvents creates an adapter over table. facets is the allowed set for the
// schema's classification column; an empty set disables the check.
func NewEvents(logger *slog.Logger, table tabular.Table, schema models.Schema, facets []string) *Events {
	return &Events{table: table, schema: schema, facets: facets, logger: logger}
}

// Schema returns the row layout in use.
func (s *Events) Schema() models.Schema { return s.schema }

// Init writes the header row when the table is empty.
func (s *Events) Init(ctx context.Context) error {
	header, err := s.table.Column(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read events table: %w", err)
	}
	if len(header) > 0 {
		return nil
	}
	s.logger.Info("Events table is empty, writing header.", "schema", s.schema.Name)
	if err := s.table.Append(ctx, s.schema.Columns); err != nil {
		return fmt.Errorf("failed to write events header: %w", err)
	}
	return nil
}

// List returns every event normalized to the schema.
func (s *Events) List(ctx context.Context) (Listing, error) {
	values, err := s.table.Values(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to read events: %w", err)
	}

	records := tabular.Records(values)
	events := make([]models.Event, 0, len(records))
	coerced := true
	for _, rec := range records {
		ev := s.schema.Decode(rec)
		id, err := strconv.Atoi(ev.RawID)
		if err != nil {
			coerced = false
		}
		ev.ID = id
		events = append(events, ev)
	}
	if !coerced {
		s.logger.Warn("Some event identifiers are not integers, leaving them as text.")
		for i := range events {
			events[i].ID = 0
		}
	}
	return Listing{Events: events, IDsCoerced: coerced}, nil
}

// Get returns the event with the given identifier.
func (s *Events) Get(ctx context.Context, id int) (models.Event, error) {
	listing, err := s.List(ctx)
	if err != nil {
		return models.Event{}, err
	}
	want := strconv.Itoa(id)
	for _, ev := range listing.Events {
		if ev.RawID == want {
			ev.ID = id
			return ev, nil
		}
	}
	return models.Event{}, ErrNotFound
}

// Create validates f and appends it under the next free identifier.
func (s *Events) Create(ctx context.Context, f models.Fields) (int, error) {
	if err := Validate(f, s.schema.Facet, s.facets); err != nil {
		return 0, err
	}
	// Not atomic: two writers can read the same maximum.
	id, err := s.NextID(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.table.Append(ctx, s.schema.Row(id, f)); err != nil {
		return 0, fmt.Errorf("failed to append event: %w", err)
	}
	s.logger.Info("Created event.", "id", id, "title", f.Title)
	return id, nil
}

// Update replaces the whole row of the event id. A missing id is a no-op.
func (s *Events) Update(ctx context.Context, id int, f models.Fields) error {
	if err := Validate(f, s.schema.Facet, s.facets); err != nil {
		return err
	}
	n, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Debug("Update target is gone, skipping.", "id", id)
		return nil
	}
	if err := s.table.Update(ctx, n, s.schema.Row(id, f)); err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, err)
	}
	s.logger.Info("Updated event.", "id", id, "title", f.Title)
	return nil
}

// Delete removes the event id. A missing id is a no-op.
func (s *Events) Delete(ctx context.Context, id int) error {
	n, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Debug("Delete target is gone, skipping.", "id", id)
		return nil
	}
	if err := s.table.Delete(ctx, n); err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	s.logger.Info("Deleted event.", "id", id)
	return nil
}

// NextID returns one more than the largest integer identifier, or 1.
// Cells that are not integers are ignored.
func (s *Events) NextID(ctx context.Context) (int, error) {
	col, err := s.table.Column(ctx, s.idColumn())
	if err != nil {
		return 0, fmt.Errorf("failed to read identifier column: %w", err)
	}
	max := 0
	for i, v := range col {
		if i == 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

// find returns the 1-based row position of id, or 0 when absent.
func (s *Events) find(ctx context.Context, id int) (int, error) {
	col, err := s.table.Column(ctx, s.idColumn())
	if err != nil {
		return 0, fmt.Errorf("failed to read identifier column: %w", err)
	}
	want := strconv.Itoa(id)
	for i, v := range col {
		if i == 0 {
			continue
		}
		if strings.TrimSpace(v) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *Events) idColumn() int {
	for i, c := range s.schema.Columns {
		if c == models.ColumnID {
			return i
		}
	}
	return 0
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"kongming/internal/models"
	"kongming/internal/tabular"
)

// ErrDuplicateManager is returned when registering a name that already exists.
var ErrDuplicateManager = errors.New("manager already registered")

// Managers is the manager directory of the channel schema. Entries are only
// ever appended.
type Managers struct {
	table  tabular.Table
	logger *slog.Logger
	now    func() time.Time
}

// NewManagers creates a directory over table.
func NewManagers(logger *slog.Logger, table tabular.Table, now func() time.Time) *Managers {
	if now == nil {
		now = time.Now
	}
	return &Managers{table: table, logger: logger, now: now}
}

// Init writes the header row when the table is empty.
func (m *Managers) Init(ctx context.Context) error {
	header, err := m.table.Column(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read managers table: %w", err)
	}
	if len(header) > 0 {
		return nil
	}
	if err := m.table.Append(ctx, models.ManagerColumns); err != nil {
		return fmt.Errorf("failed to write managers header: %w", err)
	}
	return nil
}

// List returns every registered manager in table order.
func (m *Managers) List(ctx context.Context) ([]models.Manager, error) {
	values, err := m.table.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read managers: %w", err)
	}
	var out []models.Manager
	for _, rec := range tabular.Records(values) {
		out = append(out, models.Manager{
			Name:      strings.TrimSpace(rec["name"]),
			Email:     strings.TrimSpace(rec["email"]),
			CreatedAt: models.ParseTimestamp(rec["created_at"]),
		})
	}
	return out, nil
}

// Directory returns the managers keyed by name. The first entry wins.
func (m *Managers) Directory(ctx context.Context) (map[string]models.Manager, error) {
	list, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	dir := make(map[string]models.Manager, len(list))
	for _, mg := range list {
		if _, ok := dir[mg.Name]; !ok {
			dir[mg.Name] = mg
		}
	}
	return dir, nil
}

// Register adds a manager. The name must be new and the email well formed.
func (m *Managers) Register(ctx context.Context, name, email string) (models.Manager, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	var problems []string
	if name == "" {
		problems = append(problems, "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		problems = append(problems, "email is not a valid address")
	}
	if len(problems) > 0 {
		return models.Manager{}, &ValidationError{Problems: problems}
	}

	dir, err := m.Directory(ctx)
	if err != nil {
		return models.Manager{}, err
	}
	if _, ok := dir[name]; ok {
		return models.Manager{}, fmt.Errorf("%w: %s", ErrDuplicateManager, name)
	}

	mg := models.Manager{Name: name, Email: email, CreatedAt: m.now()}
	row := []string{mg.Name, mg.Email, models.FormatTimestamp(mg.CreatedAt)}
	if err := m.table.Append(ctx, row); err != nil {
		return models.Manager{}, fmt.Errorf("failed to append manager: %w", err)
	}
	m.logger.Info("Registered manager.", "name", name)
	return mg, nil
}

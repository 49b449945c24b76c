// Package sqlite keeps the event and manager tables in a local SQLite file.
//
// Each logical table is stored as ordered rows of text cells so the event
// store sees the same row-oriented shape it gets from a worksheet.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kongming/internal/tabular"
)

// row is one stored line of a logical table. Position order is the row order.
type row struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Sheet string `gorm:"size:64;not null;index"`
	Cells string `gorm:"type:text;not null"`
}

func (row) TableName() string { return "sheet_rows" }

// DB is an open SQLite file. Open it once and share it.
type DB struct {
	gorm   *gorm.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite file at path and migrates it.
func Open(logger *slog.Logger, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &tabular.BackendError{Kind: tabular.KindUnreachable, Resource: path, Err: err}
		}
	}
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, &tabular.BackendError{Kind: tabular.KindUnreachable, Resource: path, Err: err}
	}
	if err := gdb.AutoMigrate(&row{}); err != nil {
		return nil, classify(err, path)
	}
	logger.Info("Opened SQLite database", "path", path)
	return &DB{gorm: gdb, path: path, logger: logger}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Table returns the logical table called name.
func (db *DB) Table(name string) *Table {
	return &Table{db: db, name: name}
}

// Table is a tabular.Table stored in sheet_rows.
type Table struct {
	db   *DB
	name string
}

var _ tabular.Table = (*Table)(nil)

func (t *Table) rows(ctx context.Context) ([]row, error) {
	var rows []row
	err := t.db.gorm.WithContext(ctx).
		Where("sheet = ?", t.name).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, classify(err, t.db.path)
	}
	return rows, nil
}

func (t *Table) Values(ctx context.Context) ([][]string, error) {
	rows, err := t.rows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, decodeCells(r.Cells))
	}
	return out, nil
}

func (t *Table) Column(ctx context.Context, index int) ([]string, error) {
	values, err := t.Values(ctx)
	if err != nil {
		return nil, err
	}
	col := make([]string, 0, len(values))
	for _, cells := range values {
		if index < len(cells) {
			col = append(col, cells[index])
		} else {
			col = append(col, "")
		}
	}
	return col, nil
}

func (t *Table) Append(ctx context.Context, cells []string) error {
	r := row{Sheet: t.name, Cells: encodeCells(cells)}
	if err := t.db.gorm.WithContext(ctx).Create(&r).Error; err != nil {
		return classify(err, t.db.path)
	}
	return nil
}

func (t *Table) Update(ctx context.Context, n int, cells []string) error {
	r, err := t.at(ctx, n)
	if err != nil {
		return err
	}
	err = t.db.gorm.WithContext(ctx).Model(&row{}).
		Where("id = ?", r.ID).
		Update("cells", encodeCells(cells)).Error
	if err != nil {
		return classify(err, t.db.path)
	}
	return nil
}

func (t *Table) Delete(ctx context.Context, n int) error {
	r, err := t.at(ctx, n)
	if err != nil {
		return err
	}
	if err := t.db.gorm.WithContext(ctx).Delete(&row{}, r.ID).Error; err != nil {
		return classify(err, t.db.path)
	}
	return nil
}

// at returns the row at the 1-based position n.
func (t *Table) at(ctx context.Context, n int) (row, error) {
	if n < 1 {
		return row{}, fmt.Errorf("row %d out of range", n)
	}
	var r row
	err := t.db.gorm.WithContext(ctx).
		Where("sheet = ?", t.name).
		Order("id").
		Offset(n - 1).
		Limit(1).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row{}, fmt.Errorf("row %d out of range", n)
	}
	if err != nil {
		return row{}, classify(err, t.db.path)
	}
	return r, nil
}

func encodeCells(cells []string) string {
	b, _ := json.Marshal(cells)
	return string(b)
}

func decodeCells(s string) []string {
	var cells []string
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return nil
	}
	return cells
}

func classify(err error, path string) error {
	kind := tabular.KindUnknown
	if errors.Is(err, os.ErrPermission) {
		kind = tabular.KindPermissionDenied
	}
	return &tabular.BackendError{Kind: kind, Resource: path, Err: err}
}

package tabular

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Table used as the backend in tests.
type Memory struct {
	mu   sync.Mutex
	rows [][]string
	// Fail, when set, is returned by every call.
	Fail error
}

// NewMemory returns a table holding a copy of rows (header first).
func NewMemory(rows ...[]string) *Memory {
	m := &Memory{}
	for _, r := range rows {
		m.rows = append(m.rows, clone(r))
	}
	return m
}

func (m *Memory) Values(_ context.Context) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = clone(r)
	}
	return out, nil
}

func (m *Memory) Column(_ context.Context, index int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	col := make([]string, 0, len(m.rows))
	for _, r := range m.rows {
		if index < len(r) {
			col = append(col, r[index])
		} else {
			col = append(col, "")
		}
	}
	return col, nil
}

func (m *Memory) Append(_ context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.rows = append(m.rows, clone(row))
	return nil
}

func (m *Memory) Update(_ context.Context, n int, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if n < 1 || n > len(m.rows) {
		return fmt.Errorf("row %d out of range", n)
	}
	m.rows[n-1] = clone(row)
	return nil
}

func (m *Memory) Delete(_ context.Context, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if n < 1 || n > len(m.rows) {
		return fmt.Errorf("row %d out of range", n)
	}
	m.rows = append(m.rows[:n-1], m.rows[n:]...)
	return nil
}

func clone(r []string) []string {
	return append([]string(nil), r...)
}

package tabular

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecords(t *testing.T) {
	got := Records([][]string{
		{"id", "title", ""},
		{"1", "Demo", "extra", "beyond"},
		{"", "", ""},
		{"2"},
	})
	if len(got) != 2 {
		t.Fatalf("records = %v", got)
	}
	if got[0]["title"] != "Demo" || len(got[0]) != 2 {
		t.Errorf("first record = %v", got[0])
	}
	if _, ok := got[1]["title"]; ok {
		t.Errorf("short row has title: %v", got[1])
	}
	if Records([][]string{{"id"}}) != nil {
		t.Error("header-only table should have no records")
	}
}

func TestBackendError_IsAndDiagnostic(t *testing.T) {
	err := fmt.Errorf("failed to read events: %w", &BackendError{Kind: KindWorksheetMissing, Resource: "events", Err: errors.New("400")})
	if !errors.Is(err, ErrWorksheetMissing) {
		t.Error("errors.Is did not match the worksheet sentinel")
	}
	if errors.Is(err, ErrPermissionDenied) {
		t.Error("errors.Is matched the wrong kind")
	}
	if d := Diagnostic(err); !strings.Contains(d, `"events"`) {
		t.Errorf("diagnostic = %q", d)
	}
	if d := Diagnostic(errors.New("boom")); d != "boom" {
		t.Errorf("plain diagnostic = %q", d)
	}

	seen := map[string]bool{}
	for _, k := range []Kind{KindUnknown, KindSpreadsheetNotFound, KindPermissionDenied, KindWorksheetMissing, KindUnreachable} {
		d := (&BackendError{Kind: k, Resource: "x", Err: errors.New("cause")}).Diagnostic()
		if seen[d] {
			t.Errorf("kind %s shares its diagnostic", k)
		}
		seen[d] = true
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]string{"id", "title"})
	_ = m.Append(ctx, []string{"1", "a"})
	_ = m.Append(ctx, []string{"2", "b"})
	if err := m.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	col, _ := m.Column(ctx, 1)
	if strings.Join(col, ",") != "title,b" {
		t.Errorf("column = %v", col)
	}
	m.Fail = ErrUnreachable
	if _, err := m.Values(ctx); !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v", err)
	}
}

package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"kongming/internal/models"
)

func TestWrite(t *testing.T) {
	start, end := models.AllDayRange(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	events := []models.Event{
		{
			ID: 1, RawID: "1", Title: "Demo",
			Start:       time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC),
			End:         time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC),
			Description: "notes", Attendee: "콩",
		},
		{ID: 2, RawID: "2", Title: "Holiday", Start: start, End: end, AllDay: true},
		{ID: 3, RawID: "3", Title: "Broken row"},
	}
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, events, "attendee", loc, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"UID:1@kongming",
		"SUMMARY:Demo",
		"DTSTART:20250101T090000Z",
		"DTEND:20250101T100000Z",
		"DTSTART;VALUE=DATE:20250310",
		"DTEND;VALUE=DATE:20250311",
		"CATEGORIES:콩",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	for _, unwanted := range []string{"TZID", "Broken row", "00010101"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("output contains %q:\n%s", unwanted, out)
		}
	}

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n := len(cal.Events()); n != 2 {
		t.Errorf("decoded %d events, want 2", n)
	}
}

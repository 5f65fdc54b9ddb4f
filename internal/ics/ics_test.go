package ics_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/derickschaefer/campcheck/internal/ics"
	"github.com/derickschaefer/campcheck/internal/model"
)

func sample() *model.AvailabilityResult {
	return &model.AvailabilityResult{
		CampgroundName: "Upper Pines",
		Year:           2025,
		Months: []model.MonthAvailability{{
			Month: 6,
			Sites: []model.SiteAvailability{
				{
					CampsiteID: "101",
					Site:       "A1",
					Loop:       "North",
					Availabilities: model.NewStatusMap(
						"2025-06-01T00:00:00Z", "Available",
						"2025-06-02T00:00:00Z", "Reserved",
						"2025-06-03T00:00:00Z", "Available",
					),
				},
				{
					CampsiteID:     "102",
					Site:           "B2",
					Availabilities: model.NewStatusMap("2025-06-05T00:00:00Z", "Available"),
				},
			},
		}},
	}
}

func parse(t *testing.T, body string) *ical.Calendar {
	t.Helper()
	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	return cal
}

func TestBuildOneEventPerAvailableDate(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	cal := parse(t, ics.Build(sample(), ics.Options{Now: now}).Serialize())

	events := cal.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	uid := events[0].GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value != "upper-pines-101-20250601@campcheck" {
		t.Errorf("unexpected UID: %+v", uid)
	}
	summary := events[0].GetProperty(ical.ComponentPropertySummary)
	if summary == nil || summary.Value != "Upper Pines site A1 available" {
		t.Errorf("unexpected summary: %+v", summary)
	}
	start := events[0].GetProperty(ical.ComponentPropertyDtStart)
	if start == nil || start.Value != "20250601" {
		t.Errorf("expected all-day start 20250601, got %+v", start)
	}
}

func TestBuildSiteFilter(t *testing.T) {
	cal := parse(t, ics.Build(sample(), ics.Options{Site: "b2"}).Serialize())
	if n := len(cal.Events()); n != 1 {
		t.Errorf("expected 1 event for B2, got %d", n)
	}
}

func TestWriteEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	if err := ics.Write(&buf, nil, ics.Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.Contains(buf.String(), "BEGIN:VCALENDAR") {
		t.Errorf("expected a calendar wrapper, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "BEGIN:VEVENT") {
		t.Error("nil result should have no events")
	}
}

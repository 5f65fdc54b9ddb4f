package calendar_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func site(id, label, loop string, pairs ...string) model.SiteAvailability {
	return model.SiteAvailability{
		CampsiteID:     id,
		Site:           label,
		Loop:           loop,
		Availabilities: model.NewStatusMap(pairs...),
	}
}

// ─── DaysOfMonth ──────────────────────────────────────────────────────────────

func TestDaysOfMonthLengths(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2025, 1, 31},
		{2025, 2, 28},
		{2024, 2, 29},
		{2100, 2, 28}, // divisible by 100, not 400
		{2000, 2, 29}, // divisible by 400
		{2025, 4, 30},
		{2025, 6, 30},
		{2025, 7, 31},
		{2025, 9, 30},
		{2025, 11, 30},
		{2025, 12, 31},
	}
	for _, c := range cases {
		days := calendar.DaysOfMonth(c.year, c.month)
		if len(days) != c.want {
			t.Errorf("%d-%02d: expected %d days, got %d", c.year, c.month, c.want, len(days))
			continue
		}
		for i, d := range days {
			if d.Day() != i+1 {
				t.Errorf("%d-%02d: day %d out of order (got %d)", c.year, c.month, i+1, d.Day())
			}
			if int(d.Month()) != c.month || d.Year() != c.year {
				t.Errorf("%d-%02d: overflowed into %v", c.year, c.month, d)
			}
		}
	}
}

func TestDaysOfMonthOutOfRange(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if days := calendar.DaysOfMonth(2025, m); len(days) != 0 {
			t.Errorf("month %d: expected no days, got %d", m, len(days))
		}
	}
}

// ─── DayAbbreviation ──────────────────────────────────────────────────────────

func TestDayAbbreviation(t *testing.T) {
	cases := map[time.Time]string{
		date(2025, 6, 1):   "SUN",
		date(2025, 6, 2):   "MON",
		date(2025, 3, 5):   "WED",
		date(2024, 2, 29):  "THU",
		date(2025, 12, 27): "SAT",
	}
	for d, want := range cases {
		got := calendar.DayAbbreviation(d)
		if got != want {
			t.Errorf("%s: expected %s, got %s", d.Format("2006-01-02"), want, got)
		}
		if again := calendar.DayAbbreviation(d); again != got {
			t.Errorf("%s: unstable abbreviation %s vs %s", d.Format("2006-01-02"), got, again)
		}
	}
}

// ─── DateKey / StatusOf ───────────────────────────────────────────────────────

func TestDateKeyZeroPads(t *testing.T) {
	if got := calendar.DateKey(2025, 3, 5); got != "2025-03-05T00:00:00Z" {
		t.Errorf("expected 2025-03-05T00:00:00Z, got %q", got)
	}
	if got := calendar.DateKey(2025, 12, 31); got != "2025-12-31T00:00:00Z" {
		t.Errorf("expected 2025-12-31T00:00:00Z, got %q", got)
	}
}

func TestStatusOfRoundTrip(t *testing.T) {
	m := model.NewStatusMap("2025-03-05T00:00:00Z", "Available")
	if got := calendar.StatusOf(m, date(2025, 3, 5), 2025); got != model.StatusAvailable {
		t.Errorf("expected Available, got %v", got)
	}
	if got := calendar.StatusOf(m, date(2025, 3, 5), 2026); got != model.StatusUnknown {
		t.Errorf("explicit year 2026 should miss, got %v", got)
	}
}

func TestStatusOfSilentDefaults(t *testing.T) {
	valid := model.NewStatusMap("2025-03-05T00:00:00Z", "Available")
	if got := calendar.StatusOf(model.StatusMap{}, date(2025, 3, 5), 2025); got != model.StatusUnknown {
		t.Errorf("empty map: expected Unknown, got %v", got)
	}
	if got := calendar.StatusOf(valid, date(2025, 3, 5), 0); got != model.StatusUnknown {
		t.Errorf("zero year: expected Unknown, got %v", got)
	}
}

func TestStatusOfExactMatchOnly(t *testing.T) {
	m := model.NewStatusMap(
		"2025-03-01T00:00:00Z", "available",
		"2025-03-02T00:00:00Z", "Reserved",
		"2025-03-03T00:00:00Z", "Reserved ",
		"2025-03-04T00:00:00Z", "Not Available",
	)
	want := []model.Status{model.StatusUnknown, model.StatusReserved, model.StatusUnknown, model.StatusUnknown}
	for i, w := range want {
		if got := calendar.StatusOf(m, date(2025, 3, i+1), 2025); got != w {
			t.Errorf("day %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestStatusOfPure(t *testing.T) {
	m := model.NewStatusMap("2025-06-01T00:00:00Z", "Reserved")
	a := calendar.StatusOf(m, date(2025, 6, 1), 2025)
	b := calendar.StatusOf(m, date(2025, 6, 1), 2025)
	if a != b {
		t.Errorf("StatusOf not deterministic: %v vs %v", a, b)
	}
}

// ─── AvailableDateLabels ──────────────────────────────────────────────────────

func TestAvailableDateLabelsInsertionOrder(t *testing.T) {
	s := site("1", "001", "A",
		"2025-06-20T00:00:00Z", "Available",
		"2025-06-03T00:00:00Z", "Reserved",
		"2025-06-05T00:00:00Z", "Available",
		"2025-06-01T00:00:00Z", "Available",
		"2025-06-02T00:00:00Z", "Open",
	)
	got := calendar.AvailableDateLabels(s, "")
	want := []string{"6/20/2025", "6/5/2025", "6/1/2025"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("labels:\n  expected %v\n  got      %v", want, got)
	}
}

func TestAvailableDateLabelsEmpty(t *testing.T) {
	got := calendar.AvailableDateLabels(site("1", "001", "A"), "")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestAvailableDateLabelsCustomLayout(t *testing.T) {
	s := site("1", "001", "A", "2025-06-05T00:00:00Z", "Available")
	got := calendar.AvailableDateLabels(s, "2006-01-02")
	if len(got) != 1 || got[0] != "2025-06-05" {
		t.Errorf("expected [2025-06-05], got %v", got)
	}
}

// ─── ProjectMonth ─────────────────────────────────────────────────────────────

func TestProjectMonthJuneScenario(t *testing.T) {
	month := model.MonthAvailability{
		Month: 6,
		Sites: []model.SiteAvailability{
			site("77", "012", "Loop B", "2025-06-01T00:00:00Z", "Reserved"),
		},
	}
	g := calendar.ProjectMonth(month, 2025, calendar.Options{})

	if g.Title != "June 2025" {
		t.Errorf("title: expected June 2025, got %q", g.Title)
	}
	if len(g.Headers) != 30 {
		t.Fatalf("headers: expected 30, got %d", len(g.Headers))
	}
	if len(g.Rows) != 1 {
		t.Fatalf("rows: expected 1, got %d", len(g.Rows))
	}
	row := g.Rows[0]
	if row.Site != "012" || row.Loop != "Loop B" {
		t.Errorf("row labels: got site=%q loop=%q", row.Site, row.Loop)
	}
	if row.Shareable() {
		t.Error("site without available dates should not be shareable")
	}
	if row.Cells[0].Status != model.StatusReserved {
		t.Errorf("day 1: expected Reserved, got %v", row.Cells[0].Status)
	}
	for _, c := range row.Cells[1:] {
		if c.Status != model.StatusUnknown {
			t.Errorf("day %d: expected Unknown, got %v", c.Day, c.Status)
		}
	}
	if row.Cells[0].Weekday != "SUN" {
		t.Errorf("June 1 2025 should be SUN, got %s", row.Cells[0].Weekday)
	}
}

func TestProjectMonthKeepsSiteOrder(t *testing.T) {
	month := model.MonthAvailability{
		Month: 7,
		Sites: []model.SiteAvailability{
			site("9", "C", "x"),
			site("1", "A", "x"),
			site("5", "B", "x"),
		},
	}
	g := calendar.ProjectMonth(month, 2025, calendar.Options{})
	var order []string
	for _, r := range g.Rows {
		order = append(order, r.Site)
	}
	if !reflect.DeepEqual(order, []string{"C", "A", "B"}) {
		t.Errorf("site order changed: %v", order)
	}
}

func TestProjectDeterministic(t *testing.T) {
	result := &model.AvailabilityResult{
		Year: 2025,
		Months: []model.MonthAvailability{
			{Month: 6, Sites: []model.SiteAvailability{site("1", "001", "A", "2025-06-10T00:00:00Z", "Available")}},
			{Month: 7, Sites: []model.SiteAvailability{site("1", "001", "A", "2025-07-04T00:00:00Z", "Reserved")}},
		},
	}
	a := calendar.Project(result, calendar.Options{})
	b := calendar.Project(result, calendar.Options{})
	if !reflect.DeepEqual(a, b) {
		t.Error("Project should be deterministic for identical input")
	}
	if len(a) != 2 || a[0].Month != 6 || a[1].Month != 7 {
		t.Fatalf("unexpected grids: %+v", a)
	}
	if !a[0].Rows[0].Shareable() {
		t.Error("June row has an available date and should be shareable")
	}
}

func TestFindRowsCaseInsensitive(t *testing.T) {
	g := calendar.ProjectMonth(model.MonthAvailability{
		Month: 6,
		Sites: []model.SiteAvailability{site("1", "A12", "x")},
	}, 2025, calendar.Options{})
	if len(g.FindRows(calendar.SiteRef{Site: "a12"})) != 1 {
		t.Error("expected case-insensitive match for a12")
	}
	if len(g.FindRows(calendar.SiteRef{Site: "B1"})) != 0 {
		t.Error("did not expect a match for B1")
	}
	if len(g.FindRows(calendar.SiteRef{})) != 0 {
		t.Error("an empty ref should match nothing")
	}
}

func TestFindRowsNarrowsSharedLabels(t *testing.T) {
	g := calendar.ProjectMonth(model.MonthAvailability{
		Month: 6,
		Sites: []model.SiteAvailability{
			site("11", "001", "Loop A"),
			site("22", "001", "Loop B"),
		},
	}, 2025, calendar.Options{})
	if rows := g.FindRows(calendar.SiteRef{Site: "001"}); len(rows) != 2 {
		t.Fatalf("expected both 001 rows, got %d", len(rows))
	}
	rows := g.FindRows(calendar.SiteRef{Site: "001", Loop: "loop b"})
	if len(rows) != 1 || rows[0].CampsiteID != "22" {
		t.Errorf("loop should narrow to campsite 22, got %+v", rows)
	}
	rows = g.FindRows(calendar.SiteRef{CampsiteID: "11"})
	if len(rows) != 1 || rows[0].Loop != "Loop A" || rows[0].Key() != "11" {
		t.Errorf("campsite id should select Loop A, got %+v", rows)
	}
}

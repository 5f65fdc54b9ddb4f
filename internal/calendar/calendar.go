// Package calendar projects sparse per-date availability into dense month
// grids. All functions are pure; no I/O.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/derickschaefer/campcheck/internal/model"
)

// DefaultLabelLayout renders available dates as en-US short dates (3/5/2025).
const DefaultLabelLayout = "1/2/2006"

// dateKeyLayout is the backend's status-map key format. The time of day is
// always literal midnight UTC.
const dateKeyLayout = "2006-01-02T15:04:05Z"

// ─── Days ─────────────────────────────────────────────────────────────────────

// DaysOfMonth returns every date in (year, month), ascending.
// A month outside 1–12 yields no days.
func DaysOfMonth(year, month int) []time.Time {
	if month < 1 || month > 12 {
		return nil
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	var days []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DayAbbreviation returns the upper-case three-letter weekday: MON, TUE, ...
func DayAbbreviation(date time.Time) string {
	return strings.ToUpper(date.Weekday().String()[:3])
}

// DateKey builds the canonical status-map key for a civil date.
func DateKey(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02dT00:00:00Z", year, month, day)
}

// StatusOf looks up date in statuses. The key uses the explicit year with the
// date's own month and day. An empty map or a zero year is always Unknown.
func StatusOf(statuses model.StatusMap, date time.Time, year int) model.Status {
	if statuses.Len() == 0 || year == 0 {
		return model.StatusUnknown
	}
	raw, ok := statuses.Get(DateKey(year, int(date.Month()), date.Day()))
	if !ok {
		return model.StatusUnknown
	}
	return model.ParseStatus(raw)
}

// AvailableDateLabels lists the site's Available dates in the map's
// insertion order, each formatted with layout. Keys that are not valid
// date keys are skipped.
func AvailableDateLabels(site model.SiteAvailability, layout string) []string {
	if layout == "" {
		layout = DefaultLabelLayout
	}
	labels := []string{}
	for _, e := range site.Availabilities.Entries() {
		if model.ParseStatus(e.Status) != model.StatusAvailable {
			continue
		}
		t, err := time.Parse(dateKeyLayout, e.Key)
		if err != nil {
			continue
		}
		labels = append(labels, t.UTC().Format(layout))
	}
	return labels
}

// ─── Grid ─────────────────────────────────────────────────────────────────────

// Cell is one day of one site.
type Cell struct {
	Day     int          `json:"day"`
	Weekday string       `json:"weekday"`
	Status  model.Status `json:"status"`
}

// Row is one site across a whole month.
type Row struct {
	CampsiteID     string   `json:"campsite_id"`
	Site           string   `json:"site"`
	Loop           string   `json:"loop"`
	AvailableDates []string `json:"available_dates"`
	Cells          []Cell   `json:"cells"`
}

// Shareable reports whether the site has any available date to share.
func (r Row) Shareable() bool { return len(r.AvailableDates) > 0 }

// Header is one column heading of the grid.
type Header struct {
	Day     int    `json:"day"`
	Weekday string `json:"weekday"`
}

// Grid is a month table: a header per day and a row per site.
type Grid struct {
	Year    int      `json:"year"`
	Month   int      `json:"month"`
	Title   string   `json:"title"`
	Headers []Header `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Options controls projection details that do not affect statuses.
type Options struct {
	// LabelLayout formats available-date labels. Empty means DefaultLabelLayout.
	LabelLayout string
}

// ProjectMonth builds the grid for one month of results.
func ProjectMonth(month model.MonthAvailability, year int, opts Options) Grid {
	days := DaysOfMonth(year, month.Month)
	g := Grid{
		Year:    year,
		Month:   month.Month,
		Title:   MonthTitle(year, month.Month),
		Headers: make([]Header, len(days)),
		Rows:    make([]Row, 0, len(month.Sites)),
	}
	for i, d := range days {
		g.Headers[i] = Header{Day: d.Day(), Weekday: DayAbbreviation(d)}
	}
	for _, site := range month.Sites {
		row := Row{
			CampsiteID:     site.CampsiteID,
			Site:           site.Site,
			Loop:           site.Loop,
			AvailableDates: AvailableDateLabels(site, opts.LabelLayout),
			Cells:          make([]Cell, len(days)),
		}
		for i, d := range days {
			row.Cells[i] = Cell{
				Day:     d.Day(),
				Weekday: g.Headers[i].Weekday,
				Status:  StatusOf(site.Availabilities, d, year),
			}
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

// Project builds one grid per month of result, in result order.
func Project(result *model.AvailabilityResult, opts Options) []Grid {
	if result == nil {
		return nil
	}
	grids := make([]Grid, 0, len(result.Months))
	for _, m := range result.Months {
		grids = append(grids, ProjectMonth(m, result.Year, opts))
	}
	return grids
}

// MonthTitle returns e.g. "June 2025". Out-of-range months render as the
// bare number.
func MonthTitle(year, month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d %d", month, year)
	}
	return fmt.Sprintf("%s %d", time.Month(month), year)
}

// SiteRef picks sites by label. Loop and CampsiteID narrow the match when
// set; comparisons of label and loop ignore case.
type SiteRef struct {
	Site       string
	Loop       string
	CampsiteID string
}

// Matches reports whether ref selects row. An empty ref matches nothing.
func (ref SiteRef) Matches(row Row) bool {
	if ref.Site == "" && ref.CampsiteID == "" {
		return false
	}
	if ref.CampsiteID != "" && row.CampsiteID != ref.CampsiteID {
		return false
	}
	if ref.Site != "" && !strings.EqualFold(row.Site, ref.Site) {
		return false
	}
	if ref.Loop != "" && !strings.EqualFold(row.Loop, ref.Loop) {
		return false
	}
	return true
}

// FindRows returns every row ref matches, in grid order.
func (g Grid) FindRows(ref SiteRef) []Row {
	var out []Row
	for _, r := range g.Rows {
		if ref.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Key identifies the row's site across months.
func (r Row) Key() string { return model.SiteKey(r.CampsiteID, r.Site, r.Loop) }

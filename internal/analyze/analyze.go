// Package analyze computes per-site availability summaries over projected
// month grids. All functions are pure; no I/O.
package analyze

import (
	"sort"

	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/model"
)

// ─── Runs ─────────────────────────────────────────────────────────────────────

// Run is a stretch of consecutive Available days within one month.
type Run struct {
	StartDay int `json:"start_day"`
	Length   int `json:"length"`
}

// Nights is the number of nights a stay covering the run could book.
func (r Run) Nights() int { return r.Length }

// Runs returns the row's available runs in day order.
func Runs(row calendar.Row) []Run {
	var runs []Run
	cur := Run{}
	for _, c := range row.Cells {
		if c.Status == model.StatusAvailable {
			if cur.Length == 0 {
				cur.StartDay = c.Day
			}
			cur.Length++
			continue
		}
		if cur.Length > 0 {
			runs = append(runs, cur)
			cur = Run{}
		}
	}
	if cur.Length > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// FitsStay reports whether the row has a run of at least nights days.
func FitsStay(row calendar.Row, nights int) bool {
	if nights <= 0 {
		return true
	}
	for _, r := range Runs(row) {
		if r.Length >= nights {
			return true
		}
	}
	return false
}

// ─── Summary ──────────────────────────────────────────────────────────────────

// SiteSummary holds the counts for one site in one month.
type SiteSummary struct {
	Year         int     `json:"year"`
	Month        int     `json:"month"`
	Site         string  `json:"site"`
	Loop         string  `json:"loop"`
	Days         int     `json:"days"`
	Available    int     `json:"available"`
	Reserved     int     `json:"reserved"`
	Unknown      int     `json:"unknown"`
	OccupancyPct float64 `json:"occupancy_pct"` // reserved / (available+reserved) * 100
	LongestRun   Run     `json:"longest_run"`
}

// SummarizeRow computes the summary of one row of g.
func SummarizeRow(g calendar.Grid, row calendar.Row) SiteSummary {
	s := SiteSummary{
		Year:  g.Year,
		Month: g.Month,
		Site:  row.Site,
		Loop:  row.Loop,
		Days:  len(row.Cells),
	}
	for _, c := range row.Cells {
		switch c.Status {
		case model.StatusAvailable:
			s.Available++
		case model.StatusReserved:
			s.Reserved++
		default:
			s.Unknown++
		}
	}
	if known := s.Available + s.Reserved; known > 0 {
		s.OccupancyPct = float64(s.Reserved) / float64(known) * 100
	}
	for _, r := range Runs(row) {
		if r.Length > s.LongestRun.Length {
			s.LongestRun = r
		}
	}
	return s
}

// Summarize returns one summary per row of every grid, in grid then row order.
func Summarize(grids []calendar.Grid) []SiteSummary {
	var out []SiteSummary
	for _, g := range grids {
		for _, row := range g.Rows {
			out = append(out, SummarizeRow(g, row))
		}
	}
	return out
}

// ─── Totals ───────────────────────────────────────────────────────────────────

// Totals aggregates a set of site summaries.
type Totals struct {
	SiteMonths    int     `json:"site_months"`
	WithAvailable int     `json:"with_available"`
	Available     int     `json:"available"`
	Reserved      int     `json:"reserved"`
	Unknown       int     `json:"unknown"`
	OccupancyPct  float64 `json:"occupancy_pct"`
	BestSite      string  `json:"best_site,omitempty"`
	BestMonth     int     `json:"best_month,omitempty"`
	BestRun       Run     `json:"best_run"`
}

// Total aggregates sums. The best site is the one with the longest run,
// first listed wins ties.
func Total(sums []SiteSummary) Totals {
	var t Totals
	for _, s := range sums {
		t.SiteMonths++
		if s.Available > 0 {
			t.WithAvailable++
		}
		t.Available += s.Available
		t.Reserved += s.Reserved
		t.Unknown += s.Unknown
		if s.LongestRun.Length > t.BestRun.Length {
			t.BestRun = s.LongestRun
			t.BestSite = s.Site
			t.BestMonth = s.Month
		}
	}
	if known := t.Available + t.Reserved; known > 0 {
		t.OccupancyPct = float64(t.Reserved) / float64(known) * 100
	}
	return t
}

// ByAvailability returns a copy of sums ordered by available days, most
// first. Equal counts keep their input order.
func ByAvailability(sums []SiteSummary) []SiteSummary {
	out := make([]SiteSummary, len(sums))
	copy(out, sums)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Available > out[j].Available
	})
	return out
}

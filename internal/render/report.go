package render

import (
	"strings"

	"github.com/derickschaefer/campcheck/internal/analyze"
	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/model"
)

// AvailabilityReport is the payload of a KindAvailability result: the raw
// result narrowed by the filter, its month grids, and optional summaries.
type AvailabilityReport struct {
	Result     *model.AvailabilityResult `json:"-"`
	Campground string                    `json:"campground_name"`
	Year       int                       `json:"year"`
	Grids      []calendar.Grid           `json:"grids"`
	Summaries  []analyze.SiteSummary     `json:"summaries,omitempty"`
	Totals     *analyze.Totals           `json:"totals,omitempty"`
	Site       string                    `json:"site,omitempty"`
}

// Filter narrows a report.
type Filter struct {
	// Site keeps only sites with this label (case-insensitive).
	Site string
	// Nights keeps only sites with at least this many consecutive
	// available days in a month.
	Nights int
	// Summary adds per-site summaries and totals.
	Summary bool
}

// SummaryReport is the payload of a KindSummary result.
type SummaryReport struct {
	Campground string                `json:"campground_name"`
	Year       int                   `json:"year"`
	Summaries  []analyze.SiteSummary `json:"summaries"`
	Totals     analyze.Totals        `json:"totals"`
}

// NewAvailabilityReport projects result through opts and applies f.
func NewAvailabilityReport(result *model.AvailabilityResult, opts calendar.Options, f Filter) *AvailabilityReport {
	narrowed := narrow(result, f, opts)
	rep := &AvailabilityReport{
		Result: narrowed,
		Grids:  calendar.Project(narrowed, opts),
		Site:   f.Site,
	}
	if narrowed != nil {
		rep.Campground = narrowed.CampgroundName
		rep.Year = narrowed.Year
	}
	if f.Summary {
		rep.Summaries = analyze.Summarize(rep.Grids)
		tot := analyze.Total(rep.Summaries)
		rep.Totals = &tot
	}
	return rep
}

// NewSummaryReport summarizes result without keeping its grids.
func NewSummaryReport(result *model.AvailabilityResult, opts calendar.Options) *SummaryReport {
	sums := analyze.Summarize(calendar.Project(result, opts))
	rep := &SummaryReport{Summaries: sums, Totals: analyze.Total(sums)}
	if result != nil {
		rep.Campground = result.CampgroundName
		rep.Year = result.Year
	}
	return rep
}

// narrow copies result keeping only the sites that pass f.
func narrow(result *model.AvailabilityResult, f Filter, opts calendar.Options) *model.AvailabilityResult {
	if result == nil {
		return nil
	}
	if f.Site == "" && f.Nights <= 0 {
		return result
	}
	out := &model.AvailabilityResult{
		CampgroundName: result.CampgroundName,
		Year:           result.Year,
		FetchedAt:      result.FetchedAt,
	}
	for _, m := range result.Months {
		kept := model.MonthAvailability{Month: m.Month, Sites: []model.SiteAvailability{}}
		var rows []calendar.Row
		if f.Nights > 0 {
			rows = calendar.ProjectMonth(m, result.Year, opts).Rows
		}
		for i, s := range m.Sites {
			if f.Site != "" && !strings.EqualFold(strings.TrimSpace(s.Site), strings.TrimSpace(f.Site)) {
				continue
			}
			if f.Nights > 0 && !analyze.FitsStay(rows[i], f.Nights) {
				continue
			}
			kept.Sites = append(kept.Sites, s)
		}
		out.Months = append(out.Months, kept)
	}
	return out
}

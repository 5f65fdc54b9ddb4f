// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/campcheck/internal/analyze"
	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/ics"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/pipeline"
	"github.com/derickschaefer/campcheck/internal/store"
	"github.com/derickschaefer/campcheck/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
	FormatICS   = "ics"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD, FormatICS}

// ShareMarker flags rows whose site has dates to share.
const ShareMarker = "✓"

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	case FormatICS:
		return renderICS(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch d := result.Data.(type) {
	case *AvailabilityReport:
		// Same stream `summarize` reads back.
		return pipeline.WriteJSONL(w, d.Result)
	case *model.SuggestionResult:
		for _, c := range d.Candidates {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	case *SummaryReport:
		for _, s := range d.Summaries {
			if err := enc.Encode(s); err != nil {
				return err
			}
		}
		return nil
	case []store.SavedSearch:
		for _, ss := range d {
			if err := enc.Encode(ss); err != nil {
				return err
			}
		}
		return nil
	case []model.DateChange:
		for _, c := range d {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── ICS ──────────────────────────────────────────────────────────────────────

func renderICS(w io.Writer, result *model.Result) error {
	rep, ok := result.Data.(*AvailabilityReport)
	if !ok {
		return fmt.Errorf("format ics only applies to availability results, not %s", result.Kind)
	}
	return ics.Write(w, rep.Result, ics.Options{Site: rep.Site, Now: result.GeneratedAt})
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	switch d := result.Data.(type) {
	case *AvailabilityReport:
		return renderAvailabilityTable(w, d)
	case *model.SuggestionResult:
		return renderSuggestionTable(w, d)
	case *SummaryReport:
		return renderSummaryTable(w, d.Summaries, &d.Totals)
	case []store.SavedSearch:
		return renderSavedTable(w, d)
	case *store.SavedSearch:
		return renderSavedTable(w, []store.SavedSearch{*d})
	case []model.DateChange:
		return renderChangeTable(w, d)
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

// GridHeader returns the table header for g: SITE, LOOP, one "MON\n1"
// column per day, SHARE.
func GridHeader(g calendar.Grid) []string {
	header := make([]string, 0, len(g.Headers)+3)
	header = append(header, "SITE", "LOOP")
	for _, h := range g.Headers {
		header = append(header, h.Weekday+"\n"+strconv.Itoa(h.Day))
	}
	return append(header, "SHARE")
}

// GridRow returns the table cells for r, matching GridHeader.
func GridRow(r calendar.Row) []string {
	cells := make([]string, 0, len(r.Cells)+3)
	cells = append(cells, r.Site, r.Loop)
	for _, c := range r.Cells {
		cells = append(cells, c.Status.Code())
	}
	share := ""
	if r.Shareable() {
		share = ShareMarker
	}
	return append(cells, share)
}

func gridTitle(rep *AvailabilityReport, g calendar.Grid) string {
	if rep.Campground == "" {
		return g.Title
	}
	return rep.Campground + " · " + g.Title
}

func renderAvailabilityTable(w io.Writer, rep *AvailabilityReport) error {
	if len(rep.Grids) == 0 {
		fmt.Fprintln(w, "No availability returned.")
		return nil
	}
	for i, g := range rep.Grids {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, gridTitle(rep, g))
		if len(g.Rows) == 0 {
			fmt.Fprintln(w, "  no sites listed")
			continue
		}
		tw := newTable(w, GridHeader(g))
		align := make([]int, len(g.Headers)+3)
		for j := range align {
			align[j] = tablewriter.ALIGN_CENTER
		}
		align[0], align[1] = tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT
		tw.SetColumnAlignment(align)
		for _, r := range g.Rows {
			tw.Append(GridRow(r))
		}
		tw.Render()
	}
	fmt.Fprintln(w, "A available · R reserved · X unknown")
	if rep.Summaries != nil {
		fmt.Fprintln(w)
		return renderSummaryTable(w, rep.Summaries, rep.Totals)
	}
	return nil
}

func renderSummaryTable(w io.Writer, sums []analyze.SiteSummary, tot *analyze.Totals) error {
	tw := newTable(w, []string{"SITE", "LOOP", "MONTH", "AVAILABLE", "RESERVED", "UNKNOWN", "OCCUPANCY", "LONGEST RUN"})
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
	})
	for _, s := range sums {
		tw.Append([]string{
			s.Site,
			s.Loop,
			calendar.MonthTitle(s.Year, s.Month),
			strconv.Itoa(s.Available),
			strconv.Itoa(s.Reserved),
			strconv.Itoa(s.Unknown),
			formatPct(s.OccupancyPct),
			formatRun(s.LongestRun),
		})
	}
	tw.Render()
	if tot != nil {
		fmt.Fprintf(w, "%d of %d site-months have availability · %d available, %d reserved · occupancy %s\n",
			tot.WithAvailable, tot.SiteMonths, tot.Available, tot.Reserved, formatPct(tot.OccupancyPct))
		if tot.BestRun.Length > 0 {
			fmt.Fprintf(w, "Longest stay: site %s, %s, %s\n",
				tot.BestSite, calendar.MonthTitle(0, tot.BestMonth)[:3], formatRun(tot.BestRun))
		}
	}
	return nil
}

func renderSuggestionTable(w io.Writer, sr *model.SuggestionResult) error {
	if len(sr.Candidates) == 0 {
		fmt.Fprintf(w, "No campgrounds match %q.\n", sr.Query)
		if len(sr.DidYouMean) > 0 {
			fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(sr.DidYouMean, ", "))
		}
		return nil
	}
	tw := newTable(w, []string{"#", "NAME", "ID"})
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
	for i, c := range sr.Candidates {
		tw.Append([]string{strconv.Itoa(i), c.Name, c.ID})
	}
	tw.Render()
	return nil
}

func renderSavedTable(w io.Writer, list []store.SavedSearch) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "No saved searches.")
		return nil
	}
	tw := newTable(w, []string{"ID", "NAME", "CAMPGROUND", "YEAR", "MONTHS", "SITE", "CREATED"})
	for _, ss := range list {
		tw.Append([]string{
			shortID(ss.ID),
			ss.Name,
			ss.Campground,
			strconv.Itoa(ss.Year),
			joinInts(ss.Months),
			ss.Site,
			ss.CreatedAt.Format("2006-01-02"),
		})
	}
	tw.Render()
	return nil
}

func renderChangeTable(w io.Writer, changes []model.DateChange) error {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes.")
		return nil
	}
	tw := newTable(w, []string{"CAMPGROUND", "SITE", "LOOP", "NEW DATES", "GONE", "NOTIFIED"})
	for _, c := range changes {
		notified := ""
		if c.Notified {
			notified = "yes"
		}
		tw.Append([]string{
			c.Campground,
			c.Site,
			c.Loop,
			strings.Join(c.NewDates, " "),
			strconv.Itoa(len(c.GoneDates)),
			notified,
		})
	}
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch d := result.Data.(type) {
	case *AvailabilityReport:
		// Long format: one row per site per day.
		_ = cw.Write([]string{"campground", "year", "month", "campsite_id", "site", "loop", "date", "weekday", "status"})
		for _, g := range d.Grids {
			for _, r := range g.Rows {
				for _, c := range r.Cells {
					_ = cw.Write([]string{
						d.Campground,
						strconv.Itoa(g.Year),
						strconv.Itoa(g.Month),
						r.CampsiteID,
						r.Site,
						r.Loop,
						util.FormatDate(time.Date(g.Year, time.Month(g.Month), c.Day, 0, 0, 0, 0, time.UTC)),
						c.Weekday,
						c.Status.String(),
					})
				}
			}
		}
	case *model.SuggestionResult:
		_ = cw.Write([]string{"id", "name"})
		for _, c := range d.Candidates {
			_ = cw.Write([]string{c.ID, c.Name})
		}
	case *SummaryReport:
		writeSummaryCSV(cw, d.Summaries)
	case []store.SavedSearch:
		_ = cw.Write([]string{"id", "name", "campground", "year", "months", "site", "created_at"})
		for _, ss := range d {
			_ = cw.Write([]string{
				ss.ID, ss.Name, ss.Campground, strconv.Itoa(ss.Year),
				joinInts(ss.Months), ss.Site, ss.CreatedAt.Format(time.RFC3339),
			})
		}
	case []model.DateChange:
		_ = cw.Write([]string{"campground", "site", "loop", "new_dates", "gone_dates", "notified"})
		for _, c := range d {
			_ = cw.Write([]string{
				c.Campground, c.Site, c.Loop,
				strings.Join(c.NewDates, " "), strings.Join(c.GoneDates, " "),
				strconv.FormatBool(c.Notified),
			})
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

func writeSummaryCSV(cw *csv.Writer, sums []analyze.SiteSummary) {
	_ = cw.Write([]string{"year", "month", "site", "loop", "days", "available", "reserved", "unknown", "occupancy_pct", "longest_run_start", "longest_run_days"})
	for _, s := range sums {
		_ = cw.Write([]string{
			strconv.Itoa(s.Year),
			strconv.Itoa(s.Month),
			s.Site,
			s.Loop,
			strconv.Itoa(s.Days),
			strconv.Itoa(s.Available),
			strconv.Itoa(s.Reserved),
			strconv.Itoa(s.Unknown),
			strconv.FormatFloat(s.OccupancyPct, 'f', 1, 64),
			strconv.Itoa(s.LongestRun.StartDay),
			strconv.Itoa(s.LongestRun.Length),
		})
	}
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch d := result.Data.(type) {
	case *AvailabilityReport:
		for i, g := range d.Grids {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "### %s\n\n", mdEscape(gridTitle(d, g)))
			header := GridHeader(g)
			for j := range header {
				header[j] = strings.ReplaceAll(header[j], "\n", "<br>")
			}
			writeMDRow(w, header)
			sep := make([]string, len(header))
			for j := range sep {
				sep[j] = "---"
			}
			writeMDRow(w, sep)
			for _, r := range g.Rows {
				writeMDRow(w, GridRow(r))
			}
		}
		return nil
	case *model.SuggestionResult:
		fmt.Fprintf(w, "| # | NAME | ID |\n|---|------|----|\n")
		for i, c := range d.Candidates {
			fmt.Fprintf(w, "| %d | %s | %s |\n", i, mdEscape(c.Name), mdEscape(c.ID))
		}
		return nil
	case *SummaryReport:
		fmt.Fprintf(w, "| SITE | MONTH | AVAILABLE | RESERVED | UNKNOWN | OCCUPANCY | LONGEST RUN |\n|----|----|----|----|----|----|----|\n")
		for _, s := range d.Summaries {
			fmt.Fprintf(w, "| %s | %s | %d | %d | %d | %s | %s |\n",
				mdEscape(s.Site), calendar.MonthTitle(s.Year, s.Month),
				s.Available, s.Reserved, s.Unknown, formatPct(s.OccupancyPct), formatRun(s.LongestRun))
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

func writeMDRow(w io.Writer, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = mdEscape(c)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(escaped, " | "))
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "live"
		if result.Stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func formatRun(r analyze.Run) string {
	switch r.Length {
	case 0:
		return "-"
	case 1:
		return fmt.Sprintf("day %d (1 day)", r.StartDay)
	default:
		return fmt.Sprintf("days %d-%d (%d days)", r.StartDay, r.StartDay+r.Length-1, r.Length)
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

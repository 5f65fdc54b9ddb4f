// Package chart provides ASCII terminal charts for availability data.
// Two renderers are available:
//
//   - Bar: horizontal bar chart, one bar per site-month, sized by available days
//   - Strip: one line per site with a glyph per day of the month
//
// Both need nothing beyond the Go standard library.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/derickschaefer/campcheck/internal/analyze"
	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/model"
)

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars caps the number of bars; the sites with the most available
	// days are kept. If 0, no limit is applied.
	MaxBars int
}

// Bar renders one bar per summary, scaled to the days in its month.
//
// Output example:
//
//	Upper Pines  available days
//	A1  Jun   12/30  ████████████
//	B2  Jun    0/30  ·
func Bar(w io.Writer, title string, sums []analyze.SiteSummary, opts BarOptions) error {
	if len(sums) == 0 {
		return fmt.Errorf("chart bar: no sites to render")
	}
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}
	if opts.MaxBars > 0 && len(sums) > opts.MaxBars {
		sums = analyze.ByAvailability(sums)[:opts.MaxBars]
	}

	siteWidth := 0
	countWidth := 0
	for _, s := range sums {
		if l := len([]rune(s.Site)); l > siteWidth {
			siteWidth = l
		}
		if l := len(countLabel(s)); l > countWidth {
			countWidth = l
		}
	}

	// site + month + count + separators (2 each)
	barAreaWidth := totalWidth - siteWidth - 3 - countWidth - 6
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	fmt.Fprintf(w, "%s  available days\n", title)
	for _, s := range sums {
		bar := "·"
		if s.Available > 0 && s.Days > 0 {
			n := int(math.Round(float64(s.Available) / float64(s.Days) * float64(barAreaWidth)))
			if n < 1 {
				n = 1 // every site with availability gets a visible bar
			}
			bar = strings.Repeat("█", n)
		}
		fmt.Fprintf(w, "%-*s  %s  %*s  %s\n",
			siteWidth, s.Site, monthAbbrev(s.Month), countWidth, countLabel(s), bar)
	}
	return nil
}

func countLabel(s analyze.SiteSummary) string {
	return fmt.Sprintf("%d/%d", s.Available, s.Days)
}

func monthAbbrev(m int) string {
	if m < 1 || m > 12 {
		return strconv.Itoa(m)
	}
	return calendar.MonthTitle(2000, m)[:3]
}

// ─── Strip ────────────────────────────────────────────────────────────────────

// Glyphs used by Strip.
const (
	GlyphAvailable = '█'
	GlyphReserved  = '░'
	GlyphUnknown   = '·'
)

// Strip renders the grid as one line per site, one glyph per day, with a
// weekday ruler marking Mondays.
//
// Output example:
//
//	June 2025
//	      M      M      M      M      M
//	A1  ██░░·██████░░░░░░░░░░░░░░░░░░░
func Strip(w io.Writer, g calendar.Grid) error {
	if len(g.Rows) == 0 {
		return fmt.Errorf("chart strip: %s has no sites", g.Title)
	}
	siteWidth := 0
	for _, r := range g.Rows {
		if l := len([]rune(r.Site)); l > siteWidth {
			siteWidth = l
		}
	}

	ruler := make([]rune, len(g.Headers))
	for i, h := range g.Headers {
		ruler[i] = ' '
		if h.Weekday == "MON" {
			ruler[i] = 'M'
		}
	}
	fmt.Fprintln(w, g.Title)
	fmt.Fprintf(w, "%-*s  %s\n", siteWidth, "", strings.TrimRight(string(ruler), " "))

	for _, r := range g.Rows {
		line := make([]rune, len(r.Cells))
		for i, c := range r.Cells {
			line[i] = glyph(c.Status)
		}
		fmt.Fprintf(w, "%-*s  %s\n", siteWidth, r.Site, string(line))
	}
	return nil
}

func glyph(s model.Status) rune {
	switch s {
	case model.StatusAvailable:
		return GlyphAvailable
	case model.StatusReserved:
		return GlyphReserved
	default:
		return GlyphUnknown
	}
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}

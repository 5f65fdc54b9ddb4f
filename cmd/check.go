package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/analyze"
	"github.com/derickschaefer/campcheck/internal/app"
	"github.com/derickschaefer/campcheck/internal/availability"
	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/chart"
	"github.com/derickschaefer/campcheck/internal/forms"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/render"
)

var (
	checkQuery   queryFlags
	checkNights  int
	checkSummary bool
	checkChart   bool
	checkCached  bool
)

var checkCmd = &cobra.Command{
	Use:   "check <campground name>",
	Short: "Show per-site availability for the chosen months",
	Long: `Check which sites of a campground are available on which days.

Each requested month is shown as a grid: one row per site, one column per
day, with A for available, R for reserved and X for unknown. Sites that have
at least one available day are marked in the SHARE column and can be sent to
someone with 'campcheck share'.

The campground name must be the exact name the backend knows; use
'campcheck suggest' to find it. A session from 'campcheck auth login' is
required.`,
	Example: `  campcheck check "Upper Pines" --months 6,7
  campcheck check "Upper Pines" --year 2026 --months jul --nights 3
  campcheck check "Upper Pines" --months 6 --summary
  campcheck check "Upper Pines" --months 6 --site A12 --chart
  campcheck check "Upper Pines" --months 6 --format jsonl | campcheck summarize`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		year, months, err := checkQuery.resolve(time.Now())
		if err != nil {
			return err
		}
		req := camp.NewAvailabilityRequest(strings.Join(args, " "), year, months)
		if err := forms.Availability(req); err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		res, cacheHit, err := loadAvailability(cmd.Context(), deps, req, checkCached)
		if err != nil {
			return err
		}

		rep := render.NewAvailabilityReport(res, deps.CalendarOptions(), render.Filter{
			Site:    checkQuery.Site,
			Nights:  checkNights,
			Summary: checkSummary,
		})
		if checkChart {
			return writeChart(cmd, rep)
		}

		result := newResult(model.KindAvailability, "check", rep, reportRows(rep), start)
		result.Stats.CacheHit = cacheHit
		if reportRows(rep) == 0 {
			result.Warnings = append(result.Warnings, noSitesWarning(checkQuery.Site, checkNights))
		}
		return emit(cmd, deps, result)
	},
}

// ─── Shared availability plumbing ─────────────────────────────────────────────

// loadAvailability runs req through an availability controller, or returns
// the stored result when cached is set and one exists. Fresh results are
// stored and their campground name remembered.
func loadAvailability(ctx context.Context, deps *app.Deps, req model.AvailabilityRequest, cached bool) (*model.AvailabilityResult, bool, error) {
	if cached {
		if err := deps.RequireStore(); err != nil {
			return nil, false, err
		}
		res, ok, err := deps.Store.GetResult(req.CampgroundName, req.Year, req.SelectedMonths)
		if err != nil {
			return nil, false, fmt.Errorf("reading stored result: %w", err)
		}
		if ok {
			deps.Logger.Debug("using stored availability",
				zap.String("campground", req.CampgroundName),
				zap.Time("fetched_at", res.FetchedAt))
			return res, true, nil
		}
		deps.Logger.Debug("no stored availability; fetching", zap.String("campground", req.CampgroundName))
	}

	if err := deps.Session.Require(); err != nil {
		return nil, false, err
	}
	ctrl := availability.New(deps.Client, deps.Logger.Named("availability"))
	res, err := ctrl.Submit(ctx, req)
	if err != nil {
		return nil, false, availabilityError(err)
	}

	if err := deps.RequireStore(); err != nil {
		deps.Logger.Debug("not storing result", zap.Error(err))
		return res, false, nil
	}
	if err := deps.Store.PutResult(res, req.SelectedMonths); err != nil {
		deps.Logger.Warn("storing availability result", zap.Error(err))
	}
	if err := deps.Store.RememberNames(res.CampgroundName); err != nil {
		deps.Logger.Warn("remembering campground name", zap.Error(err))
	}
	return res, false, nil
}

// availabilityError adds the backend's detail to a failed lookup.
func availabilityError(err error) error {
	if camp.StatusOf(err) == 0 {
		return err
	}
	return fmt.Errorf("%s: %w", camp.DetailMessage(err, "Error fetching availability"), err)
}

func reportRows(rep *render.AvailabilityReport) int {
	n := 0
	for _, g := range rep.Grids {
		n += len(g.Rows)
	}
	return n
}

func noSitesWarning(site string, nights int) string {
	switch {
	case site != "" && nights > 0:
		return fmt.Sprintf("site %q has no run of %d available nights", site, nights)
	case site != "":
		return fmt.Sprintf("no site labelled %q", site)
	case nights > 0:
		return fmt.Sprintf("no site has %d consecutive available nights", nights)
	default:
		return "the backend returned no sites"
	}
}

// writeChart draws a day strip per month when one site is selected, and a
// bar chart of available days per site otherwise.
func writeChart(cmd *cobra.Command, rep *render.AvailabilityReport) error {
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := drawChart(w, rep); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func drawChart(w io.Writer, rep *render.AvailabilityReport) error {
	if rep.Site != "" {
		for _, g := range rep.Grids {
			if len(g.Rows) == 0 {
				continue
			}
			if err := chart.Strip(w, g); err != nil {
				return err
			}
			fmt.Fprintln(w)
		}
		return nil
	}
	sums := analyze.Summarize(rep.Grids)
	return chart.Bar(w, rep.Campground, sums, chart.BarOptions{})
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkQuery.register(checkCmd)
	checkCmd.Flags().IntVar(&checkNights, "nights", 0, "only show sites with this many consecutive available days")
	checkCmd.Flags().BoolVar(&checkSummary, "summary", false, "add per-site occupancy summaries")
	checkCmd.Flags().BoolVar(&checkChart, "chart", false, "draw a chart instead of the grid")
	checkCmd.Flags().BoolVar(&checkCached, "cached", false, "use the stored result of this query when there is one")
}

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/forms"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/render"
	"github.com/derickschaefer/campcheck/internal/store"
	"github.com/derickschaefer/campcheck/internal/util"
)

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Save availability queries and run them again later",
	Long: `Saved searches keep a campground, year, months and optional site under a
name. Refer to a saved search by its name, full id, or an id prefix of at
least four characters.`,
}

// ─── saved save ───────────────────────────────────────────────────────────────

var savedSaveQuery queryFlags

var savedSaveCmd = &cobra.Command{
	Use:     "save <name> <campground name>",
	Short:   "Save an availability query under a name",
	Example: `  campcheck saved save summer "Upper Pines" --year 2026 --months 6,7,8`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, months, err := savedSaveQuery.resolve(time.Now())
		if err != nil {
			return err
		}
		name := strings.TrimSpace(args[0])
		req := camp.NewAvailabilityRequest(strings.Join(args[1:], " "), year, months)
		if err := forms.Availability(req); err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if existing, err := deps.Store.GetSavedSearch(name); err == nil && existing.Name == name {
			return fmt.Errorf("a saved search named %q already exists (id %s)", name, existing.ID)
		}
		ss := &store.SavedSearch{
			Name:       name,
			Campground: req.CampgroundName,
			Year:       year,
			Months:     months,
			Site:       strings.TrimSpace(savedSaveQuery.Site),
		}
		if err := deps.Store.PutSavedSearch(ss); err != nil {
			return fmt.Errorf("saving search: %w", err)
		}
		if err := deps.Store.RememberNames(ss.Campground); err != nil {
			return fmt.Errorf("remembering campground name: %w", err)
		}
		success(cmd, "Saved %q as %s", name, ss.ID)
		return nil
	},
}

// ─── saved list ───────────────────────────────────────────────────────────────

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		list, err := deps.Store.ListSavedSearches()
		if err != nil {
			return fmt.Errorf("listing saved searches: %w", err)
		}
		if list == nil {
			list = []store.SavedSearch{}
		}
		return emit(cmd, deps, newResult(model.KindSavedSearch, "saved list", list, len(list), start))
	},
}

// ─── saved run ────────────────────────────────────────────────────────────────

var (
	savedRunNights  int
	savedRunSummary bool
	savedRunCached  bool
)

var savedRunCmd = &cobra.Command{
	Use:     "run <name|id>",
	Short:   "Run a saved search",
	Example: `  campcheck saved run summer --nights 2`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		ss, err := deps.Store.GetSavedSearch(args[0])
		if err != nil {
			return err
		}
		req := camp.NewAvailabilityRequest(ss.Campground, ss.Year, ss.Months)
		res, cacheHit, err := loadAvailability(cmd.Context(), deps, req, savedRunCached)
		if err != nil {
			return err
		}
		rep := render.NewAvailabilityReport(res, deps.CalendarOptions(), render.Filter{
			Site:    ss.Site,
			Nights:  savedRunNights,
			Summary: savedRunSummary,
		})
		result := newResult(model.KindAvailability, "saved run "+ss.Name, rep, reportRows(rep), start)
		result.Stats.CacheHit = cacheHit
		if reportRows(rep) == 0 {
			result.Warnings = append(result.Warnings, noSitesWarning(ss.Site, savedRunNights))
		}
		return emit(cmd, deps, result)
	},
}

// ─── saved show / delete ──────────────────────────────────────────────────────

var savedShowCmd = &cobra.Command{
	Use:   "show <name|id>",
	Short: "Show one saved search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		ss, err := deps.Store.GetSavedSearch(args[0])
		if err != nil {
			return err
		}
		return emit(cmd, deps, newResult(model.KindSavedSearch, "saved show", &ss, 1, start))
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <name|id>...",
	Short: "Delete one or more saved searches",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var errs util.MultiError
		for _, ref := range args {
			ss, err := deps.Store.GetSavedSearch(ref)
			if err != nil {
				errs.Add(err)
				continue
			}
			if err := deps.Store.DeleteSavedSearch(ss.ID); err != nil {
				errs.Add(err)
				continue
			}
			success(cmd, "Deleted saved search %q", ss.Name)
		}
		return errs.Err()
	},
}

func init() {
	rootCmd.AddCommand(savedCmd)
	savedCmd.AddCommand(savedSaveCmd, savedListCmd, savedRunCmd, savedShowCmd, savedDeleteCmd)

	savedSaveQuery.register(savedSaveCmd)
	savedRunCmd.Flags().IntVar(&savedRunNights, "nights", 0, "only show sites with this many consecutive available days")
	savedRunCmd.Flags().BoolVar(&savedRunSummary, "summary", false, "add per-site occupancy summaries")
	savedRunCmd.Flags().BoolVar(&savedRunCached, "cached", false, "use the stored result when there is one")
}

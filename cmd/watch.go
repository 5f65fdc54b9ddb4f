package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/app"
	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/forms"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/util"
	"github.com/derickschaefer/campcheck/internal/watch"
)

var (
	watchQuery    queryFlags
	watchContact  contactFlags
	watchSchedule string
	watchOnce     bool
	watchNotify   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <campground name>",
	Short: "Re-check a campground on a schedule and report newly available dates",
	Long: `Re-check a campground on a cron schedule and report dates that became
available since the previous check. What each watch last saw is kept in the
local store, so stopping and restarting a watch resumes where it left off.
The first check of a new watch reports every available date.

With --notify, new dates are also sent to the given contact by email and
WhatsApp, one message per site.

The schedule is a five-field cron spec (default from watch_schedule in
config.json, "*/15 * * * *" when unset). Press Ctrl-C to stop.`,
	Example: `  campcheck watch "Upper Pines" --months 7 --once
  campcheck watch "Upper Pines" --months 7,8 --schedule "*/5 * * * *"
  campcheck watch "Upper Pines" --months 7 --site A12 --notify \
    --name "Ana Ruiz" --email ana@example.com --whatsapp +15551234567`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, months, err := watchQuery.resolve(time.Now())
		if err != nil {
			return err
		}
		req := camp.NewAvailabilityRequest(strings.Join(args, " "), year, months)
		if err := forms.Availability(req); err != nil {
			return err
		}

		var notify *model.ContactInfo
		if watchNotify || watchContact.set() {
			c := watchContact.contact()
			if err := forms.Contact(c); err != nil {
				return err
			}
			notify = &c
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		spec := watchSchedule
		if spec == "" {
			spec = deps.Config.WatchSchedule
		}
		if err := watch.ValidateSchedule(spec); err != nil {
			return err
		}
		if err := deps.Session.Require(); err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}

		w := watch.New(deps.Client, deps.Store, watch.Options{
			Notify:      notify,
			LabelLayout: deps.Config.DateLayout,
			Logger:      deps.Logger.Named("watch"),
		})
		q := watch.Query{
			Campground: req.CampgroundName,
			Year:       year,
			Months:     months,
			Site:       strings.TrimSpace(watchQuery.Site),
		}

		if watchOnce {
			start := time.Now()
			changes, err := w.RunOnce(cmd.Context(), q)
			if err != nil {
				return availabilityError(err)
			}
			return emitChanges(cmd, deps, changes, start)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (%s). Press Ctrl-C to stop.\n", q.Campground, spec)
		}
		return w.Schedule(ctx, spec, q, func(changes []model.DateChange) {
			if len(changes) == 0 {
				return
			}
			if err := emitChanges(cmd, deps, changes, time.Now()); err != nil {
				deps.Logger.Error("printing watch changes", zap.Error(err))
			}
		})
	},
}

func emitChanges(cmd *cobra.Command, deps *app.Deps, changes []model.DateChange, start time.Time) error {
	if changes == nil {
		changes = []model.DateChange{}
	}
	return emit(cmd, deps, newResult(model.KindWatch, "watch", changes, len(changes), start))
}

// ─── watch list / delete ──────────────────────────────────────────────────────

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watches with stored state",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		list, err := deps.Store.ListWatches()
		if err != nil {
			return fmt.Errorf("listing watches: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No watches.")
			return nil
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].LastRun.After(list[j].LastRun) })
		printSimpleTable(cmd.OutOrStdout(), []string{"ID", "CAMPGROUND", "YEAR", "MONTHS", "SITE", "AVAILABLE", "LAST RUN"}, func(add func(...string)) {
			for _, w := range list {
				n := 0
				for _, dates := range w.Seen {
					n += len(dates)
				}
				add(w.ID, w.Campground, fmt.Sprintf("%d", w.Year), intsCSV(w.Months), w.Site,
					fmt.Sprintf("%d", n), w.LastRun.Local().Format("2006-01-02 15:04"))
			}
		})
		return nil
	},
}

var watchDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Forget the stored state of one or more watches",
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
		for _, id := range args {
			if err := deps.Store.DeleteWatch(id); err != nil {
				errs.Add(err)
				continue
			}
			success(cmd, "Deleted watch %s", id)
		}
		return errs.Err()
	},
}

func intsCSV(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchListCmd, watchDeleteCmd)

	watchQuery.register(watchCmd)
	watchContact.register(watchCmd)
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule (default: watch_schedule from config)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "check once, print changes and exit")
	watchCmd.Flags().BoolVar(&watchNotify, "notify", false, "send new dates to the contact given by --name, --email, --whatsapp")
}

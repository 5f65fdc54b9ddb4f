// Package watch re-checks an availability query on a schedule and reports
// dates that became available since the previous run.
package watch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/store"
)

// DefaultSchedule re-checks every 15 minutes.
const DefaultSchedule = "*/15 * * * *"

// Client is the slice of the backend a watch needs.
type Client interface {
	CheckAvailability(ctx context.Context, req model.AvailabilityRequest) (*model.AvailabilityResult, error)
	SendAvailability(ctx context.Context, req model.AvailabilityRequest) error
}

// StateStore keeps what each watch last saw. *store.Store satisfies it.
type StateStore interface {
	GetWatch(id string) (store.Watch, bool, error)
	PutWatch(w store.Watch) error
}

// Query is what a watch re-checks.
type Query struct {
	Campground string
	Year       int
	Months     []int
	// Site limits the watch to one site label. Empty watches every site.
	Site string
}

// ID returns the stable store id of the query.
func (q Query) ID() string {
	return store.WatchID(q.Campground, q.Year, q.Months, q.Site)
}

// Options configures a Watcher.
type Options struct {
	// Notify, when set, shares newly available dates with this contact.
	Notify *model.ContactInfo
	// LabelLayout formats date labels. Empty means the calendar default.
	LabelLayout string
	Logger      *zap.Logger
	Now         func() time.Time
}

// Watcher runs checks and diffs them against stored state.
type Watcher struct {
	client Client
	store  StateStore
	opts   Options
	log    *zap.Logger
}

// New returns a Watcher.
func New(client Client, st StateStore, opts Options) *Watcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Watcher{client: client, store: st, opts: opts, log: opts.Logger}
}

// RunOnce checks q, stores what it saw, and returns one change per site
// whose available dates differ from the previous run. The first run of a
// query reports every available date as new.
func (w *Watcher) RunOnce(ctx context.Context, q Query) ([]model.DateChange, error) {
	req := camp.NewAvailabilityRequest(q.Campground, q.Year, q.Months)
	res, err := w.client.CheckAvailability(ctx, req)
	if err != nil {
		return nil, err
	}

	id := q.ID()
	prev, _, err := w.store.GetWatch(id)
	if err != nil {
		return nil, fmt.Errorf("loading watch state: %w", err)
	}

	seen, sites := availableBySite(res, q.Site, w.opts.LabelLayout)
	var changes []model.DateChange
	for _, key := range siteOrder(res, seen) {
		added, gone := diff(prev.Seen[key], seen[key])
		if len(added) == 0 && len(gone) == 0 {
			continue
		}
		changes = append(changes, siteChange(res, key, sites[key], added, gone))
	}
	// Sites that vanished entirely.
	var vanished []string
	for key, dates := range prev.Seen {
		if _, ok := seen[key]; !ok && len(dates) > 0 {
			vanished = append(vanished, key)
		}
	}
	sort.Strings(vanished)
	for _, key := range vanished {
		ws, ok := prev.Sites[key]
		if !ok {
			ws.Site = key
		}
		changes = append(changes, siteChange(res, key, ws, []string{}, prev.Seen[key]))
	}

	if w.opts.Notify != nil {
		for i := range changes {
			if len(changes[i].NewDates) == 0 {
				continue
			}
			if err := w.notify(ctx, q, res, &changes[i]); err != nil {
				w.log.Warn("share failed", zap.String("site", changes[i].Site), zap.Error(err))
				continue
			}
			changes[i].Notified = true
		}
	}

	state := store.Watch{
		ID:         id,
		Campground: q.Campground,
		Year:       q.Year,
		Months:     q.Months,
		Site:       q.Site,
		Seen:       seen,
		Sites:      sites,
		LastRun:    w.opts.Now().UTC(),
	}
	if err := w.store.PutWatch(state); err != nil {
		return changes, fmt.Errorf("saving watch state: %w", err)
	}
	w.log.Info("watch checked",
		zap.String("campground", q.Campground),
		zap.Int("sites", len(seen)),
		zap.Int("changes", len(changes)))
	return changes, nil
}

func siteChange(res *model.AvailabilityResult, key string, ws store.WatchedSite, added, gone []string) model.DateChange {
	c := model.DateChange{
		Campground: res.CampgroundName,
		Site:       ws.Site,
		Loop:       ws.Loop,
		NewDates:   added,
		GoneDates:  gone,
	}
	if key != model.SiteKey("", ws.Site, ws.Loop) {
		c.CampsiteID = key
	}
	return c
}

func (w *Watcher) notify(ctx context.Context, q Query, res *model.AvailabilityResult, c *model.DateChange) error {
	req := camp.NewAvailabilityRequest(q.Campground, q.Year, q.Months)
	req.CampgroundName = res.CampgroundName
	if req.CampgroundName == "" {
		req.CampgroundName = q.Campground
	}
	req.ContactInfo = *w.opts.Notify
	req.SelectedSite = model.SelectedSite{Site: c.Site, Loop: c.Loop, AvailableDates: c.NewDates}
	return w.client.SendAvailability(ctx, req)
}

// Schedule runs q on the cron spec until ctx is done. Each run's changes go
// to report; failed runs are logged and retried on the next tick. One run
// starts immediately.
func (w *Watcher) Schedule(ctx context.Context, spec string, q Query, report func([]model.DateChange)) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	run := func() {
		changes, err := w.RunOnce(ctx, q)
		if err != nil {
			w.log.Error("watch run failed", zap.String("campground", q.Campground), zap.Error(err))
			return
		}
		report(changes)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, run); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	run()
	c.Start()
	w.log.Info("watch scheduled", zap.String("schedule", spec))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// ValidateSchedule reports whether spec is a valid five-field cron spec.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// availableBySite maps each site key to its available date labels, and to
// the site's label and loop. A site listed in several months merges its
// dates in month order.
func availableBySite(res *model.AvailabilityResult, only, layout string) (map[string][]string, map[string]store.WatchedSite) {
	seen := make(map[string][]string)
	sites := make(map[string]store.WatchedSite)
	for _, m := range res.Months {
		for _, s := range m.Sites {
			if only != "" && !strings.EqualFold(s.Site, only) {
				continue
			}
			key := s.Key()
			seen[key] = append(seen[key], calendar.AvailableDateLabels(s, layout)...)
			if _, ok := sites[key]; !ok {
				sites[key] = store.WatchedSite{Site: s.Site, Loop: s.Loop}
			}
		}
	}
	return seen, sites
}

// siteOrder lists the keys of seen in the order the backend listed sites.
func siteOrder(res *model.AvailabilityResult, seen map[string][]string) []string {
	var order []string
	added := make(map[string]bool)
	for _, m := range res.Months {
		for _, s := range m.Sites {
			key := s.Key()
			if _, ok := seen[key]; ok && !added[key] {
				added[key] = true
				order = append(order, key)
			}
		}
	}
	return order
}

// diff returns labels in cur not in prev, and labels in prev not in cur.
func diff(prev, cur []string) (added, gone []string) {
	was := make(map[string]bool, len(prev))
	for _, d := range prev {
		was[d] = true
	}
	is := make(map[string]bool, len(cur))
	added = []string{}
	for _, d := range cur {
		is[d] = true
		if !was[d] {
			added = append(added, d)
		}
	}
	for _, d := range prev {
		if !is[d] {
			gone = append(gone, d)
		}
	}
	sort.Strings(gone)
	return added, gone
}

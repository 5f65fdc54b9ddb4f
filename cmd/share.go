package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/forms"
	"github.com/derickschaefer/campcheck/internal/model"
)

var (
	shareQuery   queryFlags
	shareContact contactFlags
	shareLoop    string
	shareSiteID  string
	shareCached  bool
	shareDryRun  bool
)

var shareCmd = &cobra.Command{
	Use:   "share <campground name> --site <label>",
	Short: "Send a site's available dates by email and WhatsApp",
	Long: `Re-check a campground and send one site's available dates to a contact.
The backend delivers them by email and WhatsApp.

Only sites with at least one available day in the chosen months can be
shared. Dates from every requested month are sent together.

Site labels can repeat across loops. When --site matches more than one
site, name the loop with --loop or the campsite with --campsite-id.`,
	Example: `  campcheck share "Upper Pines" --months 6,7 --site A12 \
    --name "Ana Ruiz" --email ana@example.com --whatsapp +15551234567`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := calendar.SiteRef{
			Site:       strings.TrimSpace(shareQuery.Site),
			Loop:       strings.TrimSpace(shareLoop),
			CampsiteID: strings.TrimSpace(shareSiteID),
		}
		if ref.Site == "" && ref.CampsiteID == "" {
			return fmt.Errorf("--site or --campsite-id is required")
		}
		year, months, err := shareQuery.resolve(time.Now())
		if err != nil {
			return err
		}
		lookup := camp.NewAvailabilityRequest(strings.Join(args, " "), year, months)
		if err := forms.Availability(lookup); err != nil {
			return err
		}
		contact := shareContact.contact()
		if err := forms.Contact(contact); err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		res, _, err := loadAvailability(cmd.Context(), deps, lookup, shareCached)
		if err != nil {
			return err
		}
		site, err := selectSite(res, ref, deps.CalendarOptions())
		if err != nil {
			return err
		}

		req := lookup
		req.ContactInfo = contact
		req.SelectedSite = site
		if err := forms.Share(req); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if shareDryRun {
			fmt.Fprintf(out, "Would send site %s (%d dates) to %s <%s>:\n", site.Site, len(site.AvailableDates), contact.Name, contact.Email)
			fmt.Fprintf(out, "  %s\n", strings.Join(site.AvailableDates, ", "))
			return nil
		}
		if err := deps.Session.Require(); err != nil {
			return err
		}
		if err := deps.Client.SendAvailability(cmd.Context(), req); err != nil {
			return fmt.Errorf("%s: %w", camp.DetailMessage(err, "Failed to send availability"), err)
		}
		success(cmd, "Availability sent to %s at %s and %s", contact.Name, contact.Email, contact.WhatsApp)
		return nil
	},
}

// selectSite finds the site ref names in every month of res and gathers its
// available date labels in month order. A ref that matches more than one
// site is an error. A site that exists but has no available day is returned
// with no dates so validation can refuse it.
func selectSite(res *model.AvailabilityResult, ref calendar.SiteRef, opts calendar.Options) (model.SelectedSite, error) {
	site := model.SelectedSite{AvailableDates: []string{}}
	var keys []string
	rows := make(map[string][]calendar.Row)
	for _, g := range calendar.Project(res, opts) {
		for _, row := range g.FindRows(ref) {
			k := row.Key()
			if _, ok := rows[k]; !ok {
				keys = append(keys, k)
			}
			rows[k] = append(rows[k], row)
		}
	}
	switch len(keys) {
	case 0:
		return site, fmt.Errorf("no site %s at %s", describeRef(ref), res.CampgroundName)
	case 1:
	default:
		choices := make([]string, len(keys))
		for i, k := range keys {
			r := rows[k][0]
			choices[i] = fmt.Sprintf("loop %q (campsite id %s)", r.Loop, r.CampsiteID)
		}
		return site, fmt.Errorf("site %s matches %d sites at %s: %s; narrow it with --loop or --campsite-id",
			describeRef(ref), len(keys), res.CampgroundName, strings.Join(choices, ", "))
	}
	for i, row := range rows[keys[0]] {
		if i == 0 {
			site.Site, site.Loop = row.Site, row.Loop
		}
		site.AvailableDates = append(site.AvailableDates, row.AvailableDates...)
	}
	return site, nil
}

func describeRef(ref calendar.SiteRef) string {
	var parts []string
	if ref.Site != "" {
		parts = append(parts, fmt.Sprintf("labelled %q", ref.Site))
	}
	if ref.Loop != "" {
		parts = append(parts, fmt.Sprintf("in loop %q", ref.Loop))
	}
	if ref.CampsiteID != "" {
		parts = append(parts, fmt.Sprintf("with campsite id %s", ref.CampsiteID))
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(shareCmd)
	shareQuery.register(shareCmd)
	shareContact.register(shareCmd)
	shareCmd.Flags().StringVar(&shareLoop, "loop", "", "loop of the site, when its label repeats across loops")
	shareCmd.Flags().StringVar(&shareSiteID, "campsite-id", "", "backend campsite id of the site")
	shareCmd.Flags().BoolVar(&shareCached, "cached", false, "use the stored result of this query when there is one")
	shareCmd.Flags().BoolVar(&shareDryRun, "dry-run", false, "print what would be sent without sending it")
}

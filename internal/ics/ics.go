// Package ics exports available campsite dates as an iCalendar feed, one
// all-day event per site and date.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/derickschaefer/campcheck/internal/model"
)

const productID = "-//campcheck//availability//EN"

const dateKeyLayout = "2006-01-02T15:04:05Z"

// Options narrows what is exported.
type Options struct {
	// Site limits export to one site label (case-insensitive). Empty exports all.
	Site string
	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

// Build returns a calendar with an event for every Available date in result.
func Build(result *model.AvailabilityResult, opts Options) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if result == nil {
		return cal
	}

	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}
	stamp = stamp.UTC()

	for _, m := range result.Months {
		for _, site := range m.Sites {
			if opts.Site != "" && !strings.EqualFold(site.Site, opts.Site) {
				continue
			}
			for _, e := range site.Availabilities.Entries() {
				if model.ParseStatus(e.Status) != model.StatusAvailable {
					continue
				}
				day, err := time.Parse(dateKeyLayout, e.Key)
				if err != nil {
					continue
				}
				ev := cal.AddEvent(eventUID(result.CampgroundName, site, day))
				ev.SetDtStampTime(stamp)
				ev.SetAllDayStartAt(day)
				ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
				ev.SetSummary(fmt.Sprintf("%s site %s available", result.CampgroundName, site.Site))
				if site.Loop != "" {
					ev.SetLocation(fmt.Sprintf("%s, loop %s", result.CampgroundName, site.Loop))
				} else {
					ev.SetLocation(result.CampgroundName)
				}
			}
		}
	}
	return cal
}

// Write serializes the calendar for result to w.
func Write(w io.Writer, result *model.AvailabilityResult, opts Options) error {
	_, err := io.WriteString(w, Build(result, opts).Serialize())
	return err
}

func eventUID(campground string, site model.SiteAvailability, day time.Time) string {
	return fmt.Sprintf("%s-%s-%s@campcheck", slug(campground), slug(site.Key()), day.Format("20060102"))
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

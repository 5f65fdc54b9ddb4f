package camp

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/util"
)

// ─── Suggestions ──────────────────────────────────────────────────────────────

// SearchSuggestions returns campground names matching query, in the order
// the backend ranked them. A response without "results" is an empty list.
func (c *Client) SearchSuggestions(ctx context.Context, query string) ([]model.SuggestionCandidate, error) {
	params := url.Values{}
	params.Set("query", query)

	var raw struct {
		Results []model.SuggestionCandidate `json:"results"`
	}
	if err := c.get(ctx, "search-suggestions", params, &raw); err != nil {
		return nil, fmt.Errorf("suggestions %q: %w", query, err)
	}
	if raw.Results == nil {
		return []model.SuggestionCandidate{}, nil
	}
	return raw.Results, nil
}

// ─── Availability ─────────────────────────────────────────────────────────────

// NewAvailabilityRequest builds the lookup body the backend expects: a
// placeholder contact and an empty selected site.
func NewAvailabilityRequest(campground string, year int, months []int) model.AvailabilityRequest {
	return model.AvailabilityRequest{
		ContactInfo:    model.SystemCheckContact,
		CampgroundName: strings.TrimSpace(campground),
		Year:           year,
		SelectedMonths: months,
		SelectedSite:   model.SelectedSite{AvailableDates: []string{}},
	}
}

// CheckAvailability fetches per-site availability for the requested months.
func (c *Client) CheckAvailability(ctx context.Context, req model.AvailabilityRequest) (*model.AvailabilityResult, error) {
	var raw struct {
		Availability json.RawMessage `json:"availability"`
	}
	if err := c.post(ctx, "availability", req, true, &raw); err != nil {
		return nil, fmt.Errorf("availability %q: %w", req.CampgroundName, err)
	}
	if len(raw.Availability) == 0 || string(raw.Availability) == "null" {
		return nil, fmt.Errorf("availability %q: malformed response: missing availability", req.CampgroundName)
	}
	months, err := DecodeMonths(raw.Availability)
	if err != nil {
		return nil, fmt.Errorf("availability %q: %w", req.CampgroundName, err)
	}
	return &model.AvailabilityResult{
		CampgroundName: req.CampgroundName,
		Year:           req.Year,
		Months:         months,
		FetchedAt:      time.Now().UTC(),
	}, nil
}

// DecodeMonths decodes the backend's month -> site id -> site object.
// Sites keep the backend's order; months are sorted ascending. A site
// without campsite_id takes its map key.
func DecodeMonths(data []byte) ([]model.MonthAvailability, error) {
	var months []model.MonthAvailability
	err := util.ForEachMember(data, func(monthKey string, monthRaw []byte) error {
		m, err := strconv.Atoi(strings.TrimSpace(monthKey))
		if err != nil {
			return fmt.Errorf("month key %q: not a number", monthKey)
		}
		month := model.MonthAvailability{Month: m, Sites: []model.SiteAvailability{}}
		err = util.ForEachMember(monthRaw, func(siteKey string, siteRaw []byte) error {
			var s model.SiteAvailability
			if err := json.Unmarshal(siteRaw, &s); err != nil {
				return fmt.Errorf("site %q: %w", siteKey, err)
			}
			if s.CampsiteID == "" {
				s.CampsiteID = siteKey
			}
			month.Sites = append(month.Sites, s)
			return nil
		})
		if err != nil {
			return fmt.Errorf("month %d: %w", m, err)
		}
		months = append(months, month)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months, nil
}

// SendAvailability asks the backend to deliver a site's available dates to
// the contact by email and WhatsApp.
func (c *Client) SendAvailability(ctx context.Context, req model.AvailabilityRequest) error {
	if req.SelectedSite.AvailableDates == nil {
		req.SelectedSite.AvailableDates = []string{}
	}
	var ack json.RawMessage
	if err := c.post(ctx, "send-availability", req, true, &ack); err != nil {
		return fmt.Errorf("send availability: %w", err)
	}
	if len(ack) == 0 || string(ack) == "null" {
		return fmt.Errorf("send availability: no response from server")
	}
	return nil
}

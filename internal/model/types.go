// Package model defines the canonical data types used throughout campcheck.
// These types mirror the campground backend's request and response shapes,
// plus the result envelope that every command returns.
package model

import (
	"bytes"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/derickschaefer/campcheck/internal/util"
)

// ─── Availability Status ──────────────────────────────────────────────────────

// Status is the normalized availability of one site on one day.
type Status int

const (
	StatusUnknown Status = iota
	StatusAvailable
	StatusReserved
)

// Raw status strings sent by the backend.
const (
	RawAvailable = "Available"
	RawReserved  = "Reserved"
)

// ParseStatus normalizes a raw backend status. Only exact matches count.
func ParseStatus(raw string) Status {
	switch raw {
	case RawAvailable:
		return StatusAvailable
	case RawReserved:
		return StatusReserved
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "Available"
	case StatusReserved:
		return "Reserved"
	default:
		return "Unknown"
	}
}

// Code returns the single-letter grid code: A, R or X.
func (s Status) Code() string {
	switch s {
	case StatusAvailable:
		return "A"
	case StatusReserved:
		return "R"
	default:
		return "X"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return gojson.Marshal(s.String())
}

// ─── Status Map ───────────────────────────────────────────────────────────────

// StatusEntry is one date-key/raw-status pair.
type StatusEntry struct {
	Key    string
	Status string
}

// StatusMap is an insertion-ordered map from DateKey strings
// ("2025-06-01T00:00:00Z") to raw backend status strings.
// The zero value is an empty, usable map.
type StatusMap struct {
	entries []StatusEntry
	index   map[string]int
}

// NewStatusMap builds a StatusMap from alternating key, status pairs.
func NewStatusMap(pairs ...string) StatusMap {
	var m StatusMap
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Get returns the raw status stored under key.
func (m StatusMap) Get(key string) (string, bool) {
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.entries[i].Status, true
}

// Set stores status under key. Re-setting a key keeps its original position.
func (m *StatusMap) Set(key, status string) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Status = status
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, StatusEntry{Key: key, Status: status})
}

// Len returns the number of entries.
func (m StatusMap) Len() int { return len(m.entries) }

// Entries returns a copy of the entries in insertion order.
func (m StatusMap) Entries() []StatusEntry {
	out := make([]StatusEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// UnmarshalJSON decodes a JSON object, keeping member order. Non-string
// values are stored as "" so they normalize to Unknown.
func (m *StatusMap) UnmarshalJSON(data []byte) error {
	*m = StatusMap{}
	return util.ForEachMember(data, func(key string, raw []byte) error {
		var s string
		if err := gojson.Unmarshal(raw, &s); err != nil {
			s = ""
		}
		m.Set(key, s)
		return nil
	})
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m StatusMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := gojson.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := gojson.Marshal(e.Status)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ─── Campground Entities ──────────────────────────────────────────────────────

// SiteAvailability is one bookable site within one month.
type SiteAvailability struct {
	CampsiteID     string    `json:"campsite_id"`
	Site           string    `json:"site"`
	Loop           string    `json:"loop"`
	Availabilities StatusMap `json:"availabilities"`
}

// Key identifies the site across months.
func (s SiteAvailability) Key() string { return SiteKey(s.CampsiteID, s.Site, s.Loop) }

// SiteKey is the campsite id, or loop and label when the id is unknown.
// Labels repeat across loops, so a label alone is never a key.
func SiteKey(campsiteID, site, loop string) string {
	if campsiteID != "" {
		return campsiteID
	}
	return loop + "/" + site
}

// UnmarshalJSON tolerates numeric identifiers and labels.
func (s *SiteAvailability) UnmarshalJSON(data []byte) error {
	var raw struct {
		CampsiteID     util.FlexString `json:"campsite_id"`
		Site           util.FlexString `json:"site"`
		Loop           util.FlexString `json:"loop"`
		Availabilities StatusMap       `json:"availabilities"`
	}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SiteAvailability{
		CampsiteID:     string(raw.CampsiteID),
		Site:           string(raw.Site),
		Loop:           string(raw.Loop),
		Availabilities: raw.Availabilities,
	}
	return nil
}

// MonthAvailability holds every site's availability for one month, in the
// order the backend listed them.
type MonthAvailability struct {
	Month int                `json:"month"`
	Sites []SiteAvailability `json:"sites"`
}

// AvailabilityResult is the full answer to one availability query.
type AvailabilityResult struct {
	CampgroundName string              `json:"campground_name"`
	Year           int                 `json:"year"`
	Months         []MonthAvailability `json:"months"`
	FetchedAt      time.Time           `json:"fetched_at"`
}

// Month returns the data for month m, or nil.
func (r *AvailabilityResult) Month(m int) *MonthAvailability {
	if r == nil {
		return nil
	}
	for i := range r.Months {
		if r.Months[i].Month == m {
			return &r.Months[i]
		}
	}
	return nil
}

// SuggestionCandidate is one campground-name suggestion.
type SuggestionCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *SuggestionCandidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   util.FlexString `json:"id"`
		Name util.FlexString `json:"name"`
	}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = string(raw.ID)
	c.Name = string(raw.Name)
	return nil
}

// ─── Requests ─────────────────────────────────────────────────────────────────

// ContactInfo identifies who receives shared availability.
type ContactInfo struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	WhatsApp string `json:"whatsapp" validate:"required,e164"`
}

// SelectedSite is the site whose available dates are being shared.
type SelectedSite struct {
	Site           string   `json:"site"`
	Loop           string   `json:"loop"`
	AvailableDates []string `json:"availableDates"`
}

// AvailabilityRequest is the body of both /availability and
// /send-availability.
type AvailabilityRequest struct {
	ContactInfo    ContactInfo  `json:"contactInfo"`
	CampgroundName string       `json:"campgroundName" validate:"required"`
	Year           int          `json:"year" validate:"min=2025,max=2100"`
	SelectedMonths []int        `json:"selectedMonths" validate:"required,min=1,unique,dive,min=1,max=12"`
	SelectedSite   SelectedSite `json:"selectedSite"`
}

// SystemCheckContact is the placeholder contact the availability lookup
// sends; the backend requires the field but ignores it for lookups.
var SystemCheckContact = ContactInfo{
	Name:     "System Check",
	Email:    "system@check.com",
	WhatsApp: "+1234567890",
}

// RegisterRequest is the body of /register.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest is the body of /login.
type LoginRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	CaptchaResponse string `json:"captcha_response,omitempty"`
}

// OTPRequest is the body of /verify-otp.
type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

// EmailRequest is the body of /resend-otp and /forgot-password.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of /reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing and cache metadata for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindAvailability = "availability"
	KindSuggestions  = "suggestions"
	KindSummary      = "summary"
	KindSavedSearch  = "saved_search"
	KindWatch        = "watch"
)

// SuggestionResult holds the candidates shown for one query.
type SuggestionResult struct {
	Query      string                `json:"query"`
	Candidates []SuggestionCandidate `json:"candidates"`
	DidYouMean []string              `json:"did_you_mean,omitempty"`
}

// DateChange is what a watch run noticed for one site: dates that became
// available and dates that are no longer available.
type DateChange struct {
	Campground string   `json:"campground_name"`
	CampsiteID string   `json:"campsite_id,omitempty"`
	Site       string   `json:"site"`
	Loop       string   `json:"loop"`
	NewDates   []string `json:"new_dates"`
	GoneDates  []string `json:"gone_dates,omitempty"`
	Notified   bool     `json:"notified"`
}

// Package pipeline provides helpers for reading and writing availability
// streams via stdin/stdout in JSONL format, the canonical pipe format.
// Each line is one site in one month.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/derickschaefer/campcheck/internal/model"
)

// SiteMonth is one JSONL record.
type SiteMonth struct {
	CampgroundName string          `json:"campground_name"`
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	CampsiteID     string          `json:"campsite_id"`
	Site           string          `json:"site"`
	Loop           string          `json:"loop"`
	Availabilities model.StatusMap `json:"availabilities"`
}

// WriteJSONL writes one record per site per month of result to w.
func WriteJSONL(w io.Writer, result *model.AvailabilityResult) error {
	if result == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	for _, m := range result.Months {
		for _, s := range m.Sites {
			rec := SiteMonth{
				CampgroundName: result.CampgroundName,
				Year:           result.Year,
				Month:          m.Month,
				CampsiteID:     s.CampsiteID,
				Site:           s.Site,
				Loop:           s.Loop,
				Availabilities: s.Availabilities,
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadResults reads JSONL records from r and regroups them into one result
// per campground and year, in first-seen order. Months within a result keep
// first-seen order as well.
func ReadResults(r io.Reader) ([]*model.AvailabilityResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 4*1024*1024)

	var results []*model.AvailabilityResult
	index := make(map[string]*model.AvailabilityResult)

	lineNum := 0
	records := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec SiteMonth
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if rec.Month < 1 || rec.Month > 12 {
			return nil, fmt.Errorf("line %d: invalid month %d", lineNum, rec.Month)
		}
		if rec.Year == 0 {
			return nil, fmt.Errorf("line %d: missing year", lineNum)
		}
		records++

		key := fmt.Sprintf("%s|%d", strings.ToLower(rec.CampgroundName), rec.Year)
		res, ok := index[key]
		if !ok {
			res = &model.AvailabilityResult{CampgroundName: rec.CampgroundName, Year: rec.Year}
			index[key] = res
			results = append(results, res)
		}
		month := res.Month(rec.Month)
		if month == nil {
			res.Months = append(res.Months, model.MonthAvailability{Month: rec.Month})
			month = &res.Months[len(res.Months)-1]
		}
		month.Sites = append(month.Sites, model.SiteAvailability{
			CampsiteID:     rec.CampsiteID,
			Site:           rec.Site,
			Loop:           rec.Loop,
			Availabilities: rec.Availabilities,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if records == 0 {
		return nil, fmt.Errorf("no availability records read from input (is stdin empty?)")
	}
	return results, nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// StdinIsPipe returns true if stdin is not a terminal.
func StdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}

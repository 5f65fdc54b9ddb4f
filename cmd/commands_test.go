package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/config"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/render"
	"github.com/derickschaefer/campcheck/internal/store"
	"github.com/derickschaefer/campcheck/internal/suggest"
)

// ─── Fixtures ─────────────────────────────────────────────────────────────────

func june2026() *model.AvailabilityResult {
	return &model.AvailabilityResult{
		CampgroundName: "Upper Pines",
		Year:           2026,
		Months: []model.MonthAvailability{{
			Month: 6,
			Sites: []model.SiteAvailability{
				{CampsiteID: "100", Site: "A1", Loop: "Lower", Availabilities: model.NewStatusMap(
					"2026-06-01T00:00:00Z", "Available",
					"2026-06-02T00:00:00Z", "Available",
					"2026-06-03T00:00:00Z", "Reserved",
				)},
				{CampsiteID: "200", Site: "B2", Loop: "Upper", Availabilities: model.NewStatusMap(
					"2026-06-01T00:00:00Z", "Reserved",
				)},
			},
		}},
	}
}

// ─── share ────────────────────────────────────────────────────────────────────

func TestSelectSiteCollectsDates(t *testing.T) {
	site, err := selectSite(june2026(), calendar.SiteRef{Site: "a1"}, calendar.Options{})
	if err != nil {
		t.Fatalf("selectSite: %v", err)
	}
	if site.Site != "A1" || site.Loop != "Lower" {
		t.Errorf("unexpected site: %+v", site)
	}
	if got := strings.Join(site.AvailableDates, " "); got != "6/1/2026 6/2/2026" {
		t.Errorf("unexpected dates: %q", got)
	}
}

func TestSelectSiteWithoutDates(t *testing.T) {
	site, err := selectSite(june2026(), calendar.SiteRef{Site: "B2"}, calendar.Options{})
	if err != nil {
		t.Fatalf("selectSite: %v", err)
	}
	if len(site.AvailableDates) != 0 || site.AvailableDates == nil {
		t.Errorf("expected an empty, non-nil date list, got %#v", site.AvailableDates)
	}
}

func TestSelectSiteUnknown(t *testing.T) {
	if _, err := selectSite(june2026(), calendar.SiteRef{Site: "Z9"}, calendar.Options{}); err == nil {
		t.Fatal("expected error for unknown site")
	}
}

func sharedLabels() *model.AvailabilityResult {
	return &model.AvailabilityResult{
		CampgroundName: "Upper Pines",
		Year:           2026,
		Months: []model.MonthAvailability{
			{Month: 6, Sites: []model.SiteAvailability{
				{CampsiteID: "11", Site: "001", Loop: "Loop A", Availabilities: model.NewStatusMap("2026-06-01T00:00:00Z", "Available")},
				{CampsiteID: "22", Site: "001", Loop: "Loop B", Availabilities: model.NewStatusMap("2026-06-02T00:00:00Z", "Available")},
			}},
			{Month: 7, Sites: []model.SiteAvailability{
				{CampsiteID: "22", Site: "001", Loop: "Loop B", Availabilities: model.NewStatusMap("2026-07-04T00:00:00Z", "Available")},
			}},
		},
	}
}

func TestSelectSiteRejectsAmbiguousLabel(t *testing.T) {
	_, err := selectSite(sharedLabels(), calendar.SiteRef{Site: "001"}, calendar.Options{})
	if err == nil {
		t.Fatal("expected an error for a label used in two loops")
	}
	for _, want := range []string{"matches 2 sites", `"Loop A"`, `"Loop B"`, "--loop"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestSelectSiteByLoopOrCampsiteID(t *testing.T) {
	for _, ref := range []calendar.SiteRef{
		{Site: "001", Loop: "loop b"},
		{CampsiteID: "22"},
		{Site: "001", CampsiteID: "22"},
	} {
		site, err := selectSite(sharedLabels(), ref, calendar.Options{})
		if err != nil {
			t.Fatalf("selectSite(%+v): %v", ref, err)
		}
		if site.Loop != "Loop B" || strings.Join(site.AvailableDates, " ") != "6/2/2026 7/4/2026" {
			t.Errorf("selectSite(%+v) = %+v", ref, site)
		}
	}
	if _, err := selectSite(sharedLabels(), calendar.SiteRef{Site: "001", Loop: "Loop C"}, calendar.Options{}); err == nil {
		t.Error("expected an error for an unknown loop")
	}
}

// ─── check ────────────────────────────────────────────────────────────────────

func TestNoSitesWarning(t *testing.T) {
	cases := map[string]struct {
		site   string
		nights int
	}{
		`site "A1"`:    {"A1", 3},
		"no site":      {"A1", 0},
		"consecutive":  {"", 2},
		"returned no ": {"", 0},
	}
	for want, c := range cases {
		if got := noSitesWarning(c.site, c.nights); !strings.Contains(got, want) {
			t.Errorf("noSitesWarning(%q, %d) = %q, want it to contain %q", c.site, c.nights, got, want)
		}
	}
}

func TestDrawChartBarAndStrip(t *testing.T) {
	res := june2026()

	var bar bytes.Buffer
	rep := render.NewAvailabilityReport(res, calendar.Options{}, render.Filter{})
	if reportRows(rep) != 2 {
		t.Fatalf("expected 2 rows, got %d", reportRows(rep))
	}
	if err := drawChart(&bar, rep); err != nil {
		t.Fatalf("bar chart: %v", err)
	}
	if !strings.Contains(bar.String(), "2/30") {
		t.Errorf("expected A1 count in bar chart:\n%s", bar.String())
	}

	var strip bytes.Buffer
	rep = render.NewAvailabilityReport(res, calendar.Options{}, render.Filter{Site: "A1"})
	if err := drawChart(&strip, rep); err != nil {
		t.Fatalf("strip chart: %v", err)
	}
	if !strings.Contains(strip.String(), "June 2026") || strings.Contains(strip.String(), "B2") {
		t.Errorf("unexpected strip:\n%s", strip.String())
	}
}

// ─── suggest ──────────────────────────────────────────────────────────────────

type stubFetcher struct {
	err error
}

func (s stubFetcher) SearchSuggestions(context.Context, string) ([]model.SuggestionCandidate, error) {
	return nil, s.err
}

func TestErrFetcherRemembersLatestOutcome(t *testing.T) {
	boom := errors.New("boom")
	f := &errFetcher{next: stubFetcher{err: boom}}
	_, _ = f.SearchSuggestions(context.Background(), "x")
	if !errors.Is(f.lastErr(), boom) {
		t.Fatalf("expected boom, got %v", f.lastErr())
	}
	f.next = stubFetcher{}
	_, _ = f.SearchSuggestions(context.Background(), "y")
	if f.lastErr() != nil {
		t.Fatalf("expected success to clear the error, got %v", f.lastErr())
	}
}

func TestSettledStates(t *testing.T) {
	for _, st := range []suggest.State{suggest.Idle, suggest.ShowingSuggestions, suggest.Dismissed} {
		if !settled(st) {
			t.Errorf("%v should be settled", st)
		}
	}
	for _, st := range []suggest.State{suggest.PendingDebounce, suggest.AwaitingResponse} {
		if settled(st) {
			t.Errorf("%v should not be settled", st)
		}
	}
}

// ─── auth ─────────────────────────────────────────────────────────────────────

func TestReadLine(t *testing.T) {
	got, err := readLine(strings.NewReader("secret1\r\nignored\n"))
	if err != nil || got != "secret1" {
		t.Errorf("got %q %v", got, err)
	}
	got, err = readLine(strings.NewReader("no-newline"))
	if err != nil || got != "no-newline" {
		t.Errorf("got %q %v", got, err)
	}
	got, err = readLine(strings.NewReader(""))
	if err != nil || got != "" {
		t.Errorf("empty input: got %q %v", got, err)
	}
}

// ─── End to end ───────────────────────────────────────────────────────────────

const backendJune = `{"availability": {"6": {
  "100": {"site": "A1", "loop": "Lower", "campsite_id": "100",
          "availabilities": {"2026-06-01T00:00:00Z": "Available", "2026-06-02T00:00:00Z": "Reserved"}},
  "200": {"site": "B2", "loop": "Upper", "campsite_id": "200",
          "availabilities": {"2026-06-01T00:00:00Z": "Reserved"}}
}}}`

// cliEnv points the CLI at a fake backend and a temporary store.
func cliEnv(t *testing.T) *int32 {
	t.Helper()
	var availabilityHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login":
			_, _ = io.WriteString(w, `{"token": "opaque-session"}`)
		case "/availability":
			if r.Header.Get("Authorization") != "Bearer opaque-session" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail": "Not authenticated"}`)
				return
			}
			atomic.AddInt32(&availabilityHits, 1)
			_, _ = io.WriteString(w, backendJune)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail": "Not Found"}`)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv(config.EnvBaseURL, srv.URL)
	t.Setenv(config.EnvDBPath, filepath.Join(dir, "campcheck.db"))
	t.Setenv(config.EnvEnv, "development")
	return &availabilityHits
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--quiet"}, args...))
	t.Cleanup(func() {
		globalFlags.Format, globalFlags.Out, globalFlags.Quiet = "", "", false
		checkCached, checkSummary, checkChart, checkNights = false, false, false, 0
		checkQuery = queryFlags{}
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckRequiresLogin(t *testing.T) {
	cliEnv(t)
	_, err := runCLI(t, "check", "Upper Pines", "--year", "2026", "--months", "6")
	if err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected not-logged-in error, got %v", err)
	}
}

func TestLoginThenCheck(t *testing.T) {
	hits := cliEnv(t)

	if _, err := runCLI(t, "auth", "login", "--email", "ana@example.com", "--password", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err := runCLI(t, "check", "Upper Pines", "--year", "2026", "--months", "6", "--format", "json")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, want := range []string{`"kind": "availability"`, `"A1"`, `"B2"`, `"6/1/2026"`} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %s:\n%s", want, out)
		}
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Fatalf("expected one backend call, got %d", *hits)
	}

	out, err = runCLI(t, "check", "Upper Pines", "--year", "2026", "--months", "6", "--cached", "--format", "csv")
	if err != nil {
		t.Fatalf("cached check: %v", err)
	}
	if atomic.LoadInt32(hits) != 1 {
		t.Errorf("--cached should not call the backend, got %d calls", *hits)
	}
	if !strings.Contains(out, "Upper Pines,2026,6,100,A1,Lower,2026-06-01") {
		t.Errorf("unexpected csv:\n%s", out)
	}
}

func TestVersionReportsBackendAndStore(t *testing.T) {
	cliEnv(t)
	out, err := runCLI(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{`"user_agent": "campcheck-cli/1.0"`, `"store_schema": 2`, `"env": "development"`, "campcheck.db", `"backend": "http://127.0.0.1:`} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %s:\n%s", want, out)
		}
	}

	info := newVersionInfo(nil)
	if info.Backend != "" || info.StoreSchema != store.SchemaVersion || info.Version != Version {
		t.Errorf("build-only info: %+v", info)
	}
}

func TestCheckRejectsBadMonths(t *testing.T) {
	cliEnv(t)
	if _, err := runCLI(t, "check", "Upper Pines", "--year", "2026", "--months", "13"); err == nil {
		t.Fatal("expected month validation error")
	}
}

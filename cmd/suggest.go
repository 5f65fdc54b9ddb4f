package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/app"
	"github.com/derickschaefer/campcheck/internal/fuzzy"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/suggest"
)

// didYouMeanMax caps the local fuzzy hints shown when the backend has no match.
const didYouMeanMax = 3

var (
	suggestInteractive bool
	suggestLimit       int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [query...]",
	Short: "Look up campground names matching a partial query",
	Long: `Look up campground names the backend knows that match a partial query.

With a query argument the lookup runs once and the candidates are printed.
When nothing matches, names seen in earlier lookups are offered as hints.

With --interactive, each line read from stdin replaces the query text, the
way typing in a search box would. Lookups are debounced, so quickly entered
lines collapse into one request, and late answers to superseded queries are
discarded. Enter :<n> to pick candidate n (printed to stdout), an empty line
to clear, or :q to quit.`,
	Example: `  campcheck suggest "upper pi"
  campcheck suggest lake --format json
  campcheck suggest --interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" && !suggestInteractive {
			return fmt.Errorf("a query is required (or use --interactive)")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		if suggestInteractive {
			return runSuggestInteractive(cmd, deps)
		}
		return runSuggestOnce(cmd, deps, query)
	},
}

// ─── One-shot lookup ──────────────────────────────────────────────────────────

func runSuggestOnce(cmd *cobra.Command, deps *app.Deps, query string) error {
	start := time.Now()
	sess := newSuggestSession(cmd.Context(), deps)
	defer sess.ctrl.Close()

	snap, err := sess.input(cmd.Context(), query)
	if err != nil {
		return err
	}
	if ferr := sess.fetcher.lastErr(); ferr != nil {
		return fmt.Errorf("fetching suggestions: %w", ferr)
	}

	cands := snap.Candidates
	if suggestLimit > 0 && len(cands) > suggestLimit {
		cands = cands[:suggestLimit]
	}
	sr := &model.SuggestionResult{Query: query, Candidates: cands}
	if len(cands) == 0 {
		sr.DidYouMean = didYouMean(deps, query)
	} else {
		rememberCandidates(deps, cands)
	}
	if sr.Candidates == nil {
		sr.Candidates = []model.SuggestionCandidate{}
	}
	return emit(cmd, deps, newResult(model.KindSuggestions, "suggest", sr, len(sr.Candidates), start))
}

// ─── Interactive ──────────────────────────────────────────────────────────────

func runSuggestInteractive(cmd *cobra.Command, deps *app.Deps) error {
	ctx := cmd.Context()
	sess := newSuggestSession(ctx, deps)
	defer sess.ctrl.Close()

	prompt := cmd.ErrOrStderr()
	if globalFlags.Quiet {
		prompt = io.Discard
	}
	fmt.Fprintln(prompt, "Type a campground name. :<n> selects, empty line clears, :q quits.")

	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(prompt, "> ")
		if !sc.Scan() {
			fmt.Fprintln(prompt)
			return sc.Err()
		}
		line := sc.Text()
		switch {
		case strings.TrimSpace(line) == ":q":
			return nil
		case strings.HasPrefix(strings.TrimSpace(line), ":"):
			n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(line), ":"))
			if err != nil {
				fmt.Fprintf(prompt, "  not a candidate number: %q\n", line)
				continue
			}
			chosen, err := sess.ctrl.Select(n - 1)
			if err != nil {
				fmt.Fprintf(prompt, "  %v\n", err)
				continue
			}
			rememberCandidates(deps, []model.SuggestionCandidate{chosen})
			fmt.Fprintln(cmd.OutOrStdout(), chosen.Name)
			return nil
		}

		snap, err := sess.input(ctx, line)
		if err != nil {
			return err
		}
		if ferr := sess.fetcher.lastErr(); ferr != nil {
			fmt.Fprintf(prompt, "  lookup failed: %v\n", ferr)
			continue
		}
		printCandidates(prompt, deps, strings.TrimSpace(line), snap)
	}
}

func printCandidates(w io.Writer, deps *app.Deps, query string, snap suggest.Snapshot) {
	if query == "" {
		return
	}
	if !snap.Visible {
		fmt.Fprintf(w, "  No campgrounds match %q.\n", query)
		if hints := didYouMean(deps, query); len(hints) > 0 {
			fmt.Fprintf(w, "  Did you mean: %s?\n", strings.Join(hints, ", "))
		}
		return
	}
	for i, c := range snap.Candidates {
		fmt.Fprintf(w, "  %d. %s\n", i+1, c.Name)
	}
}

// ─── Session plumbing ─────────────────────────────────────────────────────────

// suggestSession pairs a controller with a channel of its transitions so
// the CLI can wait for a lookup to settle.
type suggestSession struct {
	ctrl    *suggest.Controller
	fetcher *errFetcher
	changes chan suggest.Snapshot
	wait    time.Duration
}

func newSuggestSession(ctx context.Context, deps *app.Deps) *suggestSession {
	s := &suggestSession{
		fetcher: &errFetcher{next: deps.Client},
		changes: make(chan suggest.Snapshot, 64),
		wait:    deps.Config.Timeout + suggest.MaxDebounce,
	}
	s.ctrl = suggest.New(ctx, s.fetcher, suggest.Options{
		Debounce:  deps.Config.Debounce,
		BlurGrace: deps.Config.BlurGrace,
		Logger:    deps.Logger.Named("suggest"),
		OnChange: func(snap suggest.Snapshot) {
			select {
			case s.changes <- snap:
			default:
			}
		},
	})
	return s
}

// input replaces the query and waits until the controller is neither
// debouncing nor awaiting a response.
func (s *suggestSession) input(ctx context.Context, text string) (suggest.Snapshot, error) {
	s.drain()
	s.ctrl.Input(text)
	if strings.TrimSpace(text) == "" {
		return s.ctrl.Snapshot(), nil
	}
	timer := time.NewTimer(s.wait)
	defer timer.Stop()
	for {
		select {
		case snap := <-s.changes:
			if settled(snap.State) {
				return snap, nil
			}
		case <-timer.C:
			return suggest.Snapshot{}, errors.New("timed out waiting for suggestions")
		case <-ctx.Done():
			return suggest.Snapshot{}, ctx.Err()
		}
	}
}

func (s *suggestSession) drain() {
	for {
		select {
		case <-s.changes:
		default:
			return
		}
	}
}

func settled(st suggest.State) bool {
	return st == suggest.Idle || st == suggest.ShowingSuggestions || st == suggest.Dismissed
}

// errFetcher remembers the outcome of the latest lookup; the controller
// only logs failures.
type errFetcher struct {
	next suggest.Fetcher

	mu  sync.Mutex
	err error
}

func (f *errFetcher) SearchSuggestions(ctx context.Context, query string) ([]model.SuggestionCandidate, error) {
	cands, err := f.next.SearchSuggestions(ctx, query)
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	return cands, err
}

func (f *errFetcher) lastErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// ─── Name memory ──────────────────────────────────────────────────────────────

// rememberCandidates records names for later fuzzy hints. Failures only log.
func rememberCandidates(deps *app.Deps, cands []model.SuggestionCandidate) {
	if err := deps.RequireStore(); err != nil {
		deps.Logger.Debug("not remembering names", zap.Error(err))
		return
	}
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.Name)
	}
	if err := deps.Store.RememberNames(names...); err != nil {
		deps.Logger.Warn("remembering campground names", zap.Error(err))
	}
}

// didYouMean offers remembered names close to query.
func didYouMean(deps *app.Deps, query string) []string {
	names, err := deps.KnownNames()
	if err != nil {
		deps.Logger.Debug("no remembered names", zap.Error(err))
		return nil
	}
	return fuzzy.NewMatcher(names).Names(query, didYouMeanMax)
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().BoolVarP(&suggestInteractive, "interactive", "i", false, "read query text line by line from stdin")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 0, "show at most this many candidates (0 = all)")
}

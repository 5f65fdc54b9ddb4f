// Package suggest implements the debounced campground-name lookup behind the
// search box: keystrokes restart a timer, the timer issues one request, and
// only the newest response may replace the dropdown.
package suggest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/model"
)

const (
	DefaultDebounce  = 300 * time.Millisecond
	MinDebounce      = 200 * time.Millisecond
	MaxDebounce      = 500 * time.Millisecond
	DefaultBlurGrace = 150 * time.Millisecond
)

// ErrNotVisible is returned by Select when no dropdown is showing or the
// index is outside it.
var ErrNotVisible = errors.New("no suggestion list is visible")

// State is the controller's position in the lookup cycle.
type State int

const (
	Idle State = iota
	PendingDebounce
	AwaitingResponse
	ShowingSuggestions
	Dismissed
)

func (s State) String() string {
	switch s {
	case PendingDebounce:
		return "pending"
	case AwaitingResponse:
		return "awaiting"
	case ShowingSuggestions:
		return "showing"
	case Dismissed:
		return "dismissed"
	default:
		return "idle"
	}
}

// Fetcher performs one suggestion lookup. *camp.Client satisfies it.
type Fetcher interface {
	SearchSuggestions(ctx context.Context, query string) ([]model.SuggestionCandidate, error)
}

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Executor runs a lookup. The default starts a goroutine.
type Executor func(job func())

// Options configures a Controller. Zero values fall back to defaults.
type Options struct {
	Debounce  time.Duration
	BlurGrace time.Duration
	Clock     Clock
	Exec      Executor
	Logger    *zap.Logger
	// OnSelect receives the chosen display name.
	OnSelect func(name string)
	// OnChange receives a snapshot after every transition.
	OnChange func(Snapshot)
}

// Snapshot is a copy of the observable controller state.
type Snapshot struct {
	State      State
	Text       string
	Candidates []model.SuggestionCandidate
	Visible    bool
	Focused    bool
}

// Controller owns one search box's query state. It is safe for concurrent
// use; callbacks run without the lock held.
type Controller struct {
	fetcher   Fetcher
	debounce  time.Duration
	blurGrace time.Duration
	clock     Clock
	exec      Executor
	log       *zap.Logger
	onSelect  func(string)
	onChange  func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	text       string
	issued     uint64
	applied    uint64
	candidates []model.SuggestionCandidate
	visible    bool
	focused    bool
	state      State
	closed     bool

	debounceTimer Timer
	debounceGen   uint64
	pending       bool
	blurTimer     Timer
	blurGen       uint64
}

// ClampDebounce limits d to the supported debounce window. Zero means the
// default.
func ClampDebounce(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultDebounce
	case d < MinDebounce:
		return MinDebounce
	case d > MaxDebounce:
		return MaxDebounce
	}
	return d
}

// New creates a Controller. The controller's lifetime context is derived
// from ctx; Close cancels it.
func New(ctx context.Context, fetcher Fetcher, opts Options) *Controller {
	blur := opts.BlurGrace
	if blur <= 0 {
		blur = DefaultBlurGrace
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	exec := opts.Exec
	if exec == nil {
		exec = func(job func()) { go job() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cctx, cancel := context.WithCancel(ctx)
	return &Controller{
		fetcher:   fetcher,
		debounce:  ClampDebounce(opts.Debounce),
		blurGrace: blur,
		clock:     clock,
		exec:      exec,
		log:       logger,
		onSelect:  opts.OnSelect,
		onChange:  opts.OnChange,
		ctx:       cctx,
		cancel:    cancel,
		focused:   true,
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// Input records new text from the box.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopDebounce()
	c.text = text
	c.focused = true

	if strings.TrimSpace(text) == "" {
		c.candidates = nil
		c.visible = false
		c.applied = c.issued
		c.state = Idle
	} else {
		c.debounceGen++
		gen := c.debounceGen
		c.pending = true
		c.debounceTimer = c.clock.AfterFunc(c.debounce, func() { c.fire(gen) })
		c.state = PendingDebounce
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// fire issues the lookup for the text current when the debounce elapsed.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.debounceGen || !c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.debounceTimer = nil
	c.issued++
	seq := c.issued
	query := strings.TrimSpace(c.text)
	c.state = AwaitingResponse
	snap := c.snapshotLocked()
	ctx := c.ctx
	c.mu.Unlock()
	c.notify(snap)

	c.log.Debug("suggestion lookup", zap.Uint64("seq", seq), zap.String("query", query))
	c.exec(func() {
		cands, err := c.fetcher.SearchSuggestions(ctx, query)
		c.apply(seq, query, cands, err)
	})
}

// apply installs a response if it is newer than anything applied so far.
func (c *Controller) apply(seq uint64, query string, cands []model.SuggestionCandidate, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if seq <= c.applied {
		c.mu.Unlock()
		c.log.Debug("dropping stale suggestions",
			zap.Uint64("seq", seq), zap.String("query", query), zap.Error(err))
		return
	}
	c.applied = seq
	if err != nil {
		c.candidates = nil
		c.visible = false
	} else {
		// An unfocused box keeps the candidates hidden until Focus.
		c.candidates = cands
		c.visible = len(cands) > 0 && c.focused
	}
	c.state = c.settledStateLocked(seq)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Error("fetching suggestions", zap.String("query", query), zap.Error(err))
	}
	c.notify(snap)
}

// settledStateLocked is the state after response seq lands, accounting for
// work still outstanding.
func (c *Controller) settledStateLocked(seq uint64) State {
	switch {
	case c.pending:
		return PendingDebounce
	case seq < c.issued:
		return AwaitingResponse
	case c.visible:
		return ShowingSuggestions
	case len(c.candidates) > 0:
		return Dismissed
	default:
		return Idle
	}
}

// Select chooses the candidate at index from the visible list.
func (c *Controller) Select(index int) (model.SuggestionCandidate, error) {
	c.mu.Lock()
	if c.closed || !c.visible || index < 0 || index >= len(c.candidates) {
		c.mu.Unlock()
		return model.SuggestionCandidate{}, ErrNotVisible
	}
	chosen := c.candidates[index]
	c.stopDebounce()
	c.stopBlur()
	c.text = chosen.Name
	c.candidates = nil
	c.visible = false
	c.applied = c.issued
	c.state = Dismissed
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	if c.onSelect != nil {
		c.onSelect(chosen.Name)
	}
	return chosen, nil
}

// Blur hides a visible list after the grace delay unless focus returns.
func (c *Controller) Blur() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.focused = false
	if !c.visible {
		return
	}
	c.stopBlur()
	c.blurGen++
	gen := c.blurGen
	c.blurTimer = c.clock.AfterFunc(c.blurGrace, func() { c.hide(gen) })
}

func (c *Controller) hide(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.blurGen || c.focused || !c.visible {
		c.mu.Unlock()
		return
	}
	c.blurTimer = nil
	c.visible = false
	if c.state == ShowingSuggestions {
		c.state = Dismissed
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Focus re-shows the last candidates, without fetching, when there is text.
func (c *Controller) Focus() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.focused = true
	c.stopBlur()
	changed := false
	if !c.visible && strings.TrimSpace(c.text) != "" && len(c.candidates) > 0 {
		c.visible = true
		if c.state == Dismissed || c.state == Idle {
			c.state = ShowingSuggestions
		}
		changed = true
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	if changed {
		c.notify(snap)
	}
}

// Close stops timers and cancels outstanding lookups. Later events are
// ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopDebounce()
	c.stopBlur()
	c.mu.Unlock()
	c.cancel()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ─── Internals ────────────────────────────────────────────────────────────────

func (c *Controller) stopDebounce() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.pending = false
}

func (c *Controller) stopBlur() {
	if c.blurTimer != nil {
		c.blurTimer.Stop()
		c.blurTimer = nil
	}
	c.blurGen++
}

func (c *Controller) snapshotLocked() Snapshot {
	cands := make([]model.SuggestionCandidate, len(c.candidates))
	copy(cands, c.candidates)
	return Snapshot{
		State:      c.state,
		Text:       c.text,
		Candidates: cands,
		Visible:    c.visible,
		Focused:    c.focused,
	}
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

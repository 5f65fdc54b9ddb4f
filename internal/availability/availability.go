// Package availability tracks one availability lookup at a time for a view:
// a second submit while loading is refused, and responses that arrive after
// the view was reset are discarded.
package availability

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/model"
)

var (
	// ErrInFlight is returned when a submission is already outstanding.
	ErrInFlight = errors.New("an availability check is already in progress")
	// ErrSuperseded is returned when Reset ran while the request was out.
	ErrSuperseded = errors.New("availability result superseded")
)

// Checker performs the lookup. *camp.Client satisfies it.
type Checker interface {
	CheckAvailability(ctx context.Context, req model.AvailabilityRequest) (*model.AvailabilityResult, error)
}

// View is the state a renderer shows.
type View struct {
	Result  *model.AvailabilityResult
	Request model.AvailabilityRequest
	Loading bool
	Err     error
}

// Controller serialises submissions and discards late results.
type Controller struct {
	checker Checker
	log     *zap.Logger

	mu      sync.Mutex
	epoch   uint64
	loading bool
	view    View
}

// New returns a Controller. A nil logger discards output.
func New(checker Checker, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{checker: checker, log: logger}
}

// Submit runs one lookup and, if it is still current when it returns,
// installs it as the displayed result.
func (c *Controller) Submit(ctx context.Context, req model.AvailabilityRequest) (*model.AvailabilityResult, error) {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil, ErrInFlight
	}
	c.epoch++
	epoch := c.epoch
	c.loading = true
	c.view.Loading = true
	c.view.Request = req
	c.mu.Unlock()

	res, err := c.checker.CheckAvailability(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		c.log.Debug("discarding superseded availability",
			zap.String("campground", req.CampgroundName),
			zap.Uint64("epoch", epoch))
		return nil, ErrSuperseded
	}
	c.loading = false
	c.view.Loading = false
	if err != nil {
		c.view.Err = err
		c.view.Result = nil
		return nil, err
	}
	c.view.Err = nil
	c.view.Result = res
	return res, nil
}

// Reset clears the view and invalidates any outstanding submission.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.loading = false
	c.view = View{}
}

// Current returns the displayed state.
func (c *Controller) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

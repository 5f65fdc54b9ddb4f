package availability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/derickschaefer/campcheck/internal/availability"
	"github.com/derickschaefer/campcheck/internal/model"
)

// gatedChecker blocks each lookup until the test releases it.
type gatedChecker struct {
	started chan model.AvailabilityRequest
	release chan error
}

func newGated() *gatedChecker {
	return &gatedChecker{
		started: make(chan model.AvailabilityRequest, 4),
		release: make(chan error, 4),
	}
}

func (g *gatedChecker) CheckAvailability(_ context.Context, req model.AvailabilityRequest) (*model.AvailabilityResult, error) {
	g.started <- req
	if err := <-g.release; err != nil {
		return nil, err
	}
	return &model.AvailabilityResult{CampgroundName: req.CampgroundName, Year: req.Year}, nil
}

type outcome struct {
	res *model.AvailabilityResult
	err error
}

func submitAsync(c *availability.Controller, req model.AvailabilityRequest) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		res, err := c.Submit(context.Background(), req)
		ch <- outcome{res, err}
	}()
	return ch
}

func req(name string) model.AvailabilityRequest {
	return model.AvailabilityRequest{CampgroundName: name, Year: 2025, SelectedMonths: []int{6}}
}

func TestSubmitAppliesResult(t *testing.T) {
	g := newGated()
	c := availability.New(g, nil)

	done := submitAsync(c, req("Yosemite"))
	<-g.started
	if !c.Current().Loading {
		t.Error("expected Loading while the lookup is out")
	}
	g.release <- nil
	out := <-done
	if out.err != nil {
		t.Fatalf("Submit: %v", out.err)
	}
	v := c.Current()
	if v.Loading || v.Result == nil || v.Result.CampgroundName != "Yosemite" {
		t.Errorf("unexpected view: %+v", v)
	}
}

func TestSubmitRejectsWhileLoading(t *testing.T) {
	g := newGated()
	c := availability.New(g, nil)

	done := submitAsync(c, req("A"))
	<-g.started
	if _, err := c.Submit(context.Background(), req("B")); !errors.Is(err, availability.ErrInFlight) {
		t.Errorf("expected ErrInFlight, got %v", err)
	}
	g.release <- nil
	<-done
	if got := c.Current().Result.CampgroundName; got != "A" {
		t.Errorf("expected first request's result, got %q", got)
	}
}

func TestResetSupersedesLateResponse(t *testing.T) {
	g := newGated()
	c := availability.New(g, nil)

	done := submitAsync(c, req("Old"))
	<-g.started
	c.Reset()

	// A new submission is allowed immediately after reset.
	done2 := submitAsync(c, req("New"))
	<-g.started
	g.release <- nil
	g.release <- nil

	first, second := <-done, <-done2
	if !errors.Is(first.err, availability.ErrSuperseded) || second.err != nil {
		t.Fatalf("expected only the old request to be superseded, got %v / %v", first.err, second.err)
	}
	if got := c.Current().Result.CampgroundName; got != "New" {
		t.Errorf("late response replaced the view: %q", got)
	}
}

func TestSubmitErrorKeepsNoResult(t *testing.T) {
	g := newGated()
	c := availability.New(g, nil)

	done := submitAsync(c, req("A"))
	<-g.started
	boom := errors.New("boom")
	g.release <- boom
	if out := <-done; !errors.Is(out.err, boom) {
		t.Fatalf("expected boom, got %v", out.err)
	}
	v := c.Current()
	if v.Result != nil || !errors.Is(v.Err, boom) || v.Loading {
		t.Errorf("unexpected view after error: %+v", v)
	}

	// Not stuck loading: the next submit proceeds.
	done = submitAsync(c, req("B"))
	<-g.started
	g.release <- nil
	if out := <-done; out.err != nil {
		t.Errorf("retry after error: %v", out.err)
	}
}

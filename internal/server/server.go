// Package server exposes campcheck's lookups as a small local JSON API so a
// separate rendering layer can drive the same projections the CLI prints.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/availability"
	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/forms"
	"github.com/derickschaefer/campcheck/internal/fuzzy"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/render"
	"github.com/derickschaefer/campcheck/internal/session"
)

// Backend is the slice of the API client the server calls.
type Backend interface {
	SearchSuggestions(ctx context.Context, query string) ([]model.SuggestionCandidate, error)
	CheckAvailability(ctx context.Context, req model.AvailabilityRequest) (*model.AvailabilityResult, error)
	SendAvailability(ctx context.Context, req model.AvailabilityRequest) error
}

// NameSource supplies previously seen campground names for "did you mean".
type NameSource func() ([]string, error)

// Options configures a Server.
type Options struct {
	Logger      *zap.Logger
	LabelLayout string
	Names       NameSource
	// Production switches gin to release mode.
	Production bool
}

// Response is the envelope of every API reply.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ViewHeader names the client view a request belongs to. Each view holds
// one availability lookup at a time; requests without it share one view.
const ViewHeader = "X-Campcheck-View"

const defaultView = "default"

// Server is the local API.
type Server struct {
	backend Backend
	opts    Options
	log     *zap.Logger
	engine  *gin.Engine

	mu    sync.Mutex
	views map[string]*view
}

// view is the availability state of one client view.
type view struct {
	ctrl   *availability.Controller
	filter render.Filter
}

// New builds the router.
func New(backend Backend, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{backend: backend, opts: opts, log: opts.Logger, views: make(map[string]*view)}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	corsCfg := cors.DefaultConfig()
	corsCfg.AddAllowHeaders("Authorization", ViewHeader)
	corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	r.Use(cors.New(corsCfg))
	if err := r.SetTrustedProxies(nil); err != nil {
		s.log.Warn("disabling trusted proxies", zap.Error(err))
	}

	r.GET("/health", s.health)
	api := r.Group("/api")
	api.GET("/suggestions", s.suggestions)
	api.POST("/availability", s.availability)
	api.GET("/availability", s.currentAvailability)
	api.DELETE("/availability", s.resetAvailability)
	api.POST("/share", s.share)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) health(c *gin.Context) {
	ok(c, gin.H{"status": "ok"})
}

func (s *Server) suggestions(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	out := &model.SuggestionResult{Query: query, Candidates: []model.SuggestionCandidate{}}
	if query == "" {
		ok(c, out)
		return
	}
	cands, err := s.backend.SearchSuggestions(c.Request.Context(), query)
	if err != nil {
		s.fail(c, err)
		return
	}
	if len(cands) > 0 {
		out.Candidates = cands
	}
	if len(cands) == 0 && s.opts.Names != nil {
		if names, err := s.opts.Names(); err == nil {
			out.DidYouMean = fuzzy.NewMatcher(names).Names(query, 3)
		}
	}
	ok(c, out)
}

// AvailabilityBody is the POST /api/availability request.
type AvailabilityBody struct {
	CampgroundName string `json:"campgroundName"`
	Year           int    `json:"year"`
	SelectedMonths []int  `json:"selectedMonths"`
	Site           string `json:"site,omitempty"`
	Nights         int    `json:"nights,omitempty"`
	Summary        bool   `json:"summary,omitempty"`
}

// AvailabilityView is the reply of GET /api/availability.
type AvailabilityView struct {
	Loading bool                       `json:"loading"`
	Request *model.AvailabilityRequest `json:"request,omitempty"`
	Report  *render.AvailabilityReport `json:"report,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

func (s *Server) viewFor(c *gin.Context) *view {
	name := strings.TrimSpace(c.GetHeader(ViewHeader))
	if name == "" {
		name = defaultView
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.views[name]
	if !found {
		v = &view{ctrl: availability.New(s.backend, s.log.Named("availability").With(zap.String("view", name)))}
		s.views[name] = v
	}
	return v
}

func (s *Server) availability(c *gin.Context) {
	var body AvailabilityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		reply(c, http.StatusBadRequest, "invalid JSON body: "+err.Error(), nil)
		return
	}
	req := camp.NewAvailabilityRequest(body.CampgroundName, body.Year, body.SelectedMonths)
	if err := forms.Availability(req); err != nil {
		s.fail(c, err)
		return
	}
	filter := render.Filter{Site: body.Site, Nights: body.Nights, Summary: body.Summary}
	v := s.viewFor(c)
	res, err := v.ctrl.Submit(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mu.Lock()
	v.filter = filter
	s.mu.Unlock()
	ok(c, render.NewAvailabilityReport(res, s.calendarOptions(), filter))
}

func (s *Server) currentAvailability(c *gin.Context) {
	v := s.viewFor(c)
	cur := v.ctrl.Current()
	s.mu.Lock()
	filter := v.filter
	s.mu.Unlock()

	out := AvailabilityView{Loading: cur.Loading}
	if cur.Loading || cur.Result != nil || cur.Err != nil {
		req := cur.Request
		out.Request = &req
	}
	if cur.Result != nil {
		out.Report = render.NewAvailabilityReport(cur.Result, s.calendarOptions(), filter)
	}
	if cur.Err != nil {
		out.Error = cur.Err.Error()
	}
	ok(c, out)
}

func (s *Server) resetAvailability(c *gin.Context) {
	v := s.viewFor(c)
	v.ctrl.Reset()
	s.mu.Lock()
	v.filter = render.Filter{}
	s.mu.Unlock()
	ok(c, gin.H{"reset": true})
}

func (s *Server) calendarOptions() calendar.Options {
	return calendar.Options{LabelLayout: s.opts.LabelLayout}
}

func (s *Server) share(c *gin.Context) {
	var req model.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reply(c, http.StatusBadRequest, "invalid JSON body: "+err.Error(), nil)
		return
	}
	if err := forms.Share(req); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.backend.SendAvailability(c.Request.Context(), req); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, gin.H{"site": req.SelectedSite.Site, "dates": len(req.SelectedSite.AvailableDates)})
}

// ─── Replies ──────────────────────────────────────────────────────────────────

func ok(c *gin.Context, data interface{}) {
	reply(c, http.StatusOK, "ok", data)
}

func reply(c *gin.Context, status int, msg string, data interface{}) {
	code := 1
	if status >= 400 {
		code = 0
	}
	c.JSON(status, Response{Code: code, Message: msg, Data: data})
}

// fail maps err to a status: validation 400, session 401, a lookup already
// running for the view 409, a lookup discarded by a reset 410, backend
// errors keep the backend status, anything else 502.
func (s *Server) fail(c *gin.Context, err error) {
	var ferr *forms.Error
	switch {
	case errors.As(err, &ferr):
		reply(c, http.StatusBadRequest, ferr.Error(), ferr.Fields)
	case errors.Is(err, availability.ErrInFlight):
		reply(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, availability.ErrSuperseded):
		reply(c, http.StatusGone, err.Error(), nil)
	case errors.Is(err, session.ErrExpired), errors.Is(err, session.ErrNotLoggedIn):
		reply(c, http.StatusUnauthorized, err.Error(), nil)
	case camp.StatusOf(err) != 0:
		reply(c, camp.StatusOf(err), camp.DetailMessage(err, err.Error()), nil)
	default:
		s.log.Warn("backend call failed", zap.String("path", c.FullPath()), zap.Error(err))
		reply(c, http.StatusBadGateway, err.Error(), nil)
	}
}

// Package app wires together configuration, the API client, and other
// dependencies into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/derickschaefer/campcheck/internal/calendar"
	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/config"
	"github.com/derickschaefer/campcheck/internal/session"
	"github.com/derickschaefer/campcheck/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// The store is opened lazily; commands that need it call RequireStore.
type Deps struct {
	Config  *config.Config
	Client  *camp.Client
	Store   *store.Store
	Session *session.Provider
	Logger  *zap.Logger
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	logger := zap.NewNop()
	if !cfg.Quiet {
		logger = NewLogger(cfg.Env, cfg.Debug)
	}
	d := &Deps{Config: cfg, Logger: logger}
	d.Session = session.NewProvider(d.tokenStore, logger.Named("session"))
	d.Client = camp.NewClient(camp.Options{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		RatePerSec:  cfg.Rate,
		Credentials: d.Session,
		Logger:      logger.Named("camp"),
	})
	return d
}

func (d *Deps) tokenStore() (session.TokenStore, error) {
	if err := d.RequireStore(); err != nil {
		return nil, err
	}
	return d.Store, nil
}

// RequireStore opens the local store if it is not open yet.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path: set db_path in config.json or %s", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	d.Store = s
	return nil
}

// Close releases the store and flushes the logger.
func (d *Deps) Close() error {
	_ = d.Logger.Sync()
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}

// CalendarOptions returns the projection options from config.
func (d *Deps) CalendarOptions() calendar.Options {
	return calendar.Options{LabelLayout: d.Config.DateLayout}
}

// KnownNames returns remembered campground names, most used first. A store
// that cannot be opened yields no names.
func (d *Deps) KnownNames() ([]string, error) {
	if err := d.RequireStore(); err != nil {
		return nil, err
	}
	recs, err := d.Store.ListNames()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names, nil
}

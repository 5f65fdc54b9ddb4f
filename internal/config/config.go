// Package config handles loading and resolving campcheck configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flag --base-url
//  2. Environment variables CAMPCHECK_* (a .env file in the working
//     directory is loaded first and never overrides real variables)
//  3. config.json in the current working directory
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile    = "config.json"
	DefaultEnvFile       = ".env"
	DefaultFormat        = "table"
	DefaultTimeout       = 30 * time.Second
	DefaultRate          = 5.0
	DefaultBaseURL       = "http://localhost:8087/"
	DefaultEnv           = "development"
	DefaultDebounce      = 300 * time.Millisecond
	DefaultBlurGrace     = 150 * time.Millisecond
	DefaultDateLayout    = "1/2/2006"
	DefaultListen        = "127.0.0.1:8088"
	DefaultWatchSchedule = "*/15 * * * *"

	EnvBaseURL = "CAMPCHECK_BASE_URL"
	EnvDBPath  = "CAMPCHECK_DB_PATH"
	EnvEnv     = "CAMPCHECK_ENV"
)

// Debounce window accepted from configuration.
const (
	MinDebounce = 200 * time.Millisecond
	MaxDebounce = 500 * time.Millisecond
)

// File is the on-disk representation of config.json.
type File struct {
	BaseURL       string  `json:"base_url"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Rate          float64 `json:"rate"`
	DBPath        string  `json:"db_path,omitempty"`
	Env           string  `json:"env,omitempty"`
	Debounce      string  `json:"debounce,omitempty"`
	BlurGrace     string  `json:"blur_grace,omitempty"`
	DateLayout    string  `json:"date_layout,omitempty"`
	Listen        string  `json:"listen,omitempty"`
	WatchSchedule string  `json:"watch_schedule,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	BaseURL       string
	Format        string
	Timeout       time.Duration
	Rate          float64
	DBPath        string
	Env           string
	Debounce      time.Duration
	BlurGrace     time.Duration
	DateLayout    string
	Listen        string
	WatchSchedule string
	ConfigPath    string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagBaseURL is the value of --base-url (empty string if not set).
func Load(flagBaseURL string) (*Config, error) {
	cfg := &Config{
		BaseURL:       DefaultBaseURL,
		Format:        DefaultFormat,
		Timeout:       DefaultTimeout,
		Rate:          DefaultRate,
		Env:           DefaultEnv,
		Debounce:      DefaultDebounce,
		BlurGrace:     DefaultBlurGrace,
		DateLayout:    DefaultDateLayout,
		Listen:        DefaultListen,
		WatchSchedule: DefaultWatchSchedule,
	}

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Layer 2: .env then environment
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", DefaultEnvFile, err)
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvEnv); v != "" {
		cfg.Env = v
	}

	// Layer 3: CLI flag (highest priority)
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".campcheck", "campcheck.db")
		}
	}

	cfg.Debounce = ClampDebounce(cfg.Debounce)
	return cfg, nil
}

// Validate returns an error if the resolved values cannot be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf(
			"invalid backend URL %q.\n\n"+
				"Set it one of these ways:\n"+
				"  1. CLI flag:        campcheck --base-url http://host:8087/ ...\n"+
				"  2. Environment:     export %s=http://host:8087/\n"+
				"  3. config.json:     {\"base_url\": \"http://host:8087/\"}",
			c.BaseURL, EnvBaseURL,
		)
	}
	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("invalid env %q: expected development or production", c.Env)
	}
	return nil
}

// IsProduction reports whether logging should use the production encoder.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// ClampDebounce keeps d within the supported debounce window.
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

// LoadFile reads config.json from the current working directory.
// A missing file wraps os.ErrNotExist.
func LoadFile() (*File, string, error) {
	return loadFile()
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s: %w", path, os.ErrNotExist)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if d, ok := parseDuration(f.Timeout); ok {
		cfg.Timeout = d
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.Env != "" {
		cfg.Env = f.Env
	}
	if d, ok := parseDuration(f.Debounce); ok {
		cfg.Debounce = d
	}
	if d, ok := parseDuration(f.BlurGrace); ok {
		cfg.BlurGrace = d
	}
	if f.DateLayout != "" {
		cfg.DateLayout = f.DateLayout
	}
	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	if f.WatchSchedule != "" {
		cfg.WatchSchedule = f.WatchSchedule
	}
}

func parseDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `campcheck config init`.
func Template() File {
	return File{
		BaseURL:       DefaultBaseURL,
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Rate:          DefaultRate,
		Env:           DefaultEnv,
		Debounce:      DefaultDebounce.String(),
		BlurGrace:     DefaultBlurGrace.String(),
		DateLayout:    DefaultDateLayout,
		Listen:        DefaultListen,
		WatchSchedule: DefaultWatchSchedule,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// Set assigns one config.json key from its string form.
func (f *File) Set(key, val string) error {
	switch key {
	case "base_url":
		f.BaseURL = val
	case "default_format", "format":
		f.DefaultFormat = val
	case "timeout", "debounce", "blur_grace":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("%s must be a duration such as 300ms or 30s", key)
		}
		switch key {
		case "timeout":
			f.Timeout = val
		case "debounce":
			f.Debounce = val
		default:
			f.BlurGrace = val
		}
	case "rate":
		var r float64
		if _, err := fmt.Sscanf(val, "%f", &r); err != nil || r <= 0 {
			return fmt.Errorf("rate must be a positive number")
		}
		f.Rate = r
	case "db_path":
		f.DBPath = val
	case "env":
		if val != "development" && val != "production" {
			return fmt.Errorf("env must be development or production")
		}
		f.Env = val
	case "date_layout":
		f.DateLayout = val
	case "listen":
		f.Listen = val
	case "watch_schedule":
		f.WatchSchedule = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, KeyList)
	}
	return nil
}

// KeyList names every settable key, for help and error text.
const KeyList = "base_url, default_format, timeout, rate, db_path, env, debounce, blur_grace, date_layout, listen, watch_schedule"

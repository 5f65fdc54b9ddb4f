package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/derickschaefer/campcheck/internal/config"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// chdir changes the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// writeConfig writes a config.json into dir and changes the working directory
// to dir so config.Load() finds it.
func writeConfig(t *testing.T, dir string, f config.File) {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
}

// clearEnv unsets the CAMPCHECK_* variables for the duration of the test.
// Variables are removed rather than emptied so a .env file can supply them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvBaseURL, config.EnvDBPath, config.EnvEnv} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Format != config.DefaultFormat {
		t.Errorf("Format: expected %q, got %q", config.DefaultFormat, cfg.Format)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout: expected %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
	if cfg.Rate != config.DefaultRate {
		t.Errorf("Rate: expected %g, got %g", config.DefaultRate, cfg.Rate)
	}
	if cfg.BaseURL != config.DefaultBaseURL {
		t.Errorf("BaseURL: expected %q, got %q", config.DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.Debounce != 300*time.Millisecond {
		t.Errorf("Debounce: expected 300ms, got %v", cfg.Debounce)
	}
	if cfg.BlurGrace != 150*time.Millisecond {
		t.Errorf("BlurGrace: expected 150ms, got %v", cfg.BlurGrace)
	}
	if cfg.Env != "development" || cfg.IsProduction() {
		t.Errorf("Env: expected development, got %q", cfg.Env)
	}
	if cfg.WatchSchedule != config.DefaultWatchSchedule {
		t.Errorf("WatchSchedule: expected %q, got %q", config.DefaultWatchSchedule, cfg.WatchSchedule)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should have a default (home dir based) value")
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty when no file found, got %q", cfg.ConfigPath)
	}
}

// ─── Config file loading ──────────────────────────────────────────────────────

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{
		BaseURL:       "https://camp.example.com/",
		DefaultFormat: "json",
		Timeout:       "60s",
		Rate:          2.5,
		DBPath:        "/tmp/test.db",
		Env:           "production",
		Debounce:      "400ms",
		BlurGrace:     "200ms",
		DateLayout:    "2006-01-02",
		Listen:        ":9000",
		WatchSchedule: "@hourly",
	})

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BaseURL != "https://camp.example.com/" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
	if cfg.Format != "json" {
		t.Errorf("Format: expected json, got %q", cfg.Format)
	}
	if cfg.Timeout.String() != "1m0s" {
		t.Errorf("Timeout: expected 1m0s, got %q", cfg.Timeout.String())
	}
	if cfg.Rate != 2.5 {
		t.Errorf("Rate: expected 2.5, got %g", cfg.Rate)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath: expected /tmp/test.db, got %q", cfg.DBPath)
	}
	if !cfg.IsProduction() {
		t.Errorf("Env: expected production, got %q", cfg.Env)
	}
	if cfg.Debounce != 400*time.Millisecond || cfg.BlurGrace != 200*time.Millisecond {
		t.Errorf("timings: debounce=%v blur=%v", cfg.Debounce, cfg.BlurGrace)
	}
	if cfg.DateLayout != "2006-01-02" || cfg.Listen != ":9000" || cfg.WatchSchedule != "@hourly" {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if !strings.Contains(cfg.ConfigPath, "config.json") {
		t.Errorf("ConfigPath should contain config.json, got %q", cfg.ConfigPath)
	}
}

func TestLoadInvalidTimeoutIgnored(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{Timeout: "not-a-duration"})

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("invalid timeout should use default %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
	if _, err := config.Load(""); err == nil {
		t.Error("malformed config.json should be reported")
	}
}

func TestDebounceClamped(t *testing.T) {
	cases := map[string]time.Duration{
		"50ms":  config.MinDebounce,
		"250ms": 250 * time.Millisecond,
		"3s":    config.MaxDebounce,
	}
	for in, want := range cases {
		clearEnv(t)
		writeConfig(t, t.TempDir(), config.File{Debounce: in})
		cfg, err := config.Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Debounce != want {
			t.Errorf("debounce %s: expected %v, got %v", in, want, cfg.Debounce)
		}
	}
}

// ─── Environment priority ─────────────────────────────────────────────────────

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{BaseURL: "http://file:1/"})
	t.Setenv(config.EnvBaseURL, "http://env:2/")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://env:2/" {
		t.Errorf("env should override file: got %q", cfg.BaseURL)
	}
}

func TestLoadEnvDBPath(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv(config.EnvDBPath, "/custom/path/campcheck.db")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/custom/path/campcheck.db" {
		t.Errorf("CAMPCHECK_DB_PATH: expected /custom/path/campcheck.db, got %q", cfg.DBPath)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := config.EnvBaseURL + "=http://dotenv:3/\n" + config.EnvEnv + "=production\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://dotenv:3/" || !cfg.IsProduction() {
		t.Errorf(".env not applied: base=%q env=%q", cfg.BaseURL, cfg.Env)
	}
}

func TestDotEnvDoesNotOverrideRealEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(config.EnvBaseURL+"=http://dotenv:3/\n"), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
	t.Setenv(config.EnvBaseURL, "http://real:4/")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://real:4/" {
		t.Errorf("real env should win over .env, got %q", cfg.BaseURL)
	}
}

// ─── CLI flag priority ────────────────────────────────────────────────────────

func TestLoadFlagOverridesEnvAndFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{BaseURL: "http://file:1/"})
	t.Setenv(config.EnvBaseURL, "http://env:2/")

	cfg, err := config.Load("http://flag:3/")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://flag:3/" {
		t.Errorf("flag --base-url should win, got %q", cfg.BaseURL)
	}
}

func TestLoadFlagEmptyDoesNotOverride(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{BaseURL: "http://file:1/"})

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://file:1/" {
		t.Errorf("empty flag should not override file value, got %q", cfg.BaseURL)
	}
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	ok := &config.Config{BaseURL: "http://localhost:8087/", Env: "development"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	for _, bad := range []*config.Config{
		{BaseURL: "", Env: "development"},
		{BaseURL: "ftp://x/", Env: "development"},
		{BaseURL: "localhost:8087", Env: "development"},
		{BaseURL: "http://x/", Env: "staging"},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestValidateErrorMentionsBaseURL(t *testing.T) {
	err := (&config.Config{Env: "development"}).Validate()
	if err == nil || !strings.Contains(err.Error(), "--base-url") {
		t.Errorf("error should explain how to set the URL, got: %v", err)
	}
}

// ─── File.Set ─────────────────────────────────────────────────────────────────

func TestFileSet(t *testing.T) {
	f := config.Template()
	if err := f.Set("debounce", "250ms"); err != nil || f.Debounce != "250ms" {
		t.Errorf("set debounce: %v %q", err, f.Debounce)
	}
	if err := f.Set("rate", "2.5"); err != nil || f.Rate != 2.5 {
		t.Errorf("set rate: %v %g", err, f.Rate)
	}
	if err := f.Set("timeout", "soon"); err == nil {
		t.Error("expected duration error")
	}
	if err := f.Set("env", "staging"); err == nil {
		t.Error("expected env error")
	}
	err := f.Set("api_key", "x")
	if err == nil || !strings.Contains(err.Error(), "watch_schedule") {
		t.Errorf("unknown key should list valid keys, got %v", err)
	}
}

// ─── WriteFile / Template ─────────────────────────────────────────────────────

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	f := config.Template()
	f.DBPath = "/data/campcheck.db"

	if err := config.WriteFile(path, f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got config.File
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if got != f {
		t.Errorf("round trip:\n  wrote %+v\n  read  %+v", f, got)
	}
}

func TestWriteFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.WriteFile(path, config.Template()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file permissions: expected 0600, got %04o", info.Mode().Perm())
	}
}

func TestTemplateDefaults(t *testing.T) {
	tmpl := config.Template()
	if tmpl.DefaultFormat != "table" {
		t.Errorf("Template.DefaultFormat: expected table, got %q", tmpl.DefaultFormat)
	}
	if tmpl.Timeout != "30s" {
		t.Errorf("Template.Timeout: expected 30s, got %q", tmpl.Timeout)
	}
	if tmpl.Debounce != "300ms" || tmpl.BlurGrace != "150ms" {
		t.Errorf("Template timings: %q %q", tmpl.Debounce, tmpl.BlurGrace)
	}
	if tmpl.BaseURL != config.DefaultBaseURL {
		t.Errorf("Template.BaseURL: got %q", tmpl.BaseURL)
	}
}

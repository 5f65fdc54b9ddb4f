package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestOutputWriterDefault(t *testing.T) {
	globalFlags.Out = ""
	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter default: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout writer passthrough")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default closer should be nil error, got: %v", err)
	}
}

func TestOutputWriterFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	globalFlags.Out = p
	t.Cleanup(func() { globalFlags.Out = "" })

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter file: %v", err)
	}
	if w == os.Stdout {
		t.Fatalf("expected file writer, got stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("closing output writer: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestResolveFormat(t *testing.T) {
	globalFlags.Format = ""
	if got := resolveFormat(""); got != "table" {
		t.Errorf("expected table fallback, got %q", got)
	}
	if got := resolveFormat("csv"); got != "csv" {
		t.Errorf("expected config format, got %q", got)
	}
	globalFlags.Format = "json"
	t.Cleanup(func() { globalFlags.Format = "" })
	if got := resolveFormat("csv"); got != "json" {
		t.Errorf("flag should win, got %q", got)
	}
}

func TestValidateFormat(t *testing.T) {
	if err := validateFormat("ics"); err != nil {
		t.Errorf("ics should be accepted: %v", err)
	}
	if err := validateFormat("xml"); err == nil {
		t.Error("xml should be rejected")
	}
}

func TestQueryFlagsDefaults(t *testing.T) {
	now := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	var q queryFlags
	year, months, err := q.resolve(now)
	if err != nil || year != 2025 || len(months) != 1 || months[0] != 8 {
		t.Errorf("expected current year and month, got %d %v %v", year, months, err)
	}

	q = queryFlags{Year: 2026, Months: "jun, 7"}
	year, months, err = q.resolve(now)
	if err != nil || year != 2026 || len(months) != 2 || months[0] != 6 || months[1] != 7 {
		t.Errorf("unexpected parse: %d %v %v", year, months, err)
	}

	q = queryFlags{Months: "13"}
	if _, _, err := q.resolve(now); err == nil {
		t.Error("month 13 should be rejected")
	}
}

func TestQueryFlagsRegister(t *testing.T) {
	var q queryFlags
	c := &cobra.Command{Use: "x"}
	q.register(c)
	for _, name := range []string{"year", "months", "site"} {
		if c.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}

func TestContactFlagsNormalise(t *testing.T) {
	c := contactFlags{Name: " Ana ", Email: "ana@example.com ", WhatsApp: "+1 555 123 4567"}
	got := c.contact()
	if got.Name != "Ana" || got.Email != "ana@example.com" || got.WhatsApp != "+15551234567" {
		t.Errorf("unexpected contact: %+v", got)
	}
	if !c.set() || (&contactFlags{}).set() {
		t.Error("set() should report whether any field was given")
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KB",
		3 << 20: "3.0 MB",
	}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d): expected %q, got %q", in, want, got)
		}
	}
}

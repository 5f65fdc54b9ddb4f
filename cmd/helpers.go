package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/campcheck/internal/app"
	"github.com/derickschaefer/campcheck/internal/config"
	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/pipeline"
	"github.com/derickschaefer/campcheck/internal/render"
	"github.com/derickschaefer/campcheck/internal/util"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// validateFormat rejects unknown --format values before any request is made.
func validateFormat(format string) error {
	for _, f := range render.Formats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(render.Formats, ", "))
}

// outputWriter returns --out as a file, or def when --out is unset. The
// returned close function is always safe to call.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// emit renders result to --out or the command's stdout, then prints the
// footer to stderr. Availability piped to another process defaults to JSONL.
func emit(cmd *cobra.Command, deps *app.Deps, result *model.Result) error {
	format := resolveFormat(deps.Config.Format)
	if globalFlags.Format == "" && globalFlags.Out == "" && format == config.DefaultFormat &&
		result.Kind == model.KindAvailability && !pipeline.IsTTY() {
		format = render.FormatJSONL
	}
	if err := validateFormat(format); err != nil {
		return err
	}
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := render.Render(w, result, format); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// newResult wraps data in a Result envelope.
func newResult(kind, command string, data interface{}, items int, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			DurationMs: time.Since(start).Milliseconds(),
			Items:      items,
		},
	}
}

// queryFlags are shared by every command that runs an availability query.
type queryFlags struct {
	Year   int
	Months string
	Site   string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&q.Year, "year", 0, "year to check (default: current year)")
	cmd.Flags().StringVar(&q.Months, "months", "", "months to check, e.g. 6,7 or jun,jul (default: current month)")
	cmd.Flags().StringVar(&q.Site, "site", "", "limit to one site label")
}

// resolve fills defaults from now and parses the month list.
func (q *queryFlags) resolve(now time.Time) (int, []int, error) {
	year := q.Year
	if year == 0 {
		year = now.Year()
	}
	if strings.TrimSpace(q.Months) == "" {
		return year, []int{int(now.Month())}, nil
	}
	months, err := util.ParseMonths(q.Months)
	if err != nil {
		return 0, nil, err
	}
	return year, months, nil
}

// contactFlags collect share recipient details.
type contactFlags struct {
	Name     string
	Email    string
	WhatsApp string
}

func (c *contactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Name, "name", "", "recipient name")
	cmd.Flags().StringVar(&c.Email, "email", "", "recipient email")
	cmd.Flags().StringVar(&c.WhatsApp, "whatsapp", "", "recipient WhatsApp number with country code, e.g. +15551234567")
}

func (c *contactFlags) set() bool {
	return c.Name != "" || c.Email != "" || c.WhatsApp != ""
}

func (c *contactFlags) contact() model.ContactInfo {
	return model.ContactInfo{
		Name:     strings.TrimSpace(c.Name),
		Email:    strings.TrimSpace(c.Email),
		WhatsApp: strings.ReplaceAll(strings.TrimSpace(c.WhatsApp), " ", ""),
	}
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// success prints a ✓ line unless --quiet.
func success(cmd *cobra.Command, format string, args ...interface{}) {
	if globalFlags.Quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ "+format+"\n", args...)
}

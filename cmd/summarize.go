package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/campcheck/internal/model"
	"github.com/derickschaefer/campcheck/internal/pipeline"
	"github.com/derickschaefer/campcheck/internal/render"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize availability records read from stdin",
	Long: `Read the JSONL records written by 'check --format jsonl' from stdin and
print per-site counts: available, reserved and unknown days, occupancy, and
the longest run of available days.

Records from several campgrounds or years produce one summary each.`,
	Example: `  campcheck check "Upper Pines" --months 6,7 --format jsonl | campcheck summarize
  campcheck summarize < june.jsonl --format csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		if cmd.InOrStdin() == io.Reader(os.Stdin) && !pipeline.StdinIsPipe() {
			return fmt.Errorf("no input: pipe 'campcheck check ... --format jsonl' into summarize")
		}

		results, err := pipeline.ReadResults(cmd.InOrStdin())
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		for _, res := range results {
			rep := render.NewSummaryReport(res, deps.CalendarOptions())
			result := newResult(model.KindSummary, "summarize", rep, len(rep.Summaries), start)
			if err := emit(cmd, deps, result); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/campcheck/internal/config"
	"github.com/derickschaefer/campcheck/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage campcheck configuration",
	Long:  `Read and write campcheck configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Edit base_url to point at your availability backend, then run:")
		fmt.Fprintln(out, "  campcheck auth login --email you@example.com")
		return nil
	},
}

// configOut is the JSON shape of `config get`.
type configOut struct {
	BaseURL       string  `json:"base_url"`
	Format        string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Rate          float64 `json:"rate"`
	DBPath        string  `json:"db_path"`
	Env           string  `json:"env"`
	Debounce      string  `json:"debounce"`
	BlurGrace     string  `json:"blur_grace"`
	DateLayout    string  `json:"date_layout"`
	Listen        string  `json:"listen"`
	WatchSchedule string  `json:"watch_schedule"`
	ConfigFile    string  `json:"config_file"`
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(globalFlags.BaseURL)
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		dbPath := cfg.DBPath
		if dbPath == "" {
			dbPath = "(not set)"
		}
		out := configOut{
			BaseURL:       cfg.BaseURL,
			Format:        cfg.Format,
			Timeout:       cfg.Timeout.String(),
			Rate:          cfg.Rate,
			DBPath:        dbPath,
			Env:           cfg.Env,
			Debounce:      cfg.Debounce.String(),
			BlurGrace:     cfg.BlurGrace.String(),
			DateLayout:    cfg.DateLayout,
			Listen:        cfg.Listen,
			WatchSchedule: cfg.WatchSchedule,
			ConfigFile:    src,
		}

		if resolveFormat(cfg.Format) == render.FormatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		printKVTable(cmd.OutOrStdout(), [][]string{
			{"base_url", out.BaseURL},
			{"default_format", out.Format},
			{"timeout", out.Timeout},
			{"rate", fmt.Sprintf("%.1f req/s", out.Rate)},
			{"db_path", out.DBPath},
			{"env", out.Env},
			{"debounce", out.Debounce},
			{"blur_grace", out.BlurGrace},
			{"date_layout", out.DateLayout},
			{"listen", out.Listen},
			{"watch_schedule", out.WatchSchedule},
			{"config_file", out.ConfigFile},
		})
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Long:  "Set a configuration value in config.json.\n\nValid keys: " + config.KeyList,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])

		// Load existing file or start from template
		f := config.Template()
		path := config.DefaultConfigFile
		existing, p, err := config.LoadFile()
		switch {
		case err == nil:
			f, path = *existing, p
		case !errors.Is(err, os.ErrNotExist):
			return err
		}

		if err := f.Set(key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

// printKVTable renders a two-column key/value list using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

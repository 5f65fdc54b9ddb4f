package cmd

import (
	"fmt"
	"runtime"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/campcheck/internal/camp"
	"github.com/derickschaefer/campcheck/internal/config"
	"github.com/derickschaefer/campcheck/internal/store"
)

// Version is the canonical release string. The default here is the fallback
// for `go run` and untagged builds. Production builds overwrite this via:
//
//	go build -ldflags "-X github.com/derickschaefer/campcheck/cmd.Version=v0.3.1"
//
// Set once in the Makefile VERSION variable; never edit this string directly
// for a release.
var Version = "v0.3.0"

// versionInfo is the structured payload for --format json output.
type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	BuildTime string `json:"build_time,omitempty"`

	UserAgent   string `json:"user_agent"`
	StoreSchema int    `json:"store_schema"`
	Backend     string `json:"backend,omitempty"`
	Env         string `json:"env,omitempty"`
	DBPath      string `json:"db_path,omitempty"`
}

// newVersionInfo describes this build and, when config resolves, the
// backend and store it would use. The store is not opened.
func newVersionInfo(cfg *config.Config) versionInfo {
	info := versionInfo{
		Version:     Version,
		GoVersion:   runtime.Version(),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		BuildTime:   BuildTime,
		UserAgent:   camp.UserAgent,
		StoreSchema: store.SchemaVersion,
	}
	if cfg != nil {
		info.Backend = cfg.BaseURL
		info.Env = cfg.Env
		info.DBPath = cfg.DBPath
	}
	return info
}

// BuildTime is optionally injected at build time alongside Version:
//
//	-ldflags "-X github.com/derickschaefer/campcheck/cmd.Version=v0.3.1
//	           -X github.com/derickschaefer/campcheck/cmd.BuildTime=2026-02-16T12:00:00Z"
var BuildTime = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the campcheck version and build information",
	Long: `Print the campcheck version string, build metadata, the backend and
local store this build would use, and the store schema it expects.

Default output is plain text, suitable for shell scripts and pipelines.
Use --format json for structured output.

Examples:
  campcheck version
  campcheck version --format json
  campcheck version --format json | jq .version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := globalFlags.Format
		if format == "" {
			format = "text"
		}

		// A broken config.json should not hide the version.
		cfg, err := config.Load(globalFlags.BaseURL)
		if err != nil {
			cfg = nil
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		info := newVersionInfo(cfg)

		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)

		case "jsonl":
			// Single object, one line — useful for mixing into a JSONL pipeline.
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b)
			return nil

		default:
			// Plain text — one value per line, grep/awk friendly.
			fmt.Fprintf(cmd.OutOrStdout(), "campcheck %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "go      %s\n", info.GoVersion)
			fmt.Fprintf(cmd.OutOrStdout(), "os      %s/%s\n", info.GOOS, info.GOARCH)
			if info.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built   %s\n", info.BuildTime)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "agent   %s\n", info.UserAgent)
			fmt.Fprintf(cmd.OutOrStdout(), "schema  v%d\n", info.StoreSchema)
			if info.Backend != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "backend %s (%s)\n", info.Backend, info.Env)
				fmt.Fprintf(cmd.OutOrStdout(), "store   %s\n", info.DBPath)
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

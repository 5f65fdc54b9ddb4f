package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/campcheck/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve suggestions, availability grids and sharing as a local JSON API",
	Long: `Run a local HTTP API in front of the availability backend so a browser or
other rendering layer can use the same projections the CLI prints.

Endpoints:
  GET    /health
  GET    /api/suggestions?query=<text>
  POST   /api/availability {"campgroundName", "year", "selectedMonths", "site", "nights", "summary"}
  GET    /api/availability current lookup of the view: loading, request, report, error
  DELETE /api/availability reset the view; a lookup still running is discarded
  POST   /api/share        {"contactInfo", "campgroundName", "year", "selectedMonths", "selectedSite"}

Each client view, named by the X-Campcheck-View header, runs one
availability lookup at a time. A second POST while one is loading gets 409;
a lookup discarded by DELETE gets 410.

Requests use the session stored by 'campcheck auth login'.`,
	Example: `  campcheck serve
  campcheck serve --listen :8088`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		addr := serveListen
		if addr == "" {
			addr = deps.Config.Listen
		}

		srv := server.New(deps.Client, server.Options{
			Logger:      deps.Logger.Named("server"),
			LabelLayout: deps.Config.DateLayout,
			Names:       deps.KnownNames,
			Production:  deps.Config.IsProduction(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving on http://%s (backend %s). Press Ctrl-C to stop.\n", addr, deps.Client.BaseURL())
		}
		return srv.Run(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: listen from config, 127.0.0.1:8088)")
}

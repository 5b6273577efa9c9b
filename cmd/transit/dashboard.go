package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/dashboard"
	"github.com/Veraticus/smarttransit/internal/tui"
)

func dashboardCmd() *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Long: `Open the terminal dashboard. Number keys switch sections, r refreshes,
t sends a test message, s sends statistics, a sends an alert and q quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := dashboard.ParseSection(section)
			if err != nil {
				return err
			}

			// Log lines would corrupt the alternate screen.
			if err := quietLogs(); err != nil {
				return err
			}

			fwd := &tui.Forwarder{}
			e, err := openEnv(cmd.Context(), fwd)
			if err != nil {
				return err
			}
			defer e.Close()

			app, err := dashboard.New(dashboard.Deps{
				Client:     e.client,
				Reports:    e.reports,
				Messages:   e.messages,
				Dispatcher: e.dispatcher,
				Monitor:    e.newMonitor(),
				Notifier:   fwd,
			},
				dashboard.WithPollInterval(e.cfg.Monitor.Interval),
				dashboard.WithMonitorListener(fwd.Forward),
			)
			if err != nil {
				return fmt.Errorf("failed to create dashboard: %w", err)
			}

			return tui.Run(cmd.Context(), app, fwd,
				tui.WithRefresh(e.cfg.Dashboard.Refresh),
				tui.WithStartSection(start),
			)
		},
	}

	cmd.Flags().StringVar(&section, "section", string(dashboard.SectionDashboard), "section to open first")

	return cmd
}

// quietLogs sends logs to the file named by TRANSIT_LOG_FILE, or discards
// them.
func quietLogs() error {
	var w io.Writer = io.Discard
	if path := os.Getenv("TRANSIT_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 -- operator-chosen path
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
	}

	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	return common.SetupLogger(w, level, "json")
}

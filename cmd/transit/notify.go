package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/dashboard"
	"github.com/Veraticus/smarttransit/internal/monitor"
	"github.com/Veraticus/smarttransit/internal/telegram"
)

func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notify",
		Aliases: []string{"telegram"},
		Short:   "Send Telegram notifications",
		Long: `Send notifications to the operators' Telegram chat.

Messages go through the backend relay first and fall back to the Bot API
when telegram.token and telegram.chat_id are configured.`,
	}

	cmd.AddCommand(notifyTestCmd())
	cmd.AddCommand(notifyStatsCmd())
	cmd.AddCommand(notifyAlertCmd())
	cmd.AddCommand(notifyHistoryCmd())
	cmd.AddCommand(notifyStatusCmd())
	cmd.AddCommand(notifyCheckCmd())

	return cmd
}

// openApp builds a dashboard.App so notifications land in the history.
func openApp(cmd *cobra.Command) (*dashboard.App, *env, error) {
	e, err := openEnv(cmd.Context(), nil)
	if err != nil {
		return nil, nil, err
	}
	app, err := dashboard.New(dashboard.Deps{
		Client:     e.client,
		Reports:    e.reports,
		Messages:   e.messages,
		Dispatcher: e.dispatcher,
		Monitor:    e.newMonitor(),
		Notifier:   e.notifier,
	})
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return app, e, nil
}

func notifyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, e, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return printResult(cmd.OutOrStdout(), app.SendTest(cmd.Context()))
		},
	}
}

func notifyStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Collect and send system statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, e, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			stats, result := app.SendStatistics(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Статистика", telegram.FormatStatistics(stats, time.Now())))
			return printResult(cmd.OutOrStdout(), result)
		},
	}
}

func notifyAlertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alert <message>",
		Short: "Send an alert",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, e, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return printResult(cmd.OutOrStdout(), app.SendAlert(cmd.Context(), strings.Join(args, " ")))
		},
	}
}

func notifyHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently sent notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			entries := e.messages.List()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("История сообщений пуста"))
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			rows := make([][]string, 0, len(entries))
			for _, m := range entries {
				rows = append(rows, []string{m.Timestamp.Local().Format("02.01.2006 15:04:05"), m.Status, m.Message})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"Время", "Статус", "Сообщение"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")

	return cmd
}

func notifyStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the notification channel is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			mon := e.newMonitor()
			out := cmd.OutOrStdout()

			if !watch {
				mon.Check(cmd.Context())
				printSnapshot(out, mon.Snapshot())
				return nil
			}

			ctx := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), "Monitoring")
			fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Проверка каждые %s, Ctrl+C для выхода", e.cfg.Monitor.Interval)))
			mon.Check(ctx)
			printSnapshot(out, mon.Snapshot())
			mon.Poll(ctx, e.cfg.Monitor.Interval, func(s monitor.Snapshot) {
				printSnapshot(out, s)
			})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep checking until interrupted")

	return cmd
}

func notifyCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the bot identity and deliver a health-check message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			check, result := e.dispatcher.HealthCheck(cmd.Context())
			out := cmd.OutOrStdout()
			if check.Success {
				fmt.Fprintln(out, cli.FormatSuccess(check.Message))
			} else {
				fmt.Fprintln(out, cli.FormatError(check.Message))
			}
			return printResult(out, result)
		},
	}
}

func printResult(w io.Writer, result telegram.Result) error {
	if !result.Success {
		if result.Note != "" {
			fmt.Fprintln(w, cli.FormatInfo(result.Note))
		}
		return fmt.Errorf("notification failed: %s", result.ErrorText())
	}
	fmt.Fprintln(w, cli.FormatSuccess(result.Message))
	if result.Note != "" {
		fmt.Fprintln(w, cli.FormatInfo(result.Note))
	}
	return nil
}

func printSnapshot(w io.Writer, s monitor.Snapshot) {
	fmt.Fprintln(w, dashboard.RenderStatus(s))
}

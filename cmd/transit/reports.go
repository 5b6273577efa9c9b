package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/Veraticus/smarttransit/internal/report"
)

func reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Generate and manage reports",
		Long: `Generate passenger-flow reports, browse the local report history,
export it to Excel and download report files from the backend.`,
	}

	cmd.AddCommand(listReportsCmd())
	cmd.AddCommand(showReportCmd())
	cmd.AddCommand(generateReportCmd())
	cmd.AddCommand(deleteReportCmd())
	cmd.AddCommand(exportReportsCmd())
	cmd.AddCommand(downloadReportCmd())
	cmd.AddCommand(seedReportsCmd())

	return cmd
}

func listReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List generated reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			reports := e.reports.List()
			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("Отчетов пока нет. Используйте 'transit reports generate <тип>'."))
				return nil
			}

			stats := e.reports.Stats()
			fmt.Fprintln(cmd.OutOrStdout(), reportTable(reports))
			fmt.Fprintf(cmd.OutOrStdout(), "Всего: %d, сегодня: %d\n", stats.Total, stats.Today)
			return nil
		},
	}
}

func showReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := e.reports.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(r.Name, r.Content))
			return nil
		},
	}
}

func generateReportCmd() *cobra.Command {
	types := make([]string, 0, len(report.Types))
	for _, t := range report.Types {
		types = append(types, string(t))
	}

	return &cobra.Command{
		Use:       "generate <type>",
		Short:     "Generate a report",
		Long:      "Generate a report of one of the types: " + strings.Join(types, ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: types,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := report.ParseType(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			gen := report.NewGenerator(e.client, e.reports, report.WithNotifier(e.notifier))
			r, err := gen.Generate(cmd.Context(), t)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(r.Name, r.Content))
			fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("ID: "+r.ID+", размер: "+r.Size))
			return nil
		},
	}
}

func deleteReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a report from the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.reports.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Отчет удален"))
			return nil
		},
	}
}

func exportReportsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the report history to an Excel file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if output == "" {
				output = fmt.Sprintf("reports-%s.xlsx", time.Now().Format("2006-01-02"))
			}

			f, err := os.Create(filepath.Clean(output))
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := report.ExportXLSX(e.reports.List(), f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Экспортировано в "+output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: reports-YYYY-MM-DD.xlsx)")

	return cmd
}

func downloadReportCmd() *cobra.Command {
	var (
		output string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "download <type>",
		Short: "Download a report file from the backend",
		Long: `Download a report rendered by the backend, for example:

  transit reports download daily/csv --param date=2024-03-01 -o daily.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			for _, p := range params {
				k, v, ok := strings.Cut(p, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid parameter %q, expected key=value", p)
				}
				query.Add(k, v)
			}

			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if output == "" {
				output = strings.ReplaceAll(args[0], "/", ".")
			}
			f, err := os.Create(filepath.Clean(output))
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}

			n, err := e.client.Download(cmd.Context(), args[0], query, f)
			if closeErr := f.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("failed to write output file: %w", closeErr)
			}
			if err != nil {
				_ = os.Remove(output)
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Сохранено %s (%s)", output, report.FormatSize(int(n)))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter key=value (repeatable)")

	return cmd
}

func seedReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add sample reports to an empty history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := report.SeedSamples(cmd.Context(), e.reports, time.Now())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("История отчетов не пуста, примеры не добавлены"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Добавлено примеров: %d", n)))
			return nil
		},
	}
}

func reportTable(reports []model.Report) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.CreatedAt.Format("02.01.2006 15:04"),
			r.Type,
			r.Name,
			r.Size,
			string(r.Status),
			r.ID,
		})
	}
	return cli.RenderTable([]string{"Дата", "Тип", "Название", "Размер", "Статус", "ID"}, rows)
}

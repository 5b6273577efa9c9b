package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/report"
	"github.com/Veraticus/smarttransit/internal/storage"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Back up and restore the local report and message history",
	}

	cmd.AddCommand(dbBackupCmd())
	cmd.AddCommand(dbListCmd())
	cmd.AddCommand(dbRestoreCmd())
	cmd.AddCommand(dbDeleteCmd())

	return cmd
}

// withBackups opens the database and a backup manager for it.
func withBackups(cmd *cobra.Command, fn func(*storage.BackupManager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kv, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	bm, err := storage.NewBackupManager(kv)
	if err != nil {
		return err
	}
	return fn(bm)
}

func dbBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [name]",
		Short: "Create a backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return withBackups(cmd, func(bm *storage.BackupManager) error {
				info, err := bm.Create(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Резервная копия %s создана (%s)", info.ID, report.FormatSize(int(info.FileSize)))))
				return nil
			})
		},
	}
}

func dbListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackups(cmd, func(bm *storage.BackupManager) error {
				backups, err := bm.List()
				if err != nil {
					return err
				}
				if len(backups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("Резервных копий нет"))
					return nil
				}
				rows := make([][]string, 0, len(backups))
				for _, b := range backups {
					rows = append(rows, []string{
						b.ID,
						b.CreatedAt.Local().Format("02.01.2006 15:04"),
						report.FormatSize(int(b.FileSize)),
						strconv.Itoa(len(b.Keys)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"ID", "Создана", "Размер", "Ключей"}, rows))
				return nil
			})
		},
	}
}

func dbRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(bm *storage.BackupManager) error {
				if err := bm.Restore(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Восстановлено из "+args[0]))
				return nil
			})
		},
	}
}

func dbDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackups(cmd, func(bm *storage.BackupManager) error {
				return bm.Delete(args[0])
			})
		},
	}
}

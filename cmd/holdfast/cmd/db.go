package cmd

import (
	"fmt"
	"io"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/spf13/cobra"
)

func newDBCmd(a *app) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the holdfast databases",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create and migrate ledger.db and client_data.db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening the container already migrated both databases
			out := map[string]string{
				"ledger":      a.container.LedgerDB.Path(),
				"client_data": a.container.ClientDataDB.Path(),
			}
			return a.render(cmd, out, func(w io.Writer) {
				row(w, "DATABASE", "PATH")
				row(w, "ledger", out["ledger"])
				row(w, "client_data", out["client_data"])
			})
		},
	}

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot both databases and upload them to the configured bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.container.BackupService == nil {
				return domain.NewInvalidOperationError("backup", "no backup bucket configured (BACKUP_S3_BUCKET)")
			}
			info, err := a.container.BackupService.CreateAndUploadBackup(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, info, func(w io.Writer) {
				row(w, "KEY", "SIZE")
				row(w, info.Key, fmt.Sprint(info.SizeBytes))
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop every cached price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.container.AnalysisService.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]int64{"removed": removed}, func(w io.Writer) {
				fmt.Fprintf(w, "removed %d cached prices\n", removed)
			})
		},
	}

	dbCmd.AddCommand(initCmd, backupCmd, clearCmd)
	return dbCmd
}

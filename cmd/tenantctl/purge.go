package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

var (
	purgeForce      bool
	purgeOldBackups bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge [tenant-id]",
	Short: "Permanently remove a tenant or prune old backups",
	Long: "Removes a tenant's resources and its control-plane row for good.\n" +
		"With --old-backups, instead deletes backup snapshots past the\n" +
		"retention window.",
	Args: cobra.MaximumNArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVar(&purgeForce, "force", false, "Purge premium and enterprise tenants without confirmation")
	purgeCmd.Flags().BoolVar(&purgeOldBackups, "old-backups", false, "Delete backups older than the retention window")
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	if purgeOldBackups {
		result, err := rt.service.PruneBackups(rt.cfg.BackupRetention)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d backup file(s), %d bytes freed\n", result.FilesRemoved, result.BytesFreed)
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("a tenant id is required unless --old-backups is given")
	}

	report, err := rt.service.Purge(ctx, args[0], purgeForce)
	if err != nil {
		if errors.Is(err, domain.ErrForceRequired) {
			return fmt.Errorf("tenant is on a premium or enterprise plan; re-run with --force to purge it")
		}
		return err
	}

	fmt.Printf("tenant %s purged\n", args[0])
	fmt.Printf("  database dropped: %t\n", report.DatabaseDropped)
	fmt.Printf("  domains removed:  %d\n", report.DomainsRemoved)
	fmt.Printf("  files deleted:    %d\n", report.FilesDeleted)
	for _, e := range report.Errors {
		fmt.Printf("  warning: %s\n", e)
	}
	return nil
}

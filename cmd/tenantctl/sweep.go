package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/tenantctl/internal/app"
	"github.com/neomorfeo/tenantctl/internal/domain"
)

var (
	sweepDryRun bool
	sweepForce  bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete every tenant overdue for deletion",
	Long: "Finds tenants whose deletion grace period has expired and runs the\n" +
		"full cleanup for each: backup, database drop, domain removal, file\n" +
		"deletion, and soft delete. Premium and enterprise tenants require\n" +
		"interactive confirmation unless --force is given.",
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "Report overdue tenants without deleting anything")
	sweepCmd.Flags().BoolVar(&sweepForce, "force", false, "Delete high-value tenants without confirmation")
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	summary, err := rt.sweeper.Run(ctx, app.SweepOptions{
		DryRun:  sweepDryRun,
		Force:   sweepForce,
		Confirm: confirmDeletion,
	})
	if err != nil && !errors.Is(err, app.ErrSweepFailures) {
		return err
	}

	if summary.DryRun {
		fmt.Printf("dry run: %d tenant(s) overdue for deletion\n", summary.Processed)
		return nil
	}
	fmt.Printf("sweep complete: %d processed, %d deleted, %d failed, %d skipped\n",
		summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped)
	return err
}

// confirmDeletion prompts on the terminal before a high-value tenant is
// deleted. Anything other than an explicit yes declines.
func confirmDeletion(tenant domain.Tenant, daysOverdue int) bool {
	fmt.Printf("tenant %s (%s, plan %s) is %d day(s) overdue. Delete permanently? [y/N]: ",
		tenant.Slug, tenant.ID, tenant.Plan, daysOverdue)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

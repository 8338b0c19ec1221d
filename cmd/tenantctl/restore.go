package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

var (
	restoreAll  bool
	restoreList bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore [tenant-id]",
	Short: "Restore a tenant scheduled for deletion",
	Long: "Cancels a pending deletion and returns the tenant to active.\n" +
		"Only works while the grace period has not expired.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreAll, "all", false, "Restore every tenant still inside its grace period")
	restoreCmd.Flags().BoolVar(&restoreList, "list", false, "List tenants scheduled for deletion")
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	pending := domain.StatusPendingDeletion
	tenants, err := rt.service.List(ctx, domain.ListFilter{Status: &pending})
	if err != nil {
		return err
	}

	if restoreList {
		if len(tenants) == 0 {
			fmt.Println("no tenants scheduled for deletion")
			return nil
		}
		now := time.Now()
		for _, t := range tenants {
			if days, ok := t.DaysUntilDeletion(now); ok {
				fmt.Printf("%s  %-20s  plan=%-10s  %d day(s) until deletion\n", t.ID, t.Slug, t.Plan, days)
			} else {
				fmt.Printf("%s  %-20s  plan=%-10s  grace period expired\n", t.ID, t.Slug, t.Plan)
			}
		}
		return nil
	}

	if restoreAll {
		restored := 0
		for _, t := range tenants {
			tenant, ok, err := rt.service.Restore(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("restoring %s: %w", t.ID, err)
			}
			if !ok {
				fmt.Printf("skipped %s: grace period expired\n", tenant.Slug)
				continue
			}
			fmt.Printf("restored %s\n", tenant.Slug)
			restored++
		}
		fmt.Printf("%d tenant(s) restored\n", restored)
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("a tenant id is required unless --all or --list is given")
	}

	tenant, ok, err := rt.service.Restore(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("tenant %s can no longer be restored: grace period expired", tenant.Slug)
	}
	fmt.Printf("tenant %s restored to active\n", tenant.Slug)
	return nil
}

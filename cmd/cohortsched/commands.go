package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/cohort-scheduler/internal/application"
	"github.com/example/cohort-scheduler/internal/persistence"
	"github.com/example/cohort-scheduler/internal/seed"
)

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println("schema is up to date")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load meeting resources from a YAML pool file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			pool, err := seed.LoadPool(file)
			if err != nil {
				return err
			}

			created, skipped := 0, 0
			now := time.Now()
			for _, resource := range pool {
				sealed, err := a.sealer.Seal(resource.Credentials)
				if err != nil {
					return fmt.Errorf("seal credentials for %s: %w", resource.ID, err)
				}
				resource.Credentials = sealed
				resource.CreatedAt = now
				resource.UpdatedAt = now

				err = a.resources.CreateResource(ctx, resource)
				if errors.Is(err, persistence.ErrDuplicate) {
					a.logger.Warn("resource already exists, skipping", "resource_id", resource.ID)
					skipped++
					continue
				}
				if err != nil {
					return err
				}
				created++
			}

			fmt.Printf("seeded %d resources (%d skipped)\n", created, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "pool.yaml", "pool seed file")
	return cmd
}

func newPreflightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preflight <cohort-id>",
		Short: "Simulate allocation for a cohort without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.activation.PreflightCohort(ctx, application.PreflightParams{
				Principal: cliPrincipal,
				CohortID:  args[0],
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newActivateCmd() *cobra.Command {
	var requireFullCoverage bool

	cmd := &cobra.Command{
		Use:   "activate <cohort-id>",
		Short: "Generate a cohort's sessions and allocate meeting resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.activation.ActivateCohort(ctx, application.ActivateParams{
				Principal:           cliPrincipal,
				CohortID:            args[0],
				RequireFullCoverage: requireFullCoverage,
			})
			if err != nil {
				return err
			}

			fmt.Printf("activated cohort %s: %d sessions, %d assigned, %d unassigned\n",
				result.CohortID,
				len(result.Sessions),
				len(result.Allocation.Assigned),
				len(result.Allocation.Unassigned),
			)
			for _, skipped := range result.SkippedModules {
				fmt.Printf("skipped module %d: %s\n", skipped.Index, skipped.Reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&requireFullCoverage, "require-full-coverage", false,
		"fail activation when the pool cannot cover every session")
	return cmd
}

func newRegenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <cohort-id>",
		Short: "Tear down a cohort's schedule and rebuild it from its rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.lifecycle.RegenerateCohort(ctx, cliPrincipal, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("regenerated cohort %s: %d sessions, %d assigned, %d unassigned\n",
				result.CohortID,
				len(result.Sessions),
				len(result.Allocation.Assigned),
				len(result.Allocation.Unassigned),
			)
			return nil
		},
	}
}

func newReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release <session-id>",
		Short: "Release the meeting resource bound to a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.lifecycle.Release(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("released session %s\n", args[0])
			return nil
		},
	}
}

func newResourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Manage the meeting resource pool",
	}
	cmd.AddCommand(newResourcesListCmd())
	cmd.AddCommand(newResourcesAddCmd())
	cmd.AddCommand(newResourcesMaintenanceCmd())
	return cmd
}

func newResourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pool resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			views, err := a.catalog.ListResources(ctx, cliPrincipal)
			if err != nil {
				return err
			}
			return printJSON(views)
		},
	}
}

func newResourcesAddCmd() *cobra.Command {
	var input application.ResourceInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a resource to the pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.catalog.CreateResource(ctx, application.CreateResourceParams{
				Principal: cliPrincipal,
				Input:     input,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created resource %s\n", view.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Platform, "platform", "", "meeting platform")
	cmd.Flags().StringVar(&input.Credentials, "credentials", "", "access credentials, sealed at rest")
	return cmd
}

func newResourcesMaintenanceCmd() *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "maintenance <resource-id>",
		Short: "Put a resource into maintenance, or return it to the pool with --off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext()
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.catalog.SetMaintenance(ctx, application.SetMaintenanceParams{
				Principal:   cliPrincipal,
				ResourceID:  args[0],
				Maintenance: !off,
			})
			if err != nil {
				return err
			}
			fmt.Printf("resource %s is now %s\n", view.ID, view.Status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "end maintenance")
	return cmd
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

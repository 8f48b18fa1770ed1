package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthaus/editions/cmd/editions/container"
	"github.com/arthaus/editions/common/bootstrap"
)

// editionctl is the operator CLI. The nightly cron job runs
// `editionctl sweep`; support staff run `editionctl reconcile <id>`.
// Both are thin adapters over the same reconciler the API uses.
func main() {
	rootCmd := &cobra.Command{
		Use:           "editionctl",
		Short:         "Operate the edition sequencing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newReconcileCmd())
	rootCmd.AddCommand(newSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "editionctl: %v\n", err)
		os.Exit(1)
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <edition-id>",
		Short: "Re-run classification, sequencing, and issuance for one edition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			c, shutdown, err := setup(ctx)
			if err != nil {
				return err
			}
			defer shutdown()

			result, err := c.Reconciler.Reconcile(ctx, args[0])
			if err != nil {
				return err
			}

			return printJSON(result)
		},
	}
}

func newSweepCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile every edition, optionally filtered by a CEL predicate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			c, shutdown, err := setup(ctx)
			if err != nil {
				return err
			}
			defer shutdown()

			if filter == "" {
				filter = c.Components.Config.Reconcile.SweepFilter
			}

			outcomes, err := c.Reconciler.ReconcileAll(ctx, filter)
			if err != nil {
				return err
			}

			failed := 0
			for _, o := range outcomes {
				if o.Error != "" {
					failed++
				}
			}
			if err := printJSON(outcomes); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d editions failed", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "CEL predicate over (edition_id, edition_size, archived, active_count)")
	return cmd
}

func setup(ctx context.Context) (*container.Container, func(), error) {
	components, err := bootstrap.Setup(ctx, "editionctl", bootstrap.WithoutTelemetry())
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}

	c, err := container.NewContainer(components)
	if err != nil {
		components.Shutdown(ctx)
		return nil, nil, fmt.Errorf("container: %w", err)
	}

	return c, func() { components.Shutdown(ctx) }, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/engine"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/provider"
	"github.com/strata-io/strata/internal/state"
)

var destroyAutoApprove bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Destroy all committed resources",
	Long: `Destroys every resource in committed state, in reverse dependency
order: nothing is destroyed while something depending on it still exists.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval before destroying")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	backend, err := openBackend()
	if err != nil {
		return err
	}

	if err := backend.Lock(); err != nil {
		return err
	}
	defer backend.Unlock()

	st, err := backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	if len(st.Resources) == 0 {
		fmt.Println("Nothing to destroy.")
		return nil
	}

	registry := provider.NewRegistry()
	if err := loadStateProviders(registry, st); err != nil {
		return err
	}

	eng := engine.NewEngine(registry)

	// Planning with no declarations turns every committed resource
	// into a destroy.
	plan, err := eng.Plan(nil, st)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	fmt.Println("Strata will destroy the following resources:")
	renderPlanOperations(plan)
	renderPlanSummary(plan)

	if !destroyAutoApprove && !confirm("Do you really want to destroy all resources?") {
		fmt.Println("Destroy cancelled.")
		return nil
	}

	recorder := state.NewRecorder(backend, st)
	result, err := eng.ExecuteWithCallback(ctx, plan, st, recorder, printApplyEvent)
	if err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	if result.Status != ir.PassSucceeded {
		return fmt.Errorf("destroy finished with status %s", result.Status)
	}

	fmt.Printf("\nDestroy complete. Resources: %d destroyed.\n", plan.Summary.Destroy)
	return nil
}

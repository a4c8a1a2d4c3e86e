package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/engine"
	"github.com/strata-io/strata/internal/provider"
)

var planCmd = &cobra.Command{
	Use:   "plan [file]",
	Short: "Show what an apply would change",
	Long: `Diffs the declared resources against committed state and prints the
operations an apply would perform:

  + resources to be created
  ~ resources to be updated (with attribute diff)
  - resources to be destroyed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadStore(declarationFile(args))
	if err != nil {
		return err
	}

	backend, err := openBackend()
	if err != nil {
		return err
	}

	st, err := backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	registry := provider.NewRegistry()
	eng := engine.NewEngine(registry)

	plan, err := eng.Plan(s.All(), st)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	if plan.Summary.Create+plan.Summary.Update+plan.Summary.Destroy == 0 {
		fmt.Println("No changes. Infrastructure is up-to-date.")
		return nil
	}

	fmt.Println("Strata will perform the following actions:")
	renderPlanOperations(plan)
	renderPlanSummary(plan)

	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/engine"
	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/provider"
	"github.com/strata-io/strata/internal/state"
)

var (
	applyAutoApprove bool
	applyParallelism int
)

var applyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Apply declared resources",
	Long: `Builds or changes infrastructure to match the declared resources.

Operations run in dependency order with bounded parallelism. Each outcome
is committed to state before anything depending on it starts, so an
interrupted or failed apply can simply be re-run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip interactive approval of the plan before applying")
	applyCmd.Flags().IntVar(&applyParallelism, "parallelism", 0, "Maximum concurrent operations (0 for the default)")
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := loadStore(declarationFile(args))
	if err != nil {
		return err
	}

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

	registry := provider.NewRegistry()
	if err := loadRequiredProviders(registry, s.All()); err != nil {
		return err
	}
	if err := loadStateProviders(registry, st); err != nil {
		return err
	}

	eng := engine.NewEngine(registry)
	eng.Parallelism = applyParallelism

	plan, err := eng.Plan(s.All(), st)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	changes := plan.Summary.Create + plan.Summary.Update + plan.Summary.Destroy
	if changes == 0 {
		fmt.Println("No changes. Infrastructure is up-to-date.")
		return nil
	}

	fmt.Println("Strata will perform the following actions:")
	renderPlanOperations(plan)
	renderPlanSummary(plan)

	if !applyAutoApprove && !confirm("Do you want to perform these actions?") {
		fmt.Println("Apply cancelled.")
		return nil
	}

	fmt.Printf("\nApplying %d changes...\n", changes)

	recorder := state.NewRecorder(backend, st)
	result, err := eng.ExecuteWithCallback(ctx, plan, st, recorder, printApplyEvent)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	fmt.Printf("\nApply %s. Resources: %d added, %d changed, %d destroyed.\n",
		result.Status, plan.Summary.Create, plan.Summary.Update, plan.Summary.Destroy)

	if result.Status != ir.PassSucceeded {
		for _, rec := range result.Records {
			if rec.Err != nil {
				fmt.Printf("  %s: %v\n", rec.Name, rec.Err)
			}
		}
		return fmt.Errorf("apply finished with status %s", result.Status)
	}
	return nil
}

func printApplyEvent(event engine.ApplyEvent) {
	switch event.Status {
	case "started":
		fmt.Printf("%s: %s...\n", event.Name, applyVerb(event.Kind))
	case "completed":
		fmt.Printf("%s: done (%s)\n", event.Name, event.Duration.Round(time.Millisecond))
	case "failed":
		fmt.Printf("%s: failed: %v\n", event.Name, event.Error)
	case "skipped":
		fmt.Printf("%s: skipped: %v\n", event.Name, event.Error)
	}
}

func applyVerb(kind ir.OpKind) string {
	switch kind {
	case ir.OpCreate:
		return "creating"
	case ir.OpUpdate:
		return "updating"
	case ir.OpDestroy:
		return "destroying"
	case ir.OpProbe:
		return "checking readiness of"
	default:
		return "processing"
	}
}

package cli

import (
	"fmt"

	"github.com/strata-io/strata/internal/ir"
	"github.com/strata-io/strata/internal/load"
	"github.com/strata-io/strata/internal/provider"
	"github.com/strata-io/strata/internal/state"
	"github.com/strata-io/strata/internal/store"
)

const defaultDeclarationFile = "stack.hcl"

// declarationFile resolves the declaration file from positional args.
func declarationFile(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultDeclarationFile
}

// loadStore parses declarations and loads them into a store, catching
// duplicate names at the door.
func loadStore(path string) (*store.Store, error) {
	descriptors, err := load.File(path)
	if err != nil {
		return nil, err
	}
	s := store.New()
	for _, d := range descriptors {
		if err := s.Put(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// openBackend returns the configured state backend.
func openBackend() (state.Backend, error) {
	if rootBackendType == "local" || rootBackendType == "" {
		return state.NewManager(rootStateFile), nil
	}
	return state.NewBackend(&state.BackendConfig{
		Type:   rootBackendType,
		Config: rootBackendConfig,
	})
}

// loadRequiredProviders loads every provider referenced by declarations.
func loadRequiredProviders(registry *provider.Registry, descriptors []*ir.Descriptor) error {
	seen := make(map[string]bool)
	for _, d := range descriptors {
		if d.Provider != "" && !seen[d.Provider] {
			seen[d.Provider] = true
			if err := registry.Load(d.Provider); err != nil {
				return fmt.Errorf("failed to load provider %s: %w", d.Provider, err)
			}
		}
	}
	return nil
}

// loadStateProviders loads every provider referenced by committed state,
// needed for destroys of resources no longer declared.
func loadStateProviders(registry *provider.Registry, st *ir.State) error {
	seen := make(map[string]bool)
	for _, res := range st.Resources {
		if res.Provider != "" && !seen[res.Provider] {
			seen[res.Provider] = true
			if err := registry.Load(res.Provider); err != nil {
				return fmt.Errorf("failed to load provider %s: %w", res.Provider, err)
			}
		}
	}
	return nil
}

// renderPlanOperations prints the detailed change list for a plan.
func renderPlanOperations(plan *ir.Plan) {
	for _, op := range plan.Operations {
		if op.Kind == ir.OpNoOp {
			continue
		}

		symbol := "~"
		color := "\033[33m"
		switch op.Kind {
		case ir.OpCreate:
			symbol = "+"
			color = "\033[32m"
		case ir.OpDestroy:
			symbol = "-"
			color = "\033[31m"
		case ir.OpProbe:
			symbol = "?"
		}

		typ := ""
		if op.Desired != nil {
			typ = op.Desired.Type
		} else if op.Prior != nil {
			typ = op.Prior.Type
		}

		if op.Kind == ir.OpProbe {
			fmt.Printf("\n%s  # %s will be re-checked for readiness\033[0m\n", color, op.Name)
			fmt.Printf("%s  %s resource \"%s\" \"%s\"\033[0m\n", color, symbol, typ, op.Name)
			continue
		}

		fmt.Printf("\n%s  # %s will be %s\033[0m\n", color, op.Name, op.Kind)
		fmt.Printf("%s  %s resource \"%s\" \"%s\" {\n", color, symbol, typ, op.Name)
		renderAttributeDiff(op.Diff)
		fmt.Printf("%s    }\033[0m\n", color)
	}
}

func renderAttributeDiff(diff map[string]*ir.AttributeDiff) {
	for key, d := range diff {
		switch d.Action {
		case "create":
			fmt.Printf("\033[32m      + %s = %s\033[0m\n", key, formatValue(d.After))
		case "delete":
			fmt.Printf("\033[31m      - %s = %s\033[0m\n", key, formatValue(d.Before))
		case "update":
			fmt.Printf("\033[33m      ~ %s = %s -> %s\033[0m\n", key, formatValue(d.Before), formatValue(d.After))
		}
	}
}

// formatValue returns a human-readable representation of an attribute value.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case ir.Reference:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderPlanSummary prints the plan summary counts.
func renderPlanSummary(plan *ir.Plan) {
	fmt.Println("\nPlan Summary:")
	fmt.Printf("  Create:  %d\n", plan.Summary.Create)
	fmt.Printf("  Update:  %d\n", plan.Summary.Update)
	fmt.Printf("  Destroy: %d\n", plan.Summary.Destroy)
	if plan.Summary.Probe > 0 {
		fmt.Printf("  Probe:   %d\n", plan.Summary.Probe)
	}
	fmt.Printf("  NoOp:    %d\n", plan.Summary.NoOp)
}

func confirm(prompt string) bool {
	fmt.Printf("\n%s (y/n): ", prompt)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "yes"
}

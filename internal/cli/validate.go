package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate declaration files",
	Long: `Checks declarations for syntax errors, duplicate names, unresolved
references, and dependency cycles without touching state or providers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := declarationFile(args)

	s, err := loadStore(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if _, err := engine.BuildGraph(s.All()); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("%s is valid: %d resources.\n", path, s.Len())
	return nil
}

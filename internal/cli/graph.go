package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/engine"
)

var graphCmd = &cobra.Command{
	Use:   "graph [file]",
	Short: "Output the dependency graph in DOT format",
	Long: `Generates a visual representation of the resource dependency graph
in Graphviz DOT format. Pipe the output to 'dot' to generate an image:

  strata graph | dot -Tpng > graph.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	s, err := loadStore(declarationFile(args))
	if err != nil {
		return err
	}

	g, err := engine.BuildGraph(s.All())
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	var b strings.Builder
	b.WriteString("digraph resources {\n")
	b.WriteString("  rankdir = \"TB\";\n")
	for _, name := range g.Names() {
		d := g.Descriptor(name)
		fmt.Fprintf(&b, "  %q [label=%q];\n", name, fmt.Sprintf("%s\n%s", name, d.Type))
	}
	for _, name := range g.Names() {
		for _, dep := range g.Dependencies(name) {
			fmt.Fprintf(&b, "  %q -> %q;\n", dep, name)
		}
	}
	b.WriteString("}\n")

	fmt.Print(b.String())
	return nil
}

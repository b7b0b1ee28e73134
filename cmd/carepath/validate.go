package main

import (
	"fmt"

	"github.com/aretw0/carepath/internal/validator"
	"github.com/aretw0/carepath/pkg/adapters/graphfile"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/aretw0/carepath/pkg/flows"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph-file]",
	Short: "Check a wizard graph for consistency",
	Long: `Loads a graph file (or the built-in cancel flow) and reports every configuration problem:
unknown steps, dangling transitions, option and route mismatches, unreachable steps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("graph-file")
		if len(args) > 0 {
			path = args[0]
		}

		g, err := loadGraph(path)
		if err != nil {
			return err
		}

		if err := validator.ValidateGraph(g); err != nil {
			out := cmd.ErrOrStderr()
			problems := validator.ValidationErrors(err)
			if problems == nil {
				problems = []error{err}
			}
			fmt.Fprintf(out, "Validation failed (%d):\n", len(problems))
			for _, p := range problems {
				fmt.Fprintf(out, "  - %v\n", p)
			}
			return fmt.Errorf("graph %q is invalid", g.Name)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Graph %q is valid (%d steps)\n", g.Name, g.Len())
		return nil
	},
}

// loadGraph reads path, or returns the built-in cancel flow for an empty path.
func loadGraph(path string) (*domain.Graph, error) {
	if path == "" {
		return flows.CancelFlow(), nil
	}
	return graphfile.New(path).LoadGraph()
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

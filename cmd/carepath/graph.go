package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/carepath/internal/presentation/graph"
	"github.com/aretw0/carepath/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [graph-file]",
	Short: "Export the wizard graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the wizard steps and transitions.
With --subscription the stored flow of that subscription is highlighted.`,
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

		var overlay *graph.Overlay
		if id, _ := cmd.Flags().GetString("subscription"); id != "" {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.repository().Load(cmd.Context(), id)
			switch {
			case errors.Is(err, domain.ErrFlowNotFound):
				a.logger.Info("no stored flow", "subscription_id", id)
			case err != nil:
				return err
			default:
				overlay = graph.OverlayFor(state)
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("subscription", "", "highlight the stored flow of this subscription")
}

package main

import (
	"fmt"
	"os"

	"github.com/aretw0/firstaid/internal/cli"
	"github.com/aretw0/firstaid/internal/presentation/graph"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [tree.yaml]",
	Short: "Export the decision tree visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the decision tree. With --session the
nodes that conversation visited are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var t *tree.Tree
		var err error
		if len(args) > 0 {
			t, err = tree.Load(args[0])
		} else {
			cfg, _ := loadConfig(cmd)
			t, err = cli.LoadTree(cmd.Context(), cfg)
		}
		if err != nil {
			fmt.Printf("Error loading tree: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			sessions, done := getSessions(cmd)
			defer done()
			state, err := sessions.Load(cmd.Context(), sessionID)
			if err != nil {
				fmt.Printf("Error loading session '%s': %v\n", sessionID, err)
				os.Exit(1)
			}
			overlay = graph.SessionOverlay(state)
		}

		emergencies, _ := cmd.Flags().GetStringSlice("emergency")
		fmt.Print(graph.GenerateMermaid(t, overlay, emergencies...))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
	graphCmd.Flags().StringSlice("emergency", nil, "Only draw these emergencies")
}

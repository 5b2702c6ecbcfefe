package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/firstaid/internal/config"
	loamAdapter "github.com/aretw0/firstaid/pkg/adapters/loam"
	"github.com/aretw0/firstaid/pkg/adapters/neo4j"
	"github.com/aretw0/firstaid/pkg/adapters/sqlite"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/aretw0/loam"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed [tree.yaml]",
	Short: "Load a decision tree into a graph backend",
	Long: `Validates the tree and writes it to the backend named by --backend (sqlite, neo4j
or loam), using the connection settings from the environment. Without a file
the bundled tree is loaded.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig(cmd)
		if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
			cfg.GraphBackend = backend
		}

		t, err := readTree(args)
		if err != nil {
			fmt.Printf("Error loading tree: %v\n", err)
			os.Exit(1)
		}
		if issues := tree.Validate(t); tree.HasErrors(issues) {
			for _, issue := range issues {
				fmt.Println(issue.String())
			}
			fmt.Println("Refusing to seed an invalid tree.")
			os.Exit(1)
		}

		if err := seed(cmd.Context(), cfg, t); err != nil {
			logger.Error("Seed failed", "backend", cfg.GraphBackend, "err", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d emergencies into %s.\n", len(t.Emergencies), cfg.GraphBackend)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("backend", "", "Graph backend to seed: sqlite, neo4j or loam (defaults to GRAPH_BACKEND)")
}

func seed(ctx context.Context, cfg *config.Config, t *tree.Tree) error {
	switch cfg.GraphBackend {
	case config.GraphSQLite:
		g, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer g.Close()
		return g.Import(ctx, t)

	case config.GraphNeo4j:
		g, err := neo4j.Open(ctx, neo4j.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		})
		if err != nil {
			return err
		}
		defer g.Close()
		return g.Import(ctx, t)

	case config.GraphLoam:
		absPath, err := filepath.Abs(cfg.LoamPath)
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return err
		}
		repo, err := loam.Init(absPath, loam.WithVersioning(false))
		if err != nil {
			return fmt.Errorf("failed to initialize loam: %w", err)
		}
		return loamAdapter.Export(ctx, repo, t)
	}
	return fmt.Errorf("cannot seed graph backend %q", cfg.GraphBackend)
}

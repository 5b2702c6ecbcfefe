package main

import (
	"fmt"
	"os"

	"github.com/aretw0/firstaid"
	"github.com/aretw0/firstaid/pkg/tree"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [tree.yaml]",
	Short: "Check a decision tree for consistency",
	Long: `Reports broken links, duplicate IDs, edges that cross emergencies, missing
branches and FOLLOWS cycles. Without a file the bundled tree is checked.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := readTree(args)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}

		issues := tree.Validate(t)
		for _, issue := range issues {
			fmt.Println(issue.String())
		}
		if tree.HasErrors(issues) {
			fmt.Println("Validation failed.")
			os.Exit(1)
		}
		fmt.Println("Tree is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// readTree loads the file named in args, or the bundled tree.
func readTree(args []string) (*tree.Tree, error) {
	if len(args) == 0 || args[0] == "" {
		return firstaid.DefaultTree()
	}
	return tree.Load(args[0])
}

package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/firstaid"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of firstaid",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("firstaid version %s\n", strings.TrimSpace(firstaid.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

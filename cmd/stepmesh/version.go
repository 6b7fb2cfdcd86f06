package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepmesh"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stepmesh",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stepmesh version %s\n", strings.TrimSpace(stepmesh.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

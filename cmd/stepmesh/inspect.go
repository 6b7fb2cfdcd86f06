package main

import (
	"github.com/aretw0/stepmesh/internal/cli"
	"github.com/aretw0/stepmesh/internal/config"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <input.step>",
	Short: "List the objects of a STEP file",
	Long:  `Opens the file and prints every object with its bounding box and the part file an export would write. Nothing is tessellated or written.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunInspect(ctx, config.ExpandHome(args[0]), runOptions(cmd, cfg))
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("json", false, "Print the report as JSON")
}

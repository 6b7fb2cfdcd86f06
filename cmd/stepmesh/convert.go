package main

import (
	"github.com/aretw0/stepmesh/internal/cli"
	"github.com/aretw0/stepmesh/internal/config"
	"github.com/spf13/cobra"
)

var convertKeys = map[string]string{
	"output": "convert.output",
}

var convertCmd = &cobra.Command{
	Use:   "convert <input.step>",
	Short: "Tessellate every object of a STEP file into one STL file",
	Long: `Converts the whole model: every object with a usable shape is tessellated and all
meshes are written as one binary STL file. Objects that fail are reported and skipped.
When no object produces a mesh, nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, convertKeys)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunConvert(ctx, config.ExpandHome(args[0]), runOptions(cmd, cfg))
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("output", "o", "model.stl", "Output STL file")
	convertCmd.Flags().Bool("json", false, "Print the report as JSON")
	addToleranceFlags(convertCmd, convertKeys, "convert")
}

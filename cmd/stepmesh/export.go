package main

import (
	"github.com/aretw0/stepmesh/internal/cli"
	"github.com/aretw0/stepmesh/internal/config"
	"github.com/spf13/cobra"
)

var exportKeys = map[string]string{
	"output-dir": "export.output_dir",
	"manifest":   "export.manifest",
}

var exportCmd = &cobra.Command{
	Use:   "export <input.step>",
	Short: "Write one STL file per part plus a JSON manifest",
	Long: `Exports each object with a usable shape to part_<index>_<name>.stl in the output
directory and records every written part (bounding box, center, size, triangle count)
in the manifest. Indices are enumeration positions, so skipped objects leave gaps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, exportKeys)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunExport(ctx, config.ExpandHome(args[0]), runOptions(cmd, cfg))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output-dir", "o", "parts", "Directory receiving the part files")
	exportCmd.Flags().String("manifest", "", "Manifest file path (default: <output-dir>/manifest.json)")
	exportCmd.Flags().Bool("json", false, "Print the report as JSON")
	addToleranceFlags(exportCmd, exportKeys, "export")
}

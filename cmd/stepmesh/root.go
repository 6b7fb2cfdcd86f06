package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/cli"
	"github.com/aretw0/stepmesh/internal/config"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepmesh",
	Short: "stepmesh converts STEP CAD files into STL meshes",
	Long: `stepmesh loads a STEP file, tessellates its solids and writes binary STL meshes:
either one combined file (convert) or one file per part plus a JSON manifest (export).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// globalKeys maps persistent flags to configuration keys.
var globalKeys = map[string]string{
	"kernel":           "kernel",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"redis-addr":       "redis.addr",
	"metrics-textfile": "metrics.textfile",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if code := exitCode(err); code != 0 {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, domain.ErrKernelUnavailable) {
			fmt.Fprintln(os.Stderr, "Hint: use --kernel native, or set process.command to a working CAD toolkit script.")
		}
		os.Exit(code)
	}
}

// exitCode maps run errors to the process status. A conversion without meshes is a
// reported outcome, and an interrupted run already told the user what happened.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrNoMeshes):
		return 0
	case cli.IsInterrupted(err):
		return 0
	default:
		return 1
	}
}

// loadConfig reads the configuration with the flags the user actually set as overrides.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	overrides := map[string]any{}
	for _, m := range []map[string]string{globalKeys, keys} {
		for name, key := range m {
			if cmd.Flags().Changed(name) {
				overrides[key] = cmd.Flags().Lookup(name).Value.String()
			}
		}
	}

	return config.Load(config.Options{File: file, EnvFile: envFile, Overrides: overrides})
}

// addToleranceFlags registers the tessellation flags of a command under a config section.
func addToleranceFlags(cmd *cobra.Command, keys map[string]string, section string) {
	cmd.Flags().Float64("linear", 0, "Linear deflection (overrides "+section+".tolerance.linear_deflection)")
	cmd.Flags().Float64("angular", 0, "Angular deflection in radians (overrides "+section+".tolerance.angular_deflection)")
	cmd.Flags().Bool("relative", false, "Scale the linear deflection by each shape's bounding box diagonal")
	keys["linear"] = section + ".tolerance.linear_deflection"
	keys["angular"] = section + ".tolerance.angular_deflection"
	keys["relative"] = section + ".tolerance.relative"
}

func runOptions(cmd *cobra.Command, cfg *config.Config) cli.RunOptions {
	jsonOut, _ := cmd.Flags().GetBool("json")
	return cli.RunOptions{
		Config: cfg,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		JSON:   jsonOut,
	}
}

func convertDefaults(cfg *config.Config) stepmesh.ConvertRequest {
	return stepmesh.ConvertRequest{
		Output:    cfg.Convert.Output,
		Tolerance: cfg.Convert.Tolerance,
	}
}

func exportDefaults(cfg *config.Config) stepmesh.ExportRequest {
	return stepmesh.ExportRequest{
		OutputDir: cfg.Export.OutputDir,
		Manifest:  cfg.Export.Manifest,
		Tolerance: cfg.Export.Tolerance,
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().String("env-file", "", "Dotenv file (default: ./.env if present)")
	rootCmd.PersistentFlags().String("kernel", config.KernelNative, "CAD kernel: native or process")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for manifests and locks (host:port)")
	rootCmd.PersistentFlags().String("metrics-textfile", "", "Write Prometheus metrics of the run to this file")
}

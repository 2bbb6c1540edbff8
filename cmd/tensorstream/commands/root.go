package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tensorstream",
	Short: "Convert raw media streams into tensor streams",
	Long: `tensorstream converts raw media streams into tensor streams.

It reads raw video, audio, or text frames from a file, converts them into
tensor buffers, optionally re-batches them through an aggregation window
and runs a numeric backend, and dumps the resulting stream to disk.

Usage:
  tensorstream run --config pipeline.yaml`,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(capsCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backendsCmd)
}

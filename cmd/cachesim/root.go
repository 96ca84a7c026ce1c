// Command cachesim drives the cache engine library outside of any
// particular instruction-set simulator: validate a geometry string, or
// replay a trace file through a configured cache hierarchy and print the
// resulting statistics block.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "Drive the cache engine library from a trace file or validate a geometry string.",
}

func main() {
	// Best-effort: a missing .env is not an error, it just means no
	// defaults were set for CACHESIM_TRACE/CACHESIM_DB.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

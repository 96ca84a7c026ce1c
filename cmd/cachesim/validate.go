package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/cache"
)

var validateCmd = &cobra.Command{
	Use:   "validate <sets:ways:blocksize[:lru]>",
	Short: "Parse a cache geometry string and report its resolved shape.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cache.ParseConfig(args[0])
		if err != nil {
			return err
		}

		kind := "set-associative"
		if cfg.FullyAssociative() {
			kind = "fully-associative"
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", cfg.String())
		fmt.Fprintf(cmd.OutOrStdout(), "sets=%d ways=%d blocksize=%d policy=%s variant=%s\n",
			cfg.Sets, cfg.Ways, cfg.BlockSize, cfg.Policy, kind)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

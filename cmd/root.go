package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Cross-venue DEX arbitrage bot",
	Long: `Arbiter watches new Ethereum blocks, maintains a multi-source consensus
price cache, scans Uniswap V2, Sushiswap and Curve for cross-venue price
discrepancies, and executes the most profitable opportunity per block as a
flash-loan wrapped transaction, optionally routed through MEV-Share.

Without a configured signer the bot runs in detection-only mode: it still
finds, records and reports opportunities but submits nothing.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

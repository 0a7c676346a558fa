package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/apexmev/arbiter/internal/app"
	"github.com/apexmev/arbiter/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan pass and print detected opportunities",
	RunE:  runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Duration("timeout", 30*time.Second, "Overall scan timeout")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer func() {
		_ = application.Shutdown()
	}()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opps, err := application.ScanOnce(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if len(opps) == 0 {
		fmt.Println("No opportunities detected")
		return nil
	}

	fmt.Printf("Detected %d opportunities:\n", len(opps))
	for _, opp := range opps {
		fmt.Printf("  %-40s gross $%.4f  gas $%.4f  net $%.4f\n",
			opp.ID, opp.GrossProfitUSD, opp.GasCostUSD, opp.NetProfitUSD)
	}

	return nil
}

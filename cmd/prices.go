package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apexmev/arbiter/internal/app"
	"github.com/apexmev/arbiter/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Refresh and print consensus prices for tracked assets",
	RunE:  runPrices,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(pricesCmd)
	pricesCmd.Flags().Duration("timeout", 30*time.Second, "Overall refresh timeout")
}

func runPrices(cmd *cobra.Command, args []string) error {
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

	prices := application.ConsensusPrices(ctx)
	if len(prices) == 0 {
		fmt.Println("No consensus prices available")
		return nil
	}

	symbols := make([]string, 0, len(prices))
	for symbol := range prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		fmt.Printf("  %-8s $%.4f\n", symbol, prices[symbol])
	}

	return nil
}

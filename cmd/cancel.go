package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/apexmev/arbiter/internal/app"
	"github.com/apexmev/arbiter/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelCmd = &cobra.Command{
	Use:   "cancel <tx-hash>",
	Short: "Cancel a pending transaction by replacing it with a self-transfer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	hash := common.HexToHash(args[0])
	if hash == (common.Hash{}) {
		return fmt.Errorf("malformed transaction hash %q", args[0])
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	replacement, err := application.CancelPending(ctx, hash)
	if err != nil {
		return fmt.Errorf("cancel transaction: %w", err)
	}

	fmt.Printf("Cancellation submitted: %s\n", replacement.Hex())
	return nil
}

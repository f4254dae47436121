package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/clock"
	"github.com/smallbiznis/shiftledger/internal/config"
	"github.com/smallbiznis/shiftledger/internal/observability"
	"github.com/smallbiznis/shiftledger/internal/server"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// cliNodeID keeps ids minted by the CLI apart from the API process.
const cliNodeID = 1023

var rootCmd = &cobra.Command{
	Use:           "shiftctl",
	Short:         "Operate the shift ledger from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Duration("timeout", time.Minute, "Deadline for the whole command")
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

// withServices boots the domain services without the HTTP server and runs fn.
func withServices(cmd *cobra.Command, targets []any, fn func(ctx context.Context) error) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(cliNodeID) }),
		db.Module,
		clock.Module,
		server.Domains,
		fx.Populate(targets...),
	)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

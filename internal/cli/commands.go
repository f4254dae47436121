package cli

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	"github.com/smallbiznis/shiftledger/internal/migration"
	"github.com/smallbiznis/shiftledger/internal/motivation"
	"github.com/smallbiznis/shiftledger/internal/payoutroll"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	shiftcloseservice "github.com/smallbiznis/shiftledger/internal/shiftclose/service"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func init() {
	rootCmd.AddCommand(closeCmd, aggregateCmd, motivationCmd, summaryCmd, weekCmd, seasonCmd, migrateCmd)

	closeCmd.Flags().String("day", "", "Business day to close (YYYY-MM-DD)")
	closeCmd.Flags().String("by", "shiftctl", "Who closes the day")
	closeCmd.Flags().Int64("cashbox", -1, "Counted cash in the cashbox; omit when not counted")
	_ = closeCmd.MarkFlagRequired("day")

	aggregateCmd.Flags().String("day", "", "Business day (YYYY-MM-DD)")
	aggregateCmd.Flags().String("seller", "", "Restrict to one seller id")
	_ = aggregateCmd.MarkFlagRequired("day")

	motivationCmd.Flags().String("day", "", "Business day (YYYY-MM-DD)")
	_ = motivationCmd.MarkFlagRequired("day")

	summaryCmd.Flags().String("day", "", "Business day (YYYY-MM-DD)")
	_ = summaryCmd.MarkFlagRequired("day")

	weekCmd.Flags().String("id", "", "ISO week id, e.g. 2024-W27")
	_ = weekCmd.MarkFlagRequired("id")

	seasonCmd.Flags().String("id", "", "Season id (year)")
	_ = seasonCmd.MarkFlagRequired("id")
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close a business day and print its snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetString("day")
		by, _ := cmd.Flags().GetString("by")
		cashbox, _ := cmd.Flags().GetInt64("cashbox")

		req := shiftclosedomain.CloseShiftRequest{BusinessDay: day, ClosedBy: by}
		if cmd.Flags().Changed("cashbox") {
			req.CashboxCount = &cashbox
		}

		var svc *shiftcloseservice.Service
		return withServices(cmd, []any{&svc}, func(ctx context.Context) error {
			snap, err := svc.CloseShift(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, snap)
		})
	},
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Print the money aggregate of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetString("day")
		rawSeller, _ := cmd.Flags().GetString("seller")

		var sellerID *snowflake.ID
		if rawSeller = strings.TrimSpace(rawSeller); rawSeller != "" {
			id, err := snowflake.ParseString(rawSeller)
			if err != nil {
				return err
			}
			sellerID = &id
		}

		var svc *aggregate.Service
		return withServices(cmd, []any{&svc}, func(ctx context.Context) error {
			agg, err := svc.GetDayAggregate(ctx, day, sellerID)
			if err != nil {
				return err
			}
			return printJSON(cmd, agg)
		})
	},
}

var motivationCmd = &cobra.Command{
	Use:   "motivation",
	Short: "Print the motivation payouts of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetString("day")

		var svc *motivation.Service
		return withServices(cmd, []any{&svc}, func(ctx context.Context) error {
			res, err := svc.ComputeDay(ctx, day)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the dashboard summary of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetString("day")

		var svc *shiftcloseservice.Service
		return withServices(cmd, []any{&svc}, func(ctx context.Context) error {
			res, err := svc.DaySummary(ctx, day)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Print the weekly pool distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")

		var svc *payoutroll.Service
		return withServices(cmd, []any{&svc}, func(ctx context.Context) error {
			res, err := svc.WeeklySummary(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var seasonCmd = &cobra.Command{
	Use:   "season",
	Short: "Print the season pool distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")

		var svc *payoutroll.Service
		return withServices(cmd, []any{&svc}, func(ctx context.Context) error {
			res, err := svc.SeasonSummary(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		var conn *gorm.DB
		return withServices(cmd, []any{&conn}, func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			status, err := migration.RunMigrations(sqlDB)
			if err != nil {
				return err
			}
			return printJSON(cmd, status)
		})
	},
}

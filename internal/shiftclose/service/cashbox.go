package service

import (
	"fmt"

	"github.com/smallbiznis/shiftledger/internal/ledger/aggregate"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
)

// BuildCashboxCheck compares the cash sellers still hold with a physical count.
func BuildCashboxCheck(sellers []aggregate.SellerAggregate, counted *int64) domain.CashboxCheck {
	check := domain.CashboxCheck{
		Expected: aggregate.TotalCashDue(sellers),
		Warnings: []ledgerdomain.Warning{},
	}
	if counted == nil {
		check.Warnings = append(check.Warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningCashboxCountMissing,
			Message: "no physical cash count was entered",
		})
		return check
	}

	actual := *counted
	discrepancy := actual - check.Expected
	check.Actual = &actual
	check.Discrepancy = &discrepancy
	if discrepancy != 0 {
		check.Warnings = append(check.Warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningCashboxDiscrepancy,
			Message: fmt.Sprintf("counted %d, expected %d", actual, check.Expected),
		})
	}
	return check
}

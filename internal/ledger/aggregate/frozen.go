package aggregate

import (
	"encoding/json"
	"fmt"

	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
)

// FromSnapshot rebuilds the aggregate a closed day was frozen with. With a
// seller filter the day totals are that seller's, as on the live path.
func FromSnapshot(snap *shiftclosedomain.Snapshot, filter Filter) (*DayAggregate, error) {
	var rows []shiftclosedomain.SellerRow
	if err := json.Unmarshal(snap.Sellers, &rows); err != nil {
		return nil, fmt.Errorf("decode snapshot sellers: %w", err)
	}
	warnings := []ledgerdomain.Warning{}
	if len(snap.Warnings) > 0 {
		if err := json.Unmarshal(snap.Warnings, &warnings); err != nil {
			return nil, fmt.Errorf("decode snapshot warnings: %w", err)
		}
	}

	out := &DayAggregate{
		BusinessDay: snap.BusinessDay,
		Closed:      true,
		Sellers:     []SellerAggregate{},
		Warnings:    warnings,
	}
	for _, r := range rows {
		if filter.SellerID != nil && r.SellerID != *filter.SellerID {
			continue
		}
		if r.CollectedTotal == 0 && r.RefundTotal == 0 && r.DepositCash+r.DepositCard == 0 && r.SalaryPaid == 0 && r.Liability == 0 {
			// payout-only row; it never had ledger activity
			continue
		}
		out.Sellers = append(out.Sellers, SellerAggregate{
			SellerID:   r.SellerID,
			Collected:  newSplit(r.CollectedCash, r.CollectedCard),
			Refunded:   newSplit(r.RefundCash, r.RefundCard),
			Deposited:  newSplit(r.DepositCash, r.DepositCard),
			SalaryPaid: newSplit(r.SalaryPaidCash, r.SalaryPaidCard),
			Revenue:    r.Revenue,
			CashDue:    r.CashDue,
			CardDue:    r.CardDue,
			Liability:  r.Liability,
		})
	}

	if filter.SellerID != nil {
		for _, s := range out.Sellers {
			out.Collected.add(s.Collected.Cash, s.Collected.Card)
			out.Refunded.add(s.Refunded.Cash, s.Refunded.Card)
			out.Deposited.add(s.Deposited.Cash, s.Deposited.Card)
			out.SalaryPaid.add(s.SalaryPaid.Cash, s.SalaryPaid.Card)
		}
	} else {
		out.Collected = newSplit(snap.CollectedCash, snap.CollectedCard)
		out.Refunded = newSplit(snap.RefundCash, snap.RefundCard)
		out.Deposited = newSplit(snap.DepositCash, snap.DepositCard)
		out.SalaryPaid = newSplit(snap.SalaryPaidCash, snap.SalaryPaidCard)
	}
	out.Net = out.Collected.Minus(out.Refunded)
	return out, nil
}

func newSplit(cash, card int64) Split {
	return Split{Cash: cash, Card: card, Total: cash + card}
}

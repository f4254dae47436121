package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"github.com/smallbiznis/shiftledger/internal/money"
	obsmetrics "github.com/smallbiznis/shiftledger/internal/observability/metrics"
	"github.com/smallbiznis/shiftledger/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Aggregator computes day and seller totals from posted ledger rows. It reads
// through whatever *gorm.DB it is handed so the close protocol can run it
// inside its transaction.
type Aggregator struct {
	log          *zap.Logger
	schedMetrics *obsmetrics.SchedulerMetrics
}

func NewAggregator(log *zap.Logger, schedMetrics *obsmetrics.SchedulerMetrics) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		log:          log.Named("ledger.aggregate"),
		schedMetrics: schedMetrics,
	}
}

type schema struct {
	ledger     bool
	rowSplit   bool
	presales   bool
	presaleMix bool
}

type entryRow struct {
	ID         snowflake.ID
	Type       ledgerdomain.EntryType
	Method     ledgerdomain.Method
	Amount     int64
	CashAmount *int64
	CardAmount *int64
	SellerID   *snowflake.ID
	PresaleID  *snowflake.ID
}

type presaleSplit struct {
	ID                snowflake.ID
	PaymentCashAmount int64
	PaymentCardAmount int64
}

func (a *Aggregator) probe(tx *gorm.DB) (schema, []ledgerdomain.Warning) {
	m := tx.Migrator()
	var sc schema
	var warnings []ledgerdomain.Warning

	sc.ledger = m.HasTable(&ledgerdomain.LedgerEntry{})
	if !sc.ledger {
		warnings = append(warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningSchemaUnavailable,
			Message: "ledger_entries table is missing; all totals are zero",
		})
		return sc, warnings
	}
	sc.rowSplit = m.HasColumn(&ledgerdomain.LedgerEntry{}, "cash_amount") &&
		m.HasColumn(&ledgerdomain.LedgerEntry{}, "card_amount")
	if !sc.rowSplit {
		warnings = append(warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningSchemaUnavailable,
			Message: "ledger_entries.cash_amount/card_amount missing; MIXED rows use the presale split",
		})
	}
	sc.presales = m.HasTable(&ledgerdomain.Presale{})
	if sc.presales {
		sc.presaleMix = m.HasColumn(&ledgerdomain.Presale{}, "payment_cash_amount") &&
			m.HasColumn(&ledgerdomain.Presale{}, "payment_card_amount")
	}
	if !sc.presaleMix {
		warnings = append(warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningSchemaUnavailable,
			Message: "presale payment split unavailable; MIXED fallback disabled",
		})
	}
	return sc, warnings
}

// Aggregate totals the POSTED rows of day. Missing optional schema degrades to
// warnings and zeroed dimensions, never to an error.
func (a *Aggregator) Aggregate(ctx context.Context, tx *gorm.DB, day string, filter Filter) (*DayAggregate, error) {
	out := &DayAggregate{
		BusinessDay: day,
		Sellers:     []SellerAggregate{},
		Warnings:    []ledgerdomain.Warning{},
	}

	sc, warnings := a.probe(tx)
	out.Warnings = append(out.Warnings, warnings...)
	if !sc.ledger {
		return out, nil
	}

	rows, err := a.loadRows(ctx, tx, day, filter, sc)
	if err != nil {
		return nil, err
	}
	presales, err := a.loadPresaleSplits(ctx, tx, rows, sc)
	if db.IsMissingSchemaErr(err) {
		// presales dropped between the probe and the read
		out.Warnings = append(out.Warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningSchemaUnavailable,
			Message: "presales unavailable; MIXED rows without a row split fall back to cash",
		})
		presales, err = map[snowflake.ID]presaleSplit{}, nil
	}
	if err != nil {
		return nil, err
	}

	sellers := map[snowflake.ID]*SellerAggregate{}
	sellerFor := func(id *snowflake.ID) *SellerAggregate {
		if id == nil || *id == 0 {
			return nil
		}
		agg, ok := sellers[*id]
		if !ok {
			agg = &SellerAggregate{SellerID: *id}
			sellers[*id] = agg
		}
		return agg
	}

	for _, row := range rows {
		category, ok := row.Type.Category()
		if !ok {
			a.log.Debug("skipping unknown ledger type",
				zap.String("entry_id", row.ID.String()),
				zap.String("type", string(row.Type)),
			)
			continue
		}

		amount := row.Amount
		if category == ledgerdomain.CategoryRefund {
			amount = money.Abs(amount)
		}
		cash, card := a.split(row, amount, presales, &out.Approximations)

		seller := sellerFor(row.SellerID)
		switch category {
		case ledgerdomain.CategorySale:
			out.Collected.add(cash, card)
			if seller != nil {
				seller.Collected.add(cash, card)
			}
		case ledgerdomain.CategoryRefund:
			out.Refunded.add(cash, card)
			if seller != nil {
				seller.Refunded.add(cash, card)
			}
		case ledgerdomain.CategoryDeposit:
			out.Deposited.add(cash, card)
			if seller != nil {
				seller.Deposited.add(cash, card)
			}
		case ledgerdomain.CategorySalary:
			out.SalaryPaid.add(cash, card)
			if seller != nil {
				seller.SalaryPaid.add(cash, card)
			}
		}
	}

	out.Net = out.Collected.Minus(out.Refunded)

	for _, agg := range sellers {
		agg.Revenue = money.NonNegative(agg.Collected.Total - agg.Refunded.Total)
		agg.CashDue = money.NonNegative(agg.Collected.Cash - agg.Deposited.Cash)
		agg.CardDue = money.NonNegative(agg.Collected.Card - agg.Deposited.Card)
		agg.Liability = agg.CashDue + agg.CardDue
		out.Sellers = append(out.Sellers, *agg)
	}
	sort.Slice(out.Sellers, func(i, j int) bool {
		return out.Sellers[i].SellerID < out.Sellers[j].SellerID
	})

	if n := out.Approximations.MixedToCash; n > 0 {
		out.Warnings = append(out.Warnings, ledgerdomain.Warning{
			Code:    ledgerdomain.WarningMixedSplitApproximated,
			Message: fmt.Sprintf("%d MIXED row(s) without split data attributed entirely to cash", n),
		})
		a.schedMetrics.AddMixedApproximated(n)
		a.log.Warn("mixed split approximated",
			zap.String("business_day", day),
			zap.Int("rows", n),
		)
	}

	return out, nil
}

// split resolves the cash/card parts of amount: row split, then the linked
// presale split scaled to the row amount, then everything to cash.
func (a *Aggregator) split(row entryRow, amount int64, presales map[snowflake.ID]presaleSplit, approx *Approximations) (int64, int64) {
	method := row.Method
	if method == "" {
		method = row.Type.ImpliedMethod()
	}
	switch method {
	case ledgerdomain.MethodCard:
		return 0, amount
	case ledgerdomain.MethodMixed:
	default:
		return amount, 0
	}

	if row.CashAmount != nil && row.CardAmount != nil {
		return money.Abs(*row.CashAmount), money.Abs(*row.CardAmount)
	}
	if row.PresaleID != nil {
		if p, ok := presales[*row.PresaleID]; ok {
			whole := p.PaymentCashAmount + p.PaymentCardAmount
			if whole > 0 && p.PaymentCashAmount >= 0 && p.PaymentCardAmount >= 0 {
				cash := money.FloorShare(amount, decimal.NewFromInt(p.PaymentCashAmount), decimal.NewFromInt(whole))
				approx.PresaleScaled++
				return cash, amount - cash
			}
		}
	}
	approx.MixedToCash++
	return amount, 0
}

func (a *Aggregator) loadRows(ctx context.Context, tx *gorm.DB, day string, filter Filter, sc schema) ([]entryRow, error) {
	columns := []string{"id", "type", "method", "amount"}
	if sc.rowSplit {
		columns = append(columns, "cash_amount", "card_amount")
	} else {
		columns = append(columns, "NULL AS cash_amount", "NULL AS card_amount")
	}
	columns = append(columns, "seller_id", "presale_id")

	stmt := tx.WithContext(ctx).
		Table("ledger_entries").
		Select(strings.Join(columns, ", ")).
		Where("business_day = ? AND status = ?", day, ledgerdomain.StatusPosted)
	if filter.SellerID != nil {
		stmt = stmt.Where("seller_id = ?", *filter.SellerID)
	}

	var rows []entryRow
	if err := stmt.Order("id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (a *Aggregator) loadPresaleSplits(ctx context.Context, tx *gorm.DB, rows []entryRow, sc schema) (map[snowflake.ID]presaleSplit, error) {
	out := map[snowflake.ID]presaleSplit{}
	if !sc.presaleMix {
		return out, nil
	}

	ids := make([]snowflake.ID, 0)
	seen := map[snowflake.ID]struct{}{}
	for _, row := range rows {
		if row.Method != ledgerdomain.MethodMixed || row.PresaleID == nil {
			continue
		}
		if sc.rowSplit && row.CashAmount != nil && row.CardAmount != nil {
			continue
		}
		if _, ok := seen[*row.PresaleID]; ok {
			continue
		}
		seen[*row.PresaleID] = struct{}{}
		ids = append(ids, *row.PresaleID)
	}
	if len(ids) == 0 {
		return out, nil
	}

	var splits []presaleSplit
	if err := tx.WithContext(ctx).
		Table("presales").
		Select("id, payment_cash_amount, payment_card_amount").
		Where("id IN ?", ids).
		Scan(&splits).Error; err != nil {
		return nil, err
	}
	for _, p := range splits {
		out[p.ID] = p
	}
	return out, nil
}

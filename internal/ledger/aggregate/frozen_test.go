package aggregate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	shiftclosedomain "github.com/smallbiznis/shiftledger/internal/shiftclose/domain"
	"github.com/smallbiznis/shiftledger/internal/shiftclose/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// freeze stores the live aggregate as the day's snapshot.
func (f *fixture) freeze(t *testing.T, live *DayAggregate) {
	t.Helper()
	require.NoError(t, f.db.AutoMigrate(&shiftclosedomain.Snapshot{}))

	rows := make([]shiftclosedomain.SellerRow, 0, len(live.Sellers)+1)
	for _, s := range live.Sellers {
		rows = append(rows, shiftclosedomain.SellerRow{
			SellerID:       s.SellerID,
			CollectedCash:  s.Collected.Cash,
			CollectedCard:  s.Collected.Card,
			CollectedTotal: s.Collected.Total,
			RefundCash:     s.Refunded.Cash,
			RefundCard:     s.Refunded.Card,
			RefundTotal:    s.Refunded.Total,
			DepositCash:    s.Deposited.Cash,
			DepositCard:    s.Deposited.Card,
			SalaryPaidCash: s.SalaryPaid.Cash,
			SalaryPaidCard: s.SalaryPaid.Card,
			SalaryPaid:     s.SalaryPaid.Total,
			Revenue:        s.Revenue,
			CashDue:        s.CashDue,
			CardDue:        s.CardDue,
			Liability:      s.Liability,
		})
	}
	// a dispatcher with a payout but no ledger activity
	rows = append(rows, shiftclosedomain.SellerRow{SellerID: 999, Revenue: 400, SalaryDue: 40})

	sellers, err := json.Marshal(rows)
	require.NoError(t, err)
	warnings, err := json.Marshal(live.Warnings)
	require.NoError(t, err)

	snap := shiftclosedomain.Snapshot{
		ID:              f.node.Generate(),
		BusinessDay:     testDay,
		ClosedAt:        time.Date(2024, 7, 1, 22, 0, 0, 0, time.UTC),
		ClosedBy:        "owner",
		CollectedTotal:  live.Collected.Total,
		CollectedCash:   live.Collected.Cash,
		CollectedCard:   live.Collected.Card,
		RefundTotal:     live.Refunded.Total,
		RefundCash:      live.Refunded.Cash,
		RefundCard:      live.Refunded.Card,
		NetTotal:        live.Net.Total,
		NetCash:         live.Net.Cash,
		NetCard:         live.Net.Card,
		DepositCash:     live.Deposited.Cash,
		DepositCard:     live.Deposited.Card,
		SalaryPaidCash:  live.SalaryPaid.Cash,
		SalaryPaidCard:  live.SalaryPaid.Card,
		SalaryPaidTotal: live.SalaryPaid.Total,
		MotivationMode:  "team",
		Sellers:         sellers,
		Payouts:         []byte(`[]`),
		CashboxCheck:    []byte(`{}`),
		Warnings:        warnings,
	}
	require.NoError(t, f.db.Create(&snap).Error)
}

func TestClosedDayIsReadFromSnapshot(t *testing.T) {
	f := newFixture(t)
	const sellerA, sellerB snowflake.ID = 701, 702
	ctx := context.Background()

	f.entry(t, sellerA, ledgerdomain.TypeSaleAcceptedCash, ledgerdomain.MethodCash, 1000)
	f.entry(t, sellerA, ledgerdomain.TypeSalePrepaymentCard, ledgerdomain.MethodCard, 500)
	f.entry(t, sellerA, ledgerdomain.TypeSaleCancelReverse, ledgerdomain.MethodCard, -100)
	f.entry(t, sellerB, ledgerdomain.TypeSaleAcceptedCash, ledgerdomain.MethodCash, 700)
	f.entry(t, sellerB, ledgerdomain.TypeSalaryPayoutCard, ledgerdomain.MethodCard, 50)
	f.entry(t, sellerB, ledgerdomain.TypeDepositToOwnerCash, ledgerdomain.MethodCash, 200)

	live, err := f.agg.Aggregate(ctx, f.db, testDay, Filter{})
	require.NoError(t, err)
	f.freeze(t, live)

	// written behind the guard's back after the close
	f.entry(t, sellerA, ledgerdomain.TypeSaleAcceptedCash, ledgerdomain.MethodCash, 5000)

	svc := NewService(Params{DB: f.db, Log: zaptest.NewLogger(t), Aggregator: f.agg, Snapshots: repository.Provide()})

	frozen, err := svc.GetDayAggregate(ctx, testDay, nil)
	require.NoError(t, err)
	assert.True(t, frozen.Closed)
	assert.Equal(t, live.Collected, frozen.Collected)
	assert.Equal(t, live.Refunded, frozen.Refunded)
	assert.Equal(t, live.Net, frozen.Net)
	assert.Equal(t, live.Deposited, frozen.Deposited)
	assert.Equal(t, live.SalaryPaid, frozen.SalaryPaid)
	assert.Equal(t, live.Sellers, frozen.Sellers)

	one, err := svc.GetDayAggregate(ctx, testDay, ptrID(sellerB))
	require.NoError(t, err)
	assert.True(t, one.Closed)
	require.Len(t, one.Sellers, 1)
	assert.Equal(t, sellerB, one.Sellers[0].SellerID)
	assert.Equal(t, Split{Cash: 700, Total: 700}, one.Collected)
	assert.Equal(t, Split{Card: 50, Total: 50}, one.SalaryPaid)
	assert.Equal(t, Split{Cash: 200, Total: 200}, one.Deposited)

	unfrozen := NewService(Params{DB: f.db, Log: zaptest.NewLogger(t), Aggregator: f.agg})
	recomputed, err := unfrozen.GetDayAggregate(ctx, testDay, nil)
	require.NoError(t, err)
	assert.False(t, recomputed.Closed)
	assert.Equal(t, live.Collected.Total+5000, recomputed.Collected.Total)
}

func TestOpenDayIsComputedLive(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.AutoMigrate(&shiftclosedomain.Snapshot{}))
	f.entry(t, 801, ledgerdomain.TypeSaleAcceptedCard, ledgerdomain.MethodCard, 300)

	svc := NewService(Params{DB: f.db, Log: zaptest.NewLogger(t), Aggregator: f.agg, Snapshots: repository.Provide()})
	out, err := svc.GetDayAggregate(context.Background(), testDay, nil)
	require.NoError(t, err)
	assert.False(t, out.Closed)
	assert.Equal(t, Split{Card: 300, Total: 300}, out.Collected)
}

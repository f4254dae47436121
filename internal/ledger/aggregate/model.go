package aggregate

import (
	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
)

// Split is an amount broken down by payment channel. Total is always Cash+Card.
type Split struct {
	Cash  int64 `json:"cash"`
	Card  int64 `json:"card"`
	Total int64 `json:"total"`
}

func (s *Split) add(cash, card int64) {
	s.Cash += cash
	s.Card += card
	s.Total += cash + card
}

// Minus returns s − o component-wise.
func (s Split) Minus(o Split) Split {
	return Split{Cash: s.Cash - o.Cash, Card: s.Card - o.Card, Total: s.Total - o.Total}
}

type SellerAggregate struct {
	SellerID   snowflake.ID `json:"seller_id"`
	Collected  Split        `json:"collected"`
	Refunded   Split        `json:"refunded"`
	Deposited  Split        `json:"deposited"`
	SalaryPaid Split        `json:"salary_paid"`
	Revenue    int64        `json:"revenue"`
	CashDue    int64        `json:"cash_due"`
	CardDue    int64        `json:"card_due"`
	Liability  int64        `json:"liability"`
}

// Approximations counts MIXED rows whose split did not come from the row itself.
type Approximations struct {
	PresaleScaled int `json:"presale_scaled"`
	MixedToCash   int `json:"mixed_to_cash"`
}

type DayAggregate struct {
	BusinessDay    string                 `json:"business_day"`
	// Closed is set when the totals come from the day's snapshot.
	Closed         bool                   `json:"closed"`
	Collected      Split                  `json:"collected"`
	Refunded       Split                  `json:"refunded"`
	Net            Split                  `json:"net"`
	Deposited      Split                  `json:"deposited"`
	SalaryPaid     Split                  `json:"salary_paid"`
	Sellers        []SellerAggregate      `json:"sellers"`
	Warnings       []ledgerdomain.Warning `json:"warnings"`
	Approximations Approximations         `json:"approximations"`
}

// Filter narrows the aggregate to one staff member.
type Filter struct {
	SellerID *snowflake.ID
}

// OwnerCashAvailable is net − salary due − Σ positive seller liabilities.
// Money owed back to a seller is not added.
func OwnerCashAvailable(net, salaryDue int64, sellers []SellerAggregate) int64 {
	out := net - salaryDue
	for _, s := range sellers {
		if s.Liability > 0 {
			out -= s.Liability
		}
	}
	return out
}

// TotalLiability sums positive seller liabilities.
func TotalLiability(sellers []SellerAggregate) int64 {
	var total int64
	for _, s := range sellers {
		if s.Liability > 0 {
			total += s.Liability
		}
	}
	return total
}

// TotalCashDue sums what sellers still hold in cash.
func TotalCashDue(sellers []SellerAggregate) int64 {
	var total int64
	for _, s := range sellers {
		total += s.CashDue
	}
	return total
}

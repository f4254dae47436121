package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type EntryKind string

const (
	KindSellerShift     EntryKind = "SELLER_SHIFT"
	KindDispatcherShift EntryKind = "DISPATCHER_SHIFT"
)

type EntryType string

const (
	TypeSalePrepaymentCash  EntryType = "SALE_PREPAYMENT_CASH"
	TypeSalePrepaymentCard  EntryType = "SALE_PREPAYMENT_CARD"
	TypeSalePrepaymentMixed EntryType = "SALE_PREPAYMENT_MIXED"
	TypeSaleAcceptedCash    EntryType = "SALE_ACCEPTED_CASH"
	TypeSaleAcceptedCard    EntryType = "SALE_ACCEPTED_CARD"
	TypeSaleAcceptedMixed   EntryType = "SALE_ACCEPTED_MIXED"
	TypeSaleCancelReverse   EntryType = "SALE_CANCEL_REVERSE"
	TypeDepositToOwnerCash  EntryType = "DEPOSIT_TO_OWNER_CASH"
	TypeDepositToOwnerCard  EntryType = "DEPOSIT_TO_OWNER_CARD"
	TypeSalaryPayoutCash    EntryType = "SALARY_PAYOUT_CASH"
	TypeSalaryPayoutCard    EntryType = "SALARY_PAYOUT_CARD"
)

type Method string

const (
	MethodCash  Method = "CASH"
	MethodCard  Method = "CARD"
	MethodMixed Method = "MIXED"
)

type EntryStatus string

const (
	StatusPosted EntryStatus = "POSTED"
	StatusVoid   EntryStatus = "VOID"
)

// Category groups entry types into the aggregate buckets.
type Category string

const (
	CategorySale    Category = "sale"
	CategoryRefund  Category = "refund"
	CategoryDeposit Category = "deposit"
	CategorySalary  Category = "salary"
)

var typeCategory = map[EntryType]Category{
	TypeSalePrepaymentCash:  CategorySale,
	TypeSalePrepaymentCard:  CategorySale,
	TypeSalePrepaymentMixed: CategorySale,
	TypeSaleAcceptedCash:    CategorySale,
	TypeSaleAcceptedCard:    CategorySale,
	TypeSaleAcceptedMixed:   CategorySale,
	TypeSaleCancelReverse:   CategoryRefund,
	TypeDepositToOwnerCash:  CategoryDeposit,
	TypeDepositToOwnerCard:  CategoryDeposit,
	TypeSalaryPayoutCash:    CategorySalary,
	TypeSalaryPayoutCard:    CategorySalary,
}

// Category reports the bucket of t; ok is false for unknown types.
func (t EntryType) Category() (Category, bool) {
	c, ok := typeCategory[t]
	return c, ok
}

// ImpliedMethod is the method fixed by the type name, or "" when the type
// leaves it to the row (cancel reversals).
func (t EntryType) ImpliedMethod() Method {
	switch t {
	case TypeSalePrepaymentCash, TypeSaleAcceptedCash, TypeDepositToOwnerCash, TypeSalaryPayoutCash:
		return MethodCash
	case TypeSalePrepaymentCard, TypeSaleAcceptedCard, TypeDepositToOwnerCard, TypeSalaryPayoutCard:
		return MethodCard
	case TypeSalePrepaymentMixed, TypeSaleAcceptedMixed:
		return MethodMixed
	default:
		return ""
	}
}

// AcceptedTypeFor returns the SALE_ACCEPTED type matching a payment method.
func AcceptedTypeFor(m Method) EntryType {
	switch m {
	case MethodCard:
		return TypeSaleAcceptedCard
	case MethodMixed:
		return TypeSaleAcceptedMixed
	default:
		return TypeSaleAcceptedCash
	}
}

func (m Method) Valid() bool {
	return m == MethodCash || m == MethodCard || m == MethodMixed
}

func (k EntryKind) Valid() bool {
	return k == KindSellerShift || k == KindDispatcherShift
}

// LedgerEntry is one immutable monetary fact. Rows are only ever inserted.
type LedgerEntry struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	BusinessDay    string        `gorm:"type:varchar(10);not null;index:ix_ledger_entries_day_status,priority:1" json:"business_day"`
	Kind           EntryKind     `gorm:"type:varchar(32);not null" json:"kind"`
	Type           EntryType     `gorm:"type:varchar(32);not null" json:"type"`
	Amount         int64         `gorm:"not null" json:"amount"`
	Method         Method        `gorm:"type:varchar(8);not null" json:"method"`
	CashAmount     *int64        `json:"cash_amount,omitempty"`
	CardAmount     *int64        `json:"card_amount,omitempty"`
	SellerID       *snowflake.ID `gorm:"index" json:"seller_id,omitempty"`
	PresaleID      *snowflake.ID `gorm:"index" json:"presale_id,omitempty"`
	SlotID         *string       `gorm:"type:varchar(64)" json:"slot_id,omitempty"`
	Status         EntryStatus   `gorm:"type:varchar(8);not null;index:ix_ledger_entries_day_status,priority:2" json:"status"`
	IdempotencyKey *string       `gorm:"type:varchar(128);uniqueIndex" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

type BoatType string

const (
	BoatSpeed  BoatType = "speed"
	BoatCruise BoatType = "cruise"
	BoatBanana BoatType = "banana"
)

type PresaleStatus string

const (
	PresaleActive    PresaleStatus = "ACTIVE"
	PresaleCompleted PresaleStatus = "COMPLETED"
	PresaleCancelled PresaleStatus = "CANCELLED"
)

// Presale is a sale record owned by the selling subsystem. Its payment split is
// the fallback source for MIXED ledger rows without their own split.
type Presale struct {
	ID                snowflake.ID  `gorm:"primaryKey" json:"id"`
	BusinessDay       string        `gorm:"type:varchar(10);not null;index" json:"business_day"`
	SellerID          *snowflake.ID `gorm:"index" json:"seller_id,omitempty"`
	SlotID            string        `gorm:"type:varchar(64);index" json:"slot_id,omitempty"`
	BoatType          BoatType      `gorm:"type:varchar(16)" json:"boat_type,omitempty"`
	ZoneAtSale        string        `gorm:"type:varchar(32)" json:"zone_at_sale,omitempty"`
	TotalPrice        int64         `gorm:"not null" json:"total_price"`
	PaymentMethod     Method        `gorm:"type:varchar(8)" json:"payment_method"`
	PaymentCashAmount int64         `gorm:"not null;default:0" json:"payment_cash_amount"`
	PaymentCardAmount int64         `gorm:"not null;default:0" json:"payment_card_amount"`
	Status            PresaleStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt         time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null" json:"updated_at"`
}

func (Presale) TableName() string { return "presales" }

// SlotCompletion marks a trip slot whose money has been made visible.
type SlotCompletion struct {
	SlotID        string    `gorm:"primaryKey;type:varchar(64)" json:"slot_id"`
	BusinessDay   string    `gorm:"type:varchar(10);not null;index" json:"business_day"`
	EntriesPosted int       `gorm:"not null;default:0" json:"entries_posted"`
	CompletedAt   time.Time `gorm:"not null" json:"completed_at"`
}

func (SlotCompletion) TableName() string { return "slot_completions" }

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/shiftledger/internal/ledger/domain"
	"gorm.io/datatypes"
)

// BusinessDay is touched by every writer of a day and by the close protocol.
// The row update serialises ledger appends against an in-flight close.
type BusinessDay struct {
	BusinessDay     string    `gorm:"primaryKey;type:varchar(10)" json:"business_day"`
	FirstActivityAt time.Time `gorm:"not null" json:"first_activity_at"`
	LastActivityAt  time.Time `gorm:"not null" json:"last_activity_at"`
}

func (BusinessDay) TableName() string { return "business_days" }

// Snapshot is the frozen settlement of one business day. It is inserted once
// and never updated.
type Snapshot struct {
	ID                 snowflake.ID   `gorm:"primaryKey" json:"id"`
	BusinessDay        string         `gorm:"type:varchar(10);not null;uniqueIndex" json:"business_day"`
	ClosedAt           time.Time      `gorm:"not null" json:"closed_at"`
	ClosedBy           string         `gorm:"type:varchar(128);not null" json:"closed_by"`
	CollectedTotal     int64          `gorm:"not null" json:"collected_total"`
	CollectedCash      int64          `gorm:"not null" json:"collected_cash"`
	CollectedCard      int64          `gorm:"not null" json:"collected_card"`
	RefundTotal        int64          `gorm:"not null" json:"refund_total"`
	RefundCash         int64          `gorm:"not null" json:"refund_cash"`
	RefundCard         int64          `gorm:"not null" json:"refund_card"`
	NetTotal           int64          `gorm:"not null" json:"net_total"`
	NetCash            int64          `gorm:"not null" json:"net_cash"`
	NetCard            int64          `gorm:"not null" json:"net_card"`
	DepositCash        int64          `gorm:"not null" json:"deposit_cash"`
	DepositCard        int64          `gorm:"not null" json:"deposit_card"`
	SalaryDue          int64          `gorm:"not null" json:"salary_due"`
	SalaryPaidCash     int64          `gorm:"not null" json:"salary_paid_cash"`
	SalaryPaidCard     int64          `gorm:"not null" json:"salary_paid_card"`
	SalaryPaidTotal    int64          `gorm:"not null" json:"salary_paid_total"`
	OwnerCashAvailable int64          `gorm:"not null" json:"owner_cash_available"`
	MotivationMode     string         `gorm:"type:varchar(16);not null" json:"motivation_mode"`
	MotivationFund     int64          `gorm:"not null" json:"motivation_fund"`
	Sellers            datatypes.JSON `gorm:"not null" json:"sellers"`
	Payouts            datatypes.JSON `gorm:"not null" json:"payouts"`
	CashboxCheck       datatypes.JSON `gorm:"not null" json:"cashbox_check"`
	Warnings           datatypes.JSON `gorm:"not null" json:"warnings"`
}

func (Snapshot) TableName() string { return "shift_closures" }

// SellerRow is one staff member's frozen totals inside a snapshot.
type SellerRow struct {
	SellerID       snowflake.ID `json:"seller_id"`
	CollectedCash  int64        `json:"collected_cash"`
	CollectedCard  int64        `json:"collected_card"`
	CollectedTotal int64        `json:"collected_total"`
	RefundCash     int64        `json:"refund_cash"`
	RefundCard     int64        `json:"refund_card"`
	RefundTotal    int64        `json:"refund_total"`
	DepositCash    int64        `json:"deposit_cash"`
	DepositCard    int64        `json:"deposit_card"`
	SalaryPaidCash int64        `json:"salary_paid_cash"`
	SalaryPaidCard int64        `json:"salary_paid_card"`
	SalaryPaid     int64        `json:"salary_paid"`
	Revenue        int64        `json:"revenue"`
	CashDue        int64        `json:"cash_due"`
	CardDue        int64        `json:"card_due"`
	Liability      int64        `json:"liability"`
	SalaryDue      int64        `json:"salary_due"`
}

// CashboxCheck compares expected seller cash due with a physical count.
type CashboxCheck struct {
	Expected    int64                  `json:"expected"`
	Actual      *int64                 `json:"actual"`
	Discrepancy *int64                 `json:"discrepancy"`
	Warnings    []ledgerdomain.Warning `json:"warnings"`
}

type CloseShiftRequest struct {
	BusinessDay  string `json:"business_day"`
	ClosedBy     string `json:"closed_by"`
	CashboxCount *int64 `json:"cashbox_count,omitempty"`
}

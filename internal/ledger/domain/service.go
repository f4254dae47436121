package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type PostEntryRequest struct {
	BusinessDay    string        `json:"business_day"`
	Kind           EntryKind     `json:"kind"`
	Type           EntryType     `json:"type"`
	Amount         int64         `json:"amount"`
	Method         Method        `json:"method"`
	CashAmount     *int64        `json:"cash_amount,omitempty"`
	CardAmount     *int64        `json:"card_amount,omitempty"`
	SellerID       *snowflake.ID `json:"seller_id,omitempty"`
	PresaleID      *snowflake.ID `json:"presale_id,omitempty"`
	SlotID         *string       `json:"slot_id,omitempty"`
	IdempotencyKey *string       `json:"idempotency_key,omitempty"`
}

type RecordPresaleRequest struct {
	BusinessDay       string        `json:"business_day"`
	SellerID          *snowflake.ID `json:"seller_id,omitempty"`
	SlotID            string        `json:"slot_id"`
	BoatType          BoatType      `json:"boat_type"`
	ZoneAtSale        string        `json:"zone_at_sale"`
	TotalPrice        int64         `json:"total_price"`
	PaymentMethod     Method        `json:"payment_method"`
	PaymentCashAmount int64         `json:"payment_cash_amount"`
	PaymentCardAmount int64         `json:"payment_card_amount"`
}

type SlotCompletionResult struct {
	SlotID        string `json:"slot_id"`
	BusinessDay   string `json:"business_day"`
	AlreadyDone   bool   `json:"already_done"`
	EntriesPosted int    `json:"entries_posted"`
}

type Service interface {
	PostEntry(ctx context.Context, req PostEntryRequest) (*LedgerEntry, error)
	RecordPresale(ctx context.Context, req RecordPresaleRequest) (*Presale, error)
	RecordSlotCompletion(ctx context.Context, slotID, businessDay string) (*SlotCompletionResult, error)
}

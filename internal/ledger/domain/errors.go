package domain

import "errors"

var (
	ErrInvalidKind        = errors.New("invalid_entry_kind")
	ErrInvalidType        = errors.New("invalid_entry_type")
	ErrInvalidMethod      = errors.New("invalid_payment_method")
	ErrMethodMismatch     = errors.New("entry_method_mismatch")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidSplit       = errors.New("invalid_mixed_split")
	ErrInvalidSeller      = errors.New("invalid_seller_id")
	ErrInvalidPresale     = errors.New("invalid_presale")
	ErrPresaleNotFound    = errors.New("presale_not_found")
	ErrPresaleDayMismatch = errors.New("presale_business_day_mismatch")
	ErrInvalidSlot        = errors.New("invalid_slot_id")
	ErrInvalidBoatType    = errors.New("invalid_boat_type")
)

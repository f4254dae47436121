package domain

import (
	"errors"
	"fmt"
	"net/http"
)

const CodeShiftClosed = "SHIFT_CLOSED"

var (
	ErrShiftClosed      = errors.New("shift_closed")
	ErrSnapshotNotFound = errors.New("snapshot_not_found")
	ErrInvalidClosedBy  = errors.New("invalid_closed_by")
	ErrInvalidCashbox   = errors.New("invalid_cashbox_count")
	ErrCloseLockNotHeld = errors.New("close_lock_not_held")
	ErrInvalidDateRange = errors.New("invalid_date_range")
)

// ShiftClosedError is the single error raised for any mutation attempted on a
// closed business day.
type ShiftClosedError struct {
	BusinessDay string
}

func (e *ShiftClosedError) Error() string {
	return fmt.Sprintf("shift_closed: business day %s is closed", e.BusinessDay)
}

func (e *ShiftClosedError) Is(target error) bool {
	return target == ErrShiftClosed
}

func (e *ShiftClosedError) Status() int { return http.StatusConflict }

func (e *ShiftClosedError) Code() string { return CodeShiftClosed }

// AsShiftClosed unwraps err into a ShiftClosedError when it is one.
func AsShiftClosed(err error) (*ShiftClosedError, bool) {
	var closed *ShiftClosedError
	if errors.As(err, &closed) {
		return closed, true
	}
	return nil, false
}
